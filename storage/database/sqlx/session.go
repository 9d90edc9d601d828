package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/schedule"
)

const sessionTable = "class_session"

var sessionColumns = []string{"id", "course_id", "teacher_id", "title", "location", "notes", "starts_at", "ends_at", "status", "created_at", "updated_at"}

type sessionRow struct {
	ID        string      `db:"id"`
	CourseID  string      `db:"course_id"`
	TeacherID string      `db:"teacher_id"`
	Title     string      `db:"title"`
	Location  null.String `db:"location"`
	Notes     null.String `db:"notes"`
	StartsAt  time.Time   `db:"starts_at"`
	EndsAt    time.Time   `db:"ends_at"`
	Status    string      `db:"status"`
	CreatedAt null.Time   `db:"created_at"`
	UpdatedAt null.Time   `db:"updated_at"`
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sql.DB) *sessionRepository {
	return &sessionRepository{db: newDB(db)}
}

func (repo sessionRepository) row(sess schedule.ClassSession) sessionRow {
	return sessionRow{
		ID:        sess.ID,
		CourseID:  sess.CourseID,
		TeacherID: sess.TeacherID,
		Title:     sess.Title,
		Location:  null.NewString(sess.Location, sess.Location != ""),
		Notes:     null.NewString(sess.Notes, sess.Notes != ""),
		StartsAt:  sess.StartsAt.UTC(),
		EndsAt:    sess.EndsAt.UTC(),
		Status:    sess.Status,
		CreatedAt: null.NewTime(sess.CreatedAt.UTC(), !sess.CreatedAt.IsZero()),
		UpdatedAt: null.NewTime(sess.UpdatedAt.UTC(), !sess.UpdatedAt.IsZero()),
	}
}

func (repo sessionRepository) unrow(r sessionRow) schedule.ClassSession {
	return schedule.ClassSession{
		ID:        r.ID,
		CourseID:  r.CourseID,
		TeacherID: r.TeacherID,
		Title:     r.Title,
		Location:  r.Location.String,
		Notes:     r.Notes.String,
		StartsAt:  r.StartsAt,
		EndsAt:    r.EndsAt,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func (repo sessionRepository) unrowSlice(rows []sessionRow) []schedule.ClassSession {
	sessions := make([]schedule.ClassSession, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, repo.unrow(r))
	}
	return sessions
}

// trapNoRowsErr maps psql "no rows" err to schedule.ErrNotFound
func (repo sessionRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return schedule.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo sessionRepository) CreateClassSession(ctx context.Context, sess schedule.ClassSession) (schedule.ClassSession, error) {
	sess.ID = uuid.New().String()
	r := repo.row(sess)

	query, args, err := psql.Insert(sessionTable).
		Columns(sessionColumns...).
		Values(r.ID, r.CourseID, r.TeacherID, r.Title, r.Location, r.Notes, r.StartsAt, r.EndsAt, r.Status, r.CreatedAt, r.UpdatedAt).
		ToSql()
	if err != nil {
		return schedule.ClassSession{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return schedule.ClassSession{}, errors.Wrap(err, "creating class session")
	}
	return sess, nil
}

func (repo sessionRepository) QueryClassSessions(ctx context.Context, filter *schedule.QueryFilter, ordering []core.DBOrdering) ([]schedule.ClassSession, error) {
	qb := psql.Select(sessionColumns...).From(sessionTable)

	if filter != nil && !filter.IsEmpty() {
		filter.Clean()

		// any of title or location matching search
		if filter.Search != "" {
			val := fmt.Sprint("%", filter.Search, "%")
			qb = qb.Where(sq.Or{
				sq.ILike{"title": val},
				sq.ILike{"location": val},
			})
		}
		if filter.CourseID != "" {
			if _, err := uuid.Parse(filter.CourseID); err != nil {
				return []schedule.ClassSession{}, nil
			}
			qb = qb.Where(sq.Eq{"course_id": filter.CourseID})
		}
		if filter.TeacherID != "" {
			if _, err := uuid.Parse(filter.TeacherID); err != nil {
				return []schedule.ClassSession{}, nil
			}
			qb = qb.Where(sq.Eq{"teacher_id": filter.TeacherID})
		}
		if filter.Status != "" {
			qb = qb.Where(sq.Eq{"status": filter.Status})
		}
		if !filter.From.IsZero() {
			qb = qb.Where(sq.GtOrEq{"starts_at": filter.From.UTC()})
		}
		if !filter.To.IsZero() {
			qb = qb.Where(sq.LtOrEq{"starts_at": filter.To.UTC()})
		}
	}

	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		qb = qb.OrderBy(orderList...)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []sessionRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying class sessions")
	}
	return repo.unrowSlice(rows), nil
}

func (repo sessionRepository) GetClassSession(ctx context.Context, id string) (schedule.ClassSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.ClassSession{}, schedule.ErrNotFound
	}

	query, args, err := psql.Select(sessionColumns...).From(sessionTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return schedule.ClassSession{}, errors.Wrap(err, "building query")
	}
	var r sessionRow
	if err = repo.db.GetContext(ctx, &r, query, args...); err != nil {
		return schedule.ClassSession{}, repo.trapNoRowsErr(err, "finding class session")
	}
	return repo.unrow(r), nil
}

func (repo sessionRepository) UpdateClassSession(ctx context.Context, sess schedule.ClassSession) (schedule.ClassSession, error) {
	qb := psql.Update(sessionTable)
	if sess.Title != "" {
		qb = qb.Set("title", sess.Title)
	}
	if sess.Location != "" {
		qb = qb.Set("location", sess.Location)
	}
	if sess.Notes != "" {
		qb = qb.Set("notes", sess.Notes)
	}
	if !sess.StartsAt.IsZero() {
		qb = qb.Set("starts_at", sess.StartsAt.UTC())
	}
	if !sess.EndsAt.IsZero() {
		qb = qb.Set("ends_at", sess.EndsAt.UTC())
	}
	if sess.Status != "" {
		qb = qb.Set("status", sess.Status)
	}
	if !sess.UpdatedAt.IsZero() {
		qb = qb.Set("updated_at", sess.UpdatedAt.UTC())
	}

	query, args, err := qb.
		Where(sq.Eq{"id": sess.ID}).
		Suffix("RETURNING " + strings.Join(sessionColumns, ", ")).
		ToSql()
	if err != nil {
		return schedule.ClassSession{}, errors.Wrap(err, "building query")
	}
	var r sessionRow
	if err = repo.db.GetContext(ctx, &r, query, args...); err != nil {
		return schedule.ClassSession{}, repo.trapNoRowsErr(err, "updating class session")
	}
	return repo.unrow(r), nil
}

func (repo sessionRepository) DeleteClassSessionsByID(ctx context.Context, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	query, args, err := psql.Delete(sessionTable).Where(sq.Eq{"id": valid}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting class sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting class sessions")
	}
	return int(n), nil
}

func (repo sessionRepository) CourseSessionExists(ctx context.Context, courseID string, startsAt, endsAt time.Time, excludedIDs ...string) (bool, error) {
	qb := psql.Select("COUNT(1)").From(sessionTable).
		Where(sq.Eq{"course_id": courseID}).
		Where(sq.NotEq{"status": schedule.StatusCanceled}).
		Where(sq.Lt{"starts_at": endsAt.UTC()}).
		Where(sq.Gt{"ends_at": startsAt.UTC()})
	if len(excludedIDs) > 0 {
		qb = qb.Where(sq.NotEq{"id": excludedIDs})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}
	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, errors.Wrap(err, "checking session overlap")
	}
	return count > 0, nil
}
