package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

const (
	courseTable        = "course"
	courseTeacherTable = "course_teacher"

	// teacherIDsColumn aggregates a course's assigned teachers into a "teacher_ids" array.
	teacherIDsColumn = "COALESCE((SELECT ARRAY_AGG(ct.teacher_id::text) FROM course_teacher ct WHERE ct.course_id = course.id), '{}') AS teacher_ids"
)

var courseColumns = []string{"id", "code", "name", "description", "is_active", "created_at", "updated_at"}

type courseRow struct {
	ID          string         `db:"id"`
	Code        string         `db:"code"`
	Name        null.String    `db:"name"`
	Description null.String    `db:"description"`
	IsActive    null.Bool      `db:"is_active"`
	TeacherIDs  pq.StringArray `db:"teacher_ids"`
	CreatedAt   null.Time      `db:"created_at"`
	UpdatedAt   null.Time      `db:"updated_at"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{db: newDB(db)}
}

func (repo courseRepository) row(crs course.Course) courseRow {
	return courseRow{
		ID:          crs.ID,
		Code:        crs.Code,
		Name:        null.NewString(crs.Name, crs.Name != ""),
		Description: null.NewString(crs.Description, crs.Description != ""),
		IsActive:    null.BoolFromPtr(crs.IsActive),
		CreatedAt:   null.NewTime(crs.CreatedAt.UTC(), !crs.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(crs.UpdatedAt.UTC(), !crs.UpdatedAt.IsZero()),
	}
}

func (repo courseRepository) unrow(r courseRow) course.Course {
	return course.Course{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name.String,
		Description: r.Description.String,
		IsActive:    r.IsActive.Ptr(),
		TeacherIDs:  r.TeacherIDs,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

func (repo courseRepository) unrowSlice(rows []courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, repo.unrow(r))
	}
	return courses
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// selectColumns returns the course columns plus the aggregated teacher IDs.
func (repo courseRepository) selectColumns() []string {
	return append(append([]string{}, courseColumns...), teacherIDsColumn)
}

func (repo courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...course.Course) error {
	qb := psql.Select("COUNT(1)").From(courseTable).Where(sq.Eq{"code": code})
	if len(excludedCourses) > 0 {
		ids := make([]string, 0, len(excludedCourses))
		for _, c := range excludedCourses {
			ids = append(ids, c.ID)
		}
		qb = qb.Where(sq.NotEq{"id": ids})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking course code uniqueness")
	}
	if count > 0 {
		return course.ErrCodeExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	r := repo.row(crs)

	query, args, err := psql.Insert(courseTable).
		Columns(courseColumns...).
		Values(r.ID, r.Code, r.Name, r.Description, r.IsActive, r.CreatedAt, r.UpdatedAt).
		ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	crs.TeacherIDs = []string{}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	qb := psql.Select(repo.selectColumns()...).From(courseTable)

	if filter != nil && !filter.IsEmpty() {
		filter.Clean()

		// any of code or name matching search
		if filter.Search != "" {
			val := fmt.Sprint("%", filter.Search, "%")
			qb = qb.Where(sq.Or{
				sq.ILike{"code": val},
				sq.ILike{"name": val},
			})
		}
		if filter.TeacherID != "" {
			if _, err := uuid.Parse(filter.TeacherID); err != nil {
				return []course.Course{}, nil
			}
			qb = qb.Where(sq.Expr(
				"EXISTS (SELECT 1 FROM course_teacher ct WHERE ct.course_id = course.id AND ct.teacher_id = ?)",
				filter.TeacherID,
			))
		}
		if filter.IsActive != nil {
			qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
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
	var rows []courseRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return repo.unrowSlice(rows), nil
}

func (repo courseRepository) GetCourse(ctx context.Context, filter course.GetFilter) (course.Course, error) {
	qb := psql.Select(repo.selectColumns()...).From(courseTable)

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return course.Course{}, course.ErrNotFound
		}
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Code != "":
		qb = qb.Where(sq.Eq{"code": filter.Code})
	default:
		return course.Course{}, course.ErrNotFound
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	var r courseRow
	if err = repo.db.GetContext(ctx, &r, query, args...); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "finding course")
	}
	return repo.unrow(r), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	qb := psql.Update(courseTable)
	if crs.Code != "" {
		qb = qb.Set("code", crs.Code)
	}
	if crs.Name != "" {
		qb = qb.Set("name", crs.Name)
	}
	if crs.Description != "" {
		qb = qb.Set("description", crs.Description)
	}
	if crs.IsActive != nil {
		qb = qb.Set("is_active", *crs.IsActive)
	}
	if !crs.UpdatedAt.IsZero() {
		qb = qb.Set("updated_at", crs.UpdatedAt.UTC())
	}

	query, args, err := qb.Where(sq.Eq{"id": crs.ID}).ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}

	// refetch to include the aggregated teacher IDs
	return repo.GetCourse(ctx, course.GetFilter{ID: crs.ID})
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	query, args, err := psql.Delete(courseTable).Where(sq.Eq{"id": valid}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting courses")
	}
	return int(n), nil
}

func (repo courseRepository) AssignTeacher(ctx context.Context, courseID, teacherID string) error {
	query, args, err := psql.Insert(courseTeacherTable).
		Columns("course_id", "teacher_id", "created_at").
		Values(courseID, teacherID, time.Now().UTC()).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return course.ErrTeacherAssigned
		}
		return errors.Wrap(err, "assigning teacher")
	}
	return nil
}

func (repo courseRepository) UnassignTeacher(ctx context.Context, courseID, teacherID string) (int, error) {
	query, args, err := psql.Delete(courseTeacherTable).
		Where(sq.Eq{"course_id": courseID, "teacher_id": teacherID}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "unassigning teacher")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "unassigning teacher")
	}
	return int(n), nil
}
