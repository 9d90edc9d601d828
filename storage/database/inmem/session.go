package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/schedule"
)

type sessionRepository struct {
	db *sessionTable
}

var _ schedule.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) query() []schedule.ClassSession {
	sessions := make([]schedule.ClassSession, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		sessions = append(sessions, *s)
	}
	return sessions
}

func (repo *sessionRepository) CreateClassSession(ctx context.Context, sess schedule.ClassSession) (schedule.ClassSession, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sess.ID = uuid.New().String()
	repo.db.table[sess.ID] = &sess
	return sess, nil
}

func (repo *sessionRepository) QueryClassSessions(ctx context.Context, filter *schedule.QueryFilter, ordering []core.DBOrdering) ([]schedule.ClassSession, error) {
	repo.db.mutex.RLock()
	sessions := repo.query()
	repo.db.mutex.RUnlock()

	if filter != nil && !filter.IsEmpty() {
		filter.Clean()
		filtered := make([]schedule.ClassSession, 0, len(sessions))
		for _, sess := range sessions {
			if matchSession(sess, filter) {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}

	sortSessions(sessions, ordering)
	return sessions, nil
}

func (repo *sessionRepository) GetClassSession(ctx context.Context, id string) (schedule.ClassSession, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sess, ok := repo.db.table[id]; ok {
		return *sess, nil
	}
	return schedule.ClassSession{}, schedule.ErrNotFound
}

func (repo *sessionRepository) UpdateClassSession(ctx context.Context, sess schedule.ClassSession) (schedule.ClassSession, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	origSess, ok := repo.db.table[sess.ID]
	if !ok {
		return schedule.ClassSession{}, schedule.ErrNotFound
	}
	if sess.Title != "" {
		origSess.Title = sess.Title
	}
	if sess.Location != "" {
		origSess.Location = sess.Location
	}
	if sess.Notes != "" {
		origSess.Notes = sess.Notes
	}
	if !sess.StartsAt.IsZero() {
		origSess.StartsAt = sess.StartsAt
	}
	if !sess.EndsAt.IsZero() {
		origSess.EndsAt = sess.EndsAt
	}
	if sess.Status != "" {
		origSess.Status = sess.Status
	}
	if !sess.UpdatedAt.IsZero() {
		origSess.UpdatedAt = sess.UpdatedAt
	}
	return *origSess, nil
}

func (repo *sessionRepository) DeleteClassSessionsByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var count int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			count++
		}
	}
	return count, nil
}

func (repo *sessionRepository) CourseSessionExists(ctx context.Context, courseID string, startsAt, endsAt time.Time, excludedIDs ...string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	exclIDs := append([]string{}, excludedIDs...)
	sort.Strings(exclIDs)

	for _, sess := range repo.query() {
		if sess.CourseID != courseID || sess.IsCanceled() || isExcluded(sess.ID, exclIDs) {
			continue
		}
		if sess.StartsAt.Before(endsAt) && sess.EndsAt.After(startsAt) {
			return true, nil
		}
	}
	return false, nil
}

func matchSession(sess schedule.ClassSession, filter *schedule.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(sess.Title), search) ||
			strings.Contains(strings.ToLower(sess.Location), search)) {
			return false
		}
	}
	if filter.CourseID != "" && sess.CourseID != filter.CourseID {
		return false
	}
	if filter.TeacherID != "" && sess.TeacherID != filter.TeacherID {
		return false
	}
	if filter.Status != "" && sess.Status != filter.Status {
		return false
	}
	if !filter.From.IsZero() && sess.StartsAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && sess.StartsAt.After(filter.To) {
		return false
	}
	return true
}

func sortSessions(sessions []schedule.ClassSession, ordering []core.DBOrdering) {
	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		sort.SliceStable(sessions, func(a, b int) bool {
			if ord.Ascending {
				return lessSession(sessions[a], sessions[b], ord.Field)
			}
			return lessSession(sessions[b], sessions[a], ord.Field)
		})
	}
}

func lessSession(a, b schedule.ClassSession, field string) bool {
	switch field {
	case "starts_at":
		return a.StartsAt.Before(b.StartsAt)
	case "created_at":
		return a.CreatedAt.Before(b.CreatedAt)
	case "title":
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	}
	return false
}
