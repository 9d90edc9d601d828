package schedule

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("class session not found")

	errCourseInactive   = errors.New("course is not active")
	errNotCourseTeacher = errors.New("you are not assigned to this course")
	errSessionOverlap   = errors.New("overlaps an existing session for this course")
)

const sessionTimeFormat = "Mon, 02 Jan 2006 15:04 MST"

type (
	Repository interface {
		CreateClassSession(ctx context.Context, sess ClassSession) (ClassSession, error)
		// QueryClassSessions applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of ClassSession.Title or ClassSession.Location.
		QueryClassSessions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]ClassSession, error)
		GetClassSession(ctx context.Context, id string) (ClassSession, error)
		// UpdateClassSession only persists the set fields of sess.
		UpdateClassSession(ctx context.Context, sess ClassSession) (ClassSession, error)
		DeleteClassSessionsByID(ctx context.Context, ids ...string) (int, error)
		// CourseSessionExists reports whether the course already has a session, other than
		// those with the excluded IDs, that is not canceled and runs within the given times.
		CourseSessionExists(ctx context.Context, courseID string, startsAt, endsAt time.Time, excludedIDs ...string) (bool, error)
	}

	ServiceInterface interface {
		Schedule(ctx context.Context, teacher user.User, ns NewClassSession) (ClassSession, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]ClassSession, error)
		GetByID(ctx context.Context, id string) (ClassSession, error)
		Update(ctx context.Context, origSess ClassSession, us UpdateClassSession) (ClassSession, error)
		Cancel(ctx context.Context, sess ClassSession) (ClassSession, error)
		Delete(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo    Repository
		crsRepo course.Repository
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, crsRepo course.Repository, mailSvc core.EmailService) *Service {
	return &Service{
		repo:    repo,
		crsRepo: crsRepo,
		mailSvc: mailSvc,
	}
}

// Schedule creates a new ClassSession for teacher after checking that the course exists,
// is active, is assigned to teacher and that the session does not overlap an existing one.
func (svc *Service) Schedule(ctx context.Context, teacher user.User, ns NewClassSession) (ClassSession, error) {
	crs, err := svc.crsRepo.GetCourse(ctx, course.GetFilter{ID: ns.CourseID})
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return ClassSession{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: course.ErrNotFound.Error()})
		}
		return ClassSession{}, err
	}
	if crs.IsActive == nil || !*crs.IsActive {
		return ClassSession{}, core.NewValidationError(errCourseInactive, core.FieldError{Field: "course_id", Error: errCourseInactive.Error()})
	}
	if !crs.HasTeacher(teacher.ID) {
		return ClassSession{}, core.NewValidationError(errNotCourseTeacher, core.FieldError{Field: "course_id", Error: errNotCourseTeacher.Error()})
	}

	exists, err := svc.repo.CourseSessionExists(ctx, crs.ID, ns.StartsAt, ns.EndsAt)
	if err != nil {
		return ClassSession{}, err
	}
	if exists {
		return ClassSession{}, core.NewValidationError(errSessionOverlap, core.FieldError{Field: "starts_at", Error: errSessionOverlap.Error()})
	}

	now := time.Now().UTC()
	sess := ClassSession{
		CourseID:  crs.ID,
		TeacherID: teacher.ID,
		Title:     ns.Title,
		Location:  ns.Location,
		Notes:     ns.Notes,
		StartsAt:  ns.StartsAt,
		EndsAt:    ns.EndsAt,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sess, err = svc.repo.CreateClassSession(ctx, sess)
	if err != nil {
		return ClassSession{}, err
	}
	svc.sendScheduledMail(sess, crs, teacher)
	return sess, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]ClassSession, error) {
	return svc.repo.QueryClassSessions(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (ClassSession, error) {
	return svc.repo.GetClassSession(ctx, id)
}

func (svc *Service) Update(ctx context.Context, origSess ClassSession, us UpdateClassSession) (ClassSession, error) {
	exists, err := svc.repo.CourseSessionExists(ctx, origSess.CourseID, us.StartsAt, us.EndsAt, origSess.ID)
	if err != nil {
		return ClassSession{}, err
	}
	if exists {
		return ClassSession{}, core.NewValidationError(errSessionOverlap, core.FieldError{Field: "starts_at", Error: errSessionOverlap.Error()})
	}

	sess := ClassSession{
		ID:        origSess.ID,
		Title:     us.Title,
		Location:  us.Location,
		Notes:     us.Notes,
		StartsAt:  us.StartsAt,
		EndsAt:    us.EndsAt,
		Status:    us.Status,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateClassSession(ctx, sess)
}

// Cancel marks the session as canceled, freeing its time slot. It is a no-op on a canceled session.
func (svc *Service) Cancel(ctx context.Context, sess ClassSession) (ClassSession, error) {
	if sess.IsCanceled() {
		return sess, nil
	}
	return svc.repo.UpdateClassSession(ctx, ClassSession{
		ID:        sess.ID,
		Status:    StatusCanceled,
		UpdatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteClassSessionsByID(ctx, ids...)
	return err
}

func (svc *Service) sendScheduledMail(sess ClassSession, crs course.Course, teacher user.User) {
	if teacher.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: teacher.Name, Address: teacher.Email}},
		Subject:      fmt.Sprintf("New class session: %s", crs.Code),
		TemplateName: "session-scheduled",
		TemplateData: struct {
			Name, Course, Title, Location, StartsAt, EndsAt string
		}{
			Name:     teacher.Name,
			Course:   fmt.Sprintf("%s (%s)", crs.Name, crs.Code),
			Title:    sess.Title,
			Location: sess.Location,
			StartsAt: sess.StartsAt.Format(sessionTimeFormat),
			EndsAt:   sess.EndsAt.Format(sessionTimeFormat),
		},
	})
}
