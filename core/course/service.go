package course

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrCodeExists      = errors.New("a course with this code already exists")
	ErrTeacherAssigned = errors.New("teacher is already assigned to this course")

	errTeacherNotFound = errors.New("teacher not found")
	errNotATeacher     = errors.New("user is not a teacher")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...Course) error
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Course.Code or Course.Name.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, filter GetFilter) (Course, error)
		// UpdateCourse only persists the set fields of crs.
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) (int, error)
		AssignTeacher(ctx context.Context, courseID, teacherID string) error
		UnassignTeacher(ctx context.Context, courseID, teacherID string) (int, error)
	}

	ServiceInterface interface {
		CheckCodeUniqueness(ctx context.Context, code string, exclCourses ...Course) error
		Create(ctx context.Context, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		QueryByTeacher(ctx context.Context, teacherID string, ordering []core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetByCode(ctx context.Context, code string) (Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error
		AssignTeacher(ctx context.Context, crs Course, teacherID string) (Course, error)
		UnassignTeacher(ctx context.Context, crs Course, teacherID string) (Course, error)
	}

	Service struct {
		repo    Repository
		usrRepo user.Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, usrRepo user.Repository) *Service {
	return &Service{
		repo:    repo,
		usrRepo: usrRepo,
	}
}

func (svc *Service) CheckCodeUniqueness(ctx context.Context, code string, exclCourses ...Course) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, exclCourses...); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Code:        nc.Code,
		Name:        nc.Name,
		Description: nc.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	crs.SetActive(true)
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

// QueryByTeacher returns the courses the user with the given ID is assigned to.
func (svc *Service) QueryByTeacher(ctx context.Context, teacherID string, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, &QueryFilter{TeacherID: teacherID}, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{Code: strings.ToUpper(core.CleanString(code))})
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs := Course{
		ID:          id,
		Code:        uc.Code,
		Name:        uc.Name,
		Description: uc.Description,
		IsActive:    uc.IsActive,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteCoursesByID(ctx, ids...)
	return err
}

// AssignTeacher adds the user with the given ID to the course's teaching staff.
// The target user must exist and hold a teacher role.
func (svc *Service) AssignTeacher(ctx context.Context, crs Course, teacherID string) (Course, error) {
	usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: teacherID})
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Course{}, core.NewValidationError(errTeacherNotFound, core.FieldError{Field: "teacher_id", Error: errTeacherNotFound.Error()})
		}
		return Course{}, err
	}
	if !usr.IsTeacher() {
		return Course{}, core.NewValidationError(errNotATeacher, core.FieldError{Field: "teacher_id", Error: errNotATeacher.Error()})
	}

	if err = svc.repo.AssignTeacher(ctx, crs.ID, usr.ID); err != nil {
		if err == ErrTeacherAssigned {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "teacher_id", Error: err.Error()})
		}
		return Course{}, err
	}
	return svc.GetByID(ctx, crs.ID)
}

// UnassignTeacher removes the user with the given ID from the course's teaching staff.
// It is a no-op if the user is not assigned.
func (svc *Service) UnassignTeacher(ctx context.Context, crs Course, teacherID string) (Course, error) {
	if _, err := svc.repo.UnassignTeacher(ctx, crs.ID, teacherID); err != nil {
		return Course{}, err
	}
	return svc.GetByID(ctx, crs.ID)
}
