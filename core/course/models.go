package course

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type Course struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    *bool     `json:"is_active"`
	TeacherIDs  []string  `json:"teacher_ids"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (c *Course) SetActive(active bool) {
	c.IsActive = &active
}

// HasTeacher reports whether the user with the given ID is assigned to this course.
func (c *Course) HasTeacher(id string) bool {
	for _, tid := range c.TeacherIDs {
		if tid == id {
			return true
		}
	}
	return false
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Code        string `json:"code" validate:"required,coursecode"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nc.Code = strings.ToUpper(core.CleanString(nc.Code))
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, nc.Code)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Code        string `json:"code" validate:"omitempty,coursecode"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, origCrs Course, validate *validator.Validate, svc ServiceInterface) error {
	code := strings.ToUpper(core.CleanString(uc.Code))
	if code != "" {
		uc.Code = code
	} else {
		uc.Code = origCrs.Code
	}

	name := core.CleanString(uc.Name)
	if name != "" {
		uc.Name = name
	} else {
		uc.Name = origCrs.Name
	}

	desc := core.CleanString(uc.Description)
	if desc != "" {
		uc.Description = desc
	} else {
		uc.Description = origCrs.Description
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ctx, uc.Code, origCrs)
}

type QueryFilter struct {
	Search    string `query:"search"`
	TeacherID string `query:"teacher"`
	IsActive  *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.TeacherID == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.TeacherID = core.CleanString(qf.TeacherID)
}

// GetFilter fetches a single Course by one of its unique attributes.
type GetFilter struct {
	ID   string
	Code string
}
