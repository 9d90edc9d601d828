package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// class session statuses
const (
	StatusScheduled = "scheduled"
	StatusCanceled  = "canceled"
	StatusCompleted = "completed"
)

// AllStatuses is the display list of the class session statuses.
var AllStatuses = []string{StatusScheduled, StatusCanceled, StatusCompleted}

// ClassSession is a single meeting of a Course, led by the teacher that scheduled it.
type ClassSession struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	TeacherID string    `json:"teacher_id"`
	Title     string    `json:"title"`
	Location  string    `json:"location"`
	Notes     string    `json:"notes"`
	StartsAt  time.Time `json:"starts_at"` // UTC
	EndsAt    time.Time `json:"ends_at"`   // UTC
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (cs *ClassSession) IsCanceled() bool {
	return cs.Status == StatusCanceled
}

// NewClassSession contains information needed to schedule a new ClassSession.
type NewClassSession struct {
	CourseID string    `json:"course_id" validate:"required"`
	Title    string    `json:"title" validate:"required"`
	Location string    `json:"location"`
	Notes    string    `json:"notes"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	EndsAt   time.Time `json:"ends_at" validate:"required"`
}

func (ns *NewClassSession) Validate(validate *validator.Validate) error {
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.Title = core.CleanString(ns.Title)
	ns.Location = core.CleanString(ns.Location)
	ns.Notes = core.CleanString(ns.Notes)
	ns.StartsAt = ns.StartsAt.UTC()
	ns.EndsAt = ns.EndsAt.UTC()
	return validate.Struct(ns)
}

// UpdateClassSession defines what information may be provided to modify an existing ClassSession.
type UpdateClassSession struct {
	Title    string    `json:"title"`
	Location string    `json:"location"`
	Notes    string    `json:"notes"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Status   string    `json:"status" validate:"omitempty,sessionstatus"`
}

func (us *UpdateClassSession) Validate(origSess ClassSession, validate *validator.Validate) error {
	title := core.CleanString(us.Title)
	if title != "" {
		us.Title = title
	} else {
		us.Title = origSess.Title
	}

	location := core.CleanString(us.Location)
	if location != "" {
		us.Location = location
	} else {
		us.Location = origSess.Location
	}

	notes := core.CleanString(us.Notes)
	if notes != "" {
		us.Notes = notes
	} else {
		us.Notes = origSess.Notes
	}

	if !us.StartsAt.IsZero() {
		us.StartsAt = us.StartsAt.UTC()
	} else {
		us.StartsAt = origSess.StartsAt
	}
	if !us.EndsAt.IsZero() {
		us.EndsAt = us.EndsAt.UTC()
	} else {
		us.EndsAt = origSess.EndsAt
	}

	if us.Status == "" {
		us.Status = origSess.Status
	}

	return validate.Struct(us)
}

type QueryFilter struct {
	Search    string `query:"search"`
	CourseID  string `query:"course"`
	TeacherID string `query:"teacher"`
	Status    string `query:"status"`
	// time fields are bound manually by the API layer
	From time.Time
	To   time.Time
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.CourseID == "" && qf.TeacherID == "" && qf.Status == "" && qf.From.IsZero() && qf.To.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
