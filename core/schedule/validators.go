package schedule

import (
	"sort"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	statusTag  = "sessionstatus"
	statusText = "invalid status"

	timeOrderTag  = "timeorder"
	timeOrderText = "end time must be after start time"
)

// InitValidators registers the class session validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	validate.RegisterStructValidation(sessionStructValidation, NewClassSession{}, UpdateClassSession{})
	core.RegisterCustomTranslation(validate, translator, timeOrderTag, timeOrderText)
}

// Custom Validators

// statusValidation checks that a provided session status is in AllStatuses
func statusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	sort.Strings(AllStatuses)
	idx := sort.SearchStrings(AllStatuses, status)
	return idx < len(AllStatuses) && AllStatuses[idx] == status
}

// sessionStructValidation does struct level validation on NewClassSession and UpdateClassSession structs.
func sessionStructValidation(sl validator.StructLevel) {
	switch sess := sl.Current().Interface().(type) {
	case NewClassSession:
		validateTimeOrder(sess.StartsAt, sess.EndsAt, sl)
	case UpdateClassSession:
		validateTimeOrder(sess.StartsAt, sess.EndsAt, sl)
	}
}

// validateTimeOrder checks that the session ends strictly after it starts.
// Missing times are left to the field level "required" validation.
func validateTimeOrder(startsAt, endsAt time.Time, sl validator.StructLevel) {
	if startsAt.IsZero() || endsAt.IsZero() {
		return
	}
	if !endsAt.After(startsAt) {
		sl.ReportError(endsAt, "ends_at", "EndsAt", timeOrderTag, "")
	}
}
