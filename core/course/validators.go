package course

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	courseCodeTag   = "coursecode"
	courseCodeText  = "only letters and digits separated by dashes or underscores are allowed"
	courseCodeRegex = regexp.MustCompile(`^[A-Za-z0-9]+(?:[-_][A-Za-z0-9]+)*$`)
)

// InitValidators registers the course validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(courseCodeTag, courseCodeValidation)
	core.RegisterCustomTranslation(validate, translator, courseCodeTag, courseCodeText)
}

// Custom Validators

// courseCodeValidation checks that a course code only contains letters and digits,
// optionally separated by dashes or underscores.
func courseCodeValidation(fl validator.FieldLevel) bool {
	return courseCodeRegex.MatchString(fl.Field().String())
}
