package ingestion

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-builder/internal/db"
)

var (
	// At least three letters or spaces, nothing else
	nameRegex  = regexp.MustCompile(`^[A-Za-z\s]{3,}$`)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// User-facing messages, keyed by the tag that failed
var messages = map[string]string{
	"person_name":   "Name must be at least 3 letters long and contain only letters and spaces.",
	"email_address": "Please enter a valid email address.",
	"template_name": "Please choose one of the available templates.",
	"max":           "Ensure this value has at most %s characters.",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	RegisterValidators(v)
	return v
}

// RegisterValidators registers the résumé field validators on v
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("person_name", ValidPersonName)
	_ = v.RegisterValidation("email_address", ValidEmail)
	_ = v.RegisterValidation("template_name", ValidTemplate)
}

// jsonFieldName reports fields by their JSON key so errors name the
// submitted field
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// ValidPersonName validates the résumé holder's name
func ValidPersonName(fl validator.FieldLevel) bool {
	return nameRegex.MatchString(fl.Field().String())
}

// ValidEmail validates an email address
func ValidEmail(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

// ValidTemplate validates a template name against the known layouts
func ValidTemplate(fl validator.FieldLevel) bool {
	return db.TemplateName(fl.Field().String()).Valid()
}

// scalarFields are the résumé fields with format rules. Order matters:
// the first failing field is reported.
type scalarFields struct {
	Name     string `validate:"person_name"`
	Email    string `validate:"email_address"`
	Template string `validate:"omitempty,template_name"`
}

// ValidateScalars checks the trimmed name, email and template of a résumé.
// It returns a *ValidationError for the first field that fails.
func ValidateScalars(name, email, template string) error {
	fields := scalarFields{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Template: strings.TrimSpace(template),
	}
	err := validate.Struct(fields)
	if err == nil {
		return nil
	}

	return firstError(err)
}

// CheckLengths checks the string widths of a built record (a résumé, a
// ResumeGraph or a single row) against its storage limits. Rows report
// their position, as in "skills[2].name".
func CheckLengths(record any) error {
	if err := validate.Struct(record); err != nil {
		return firstError(err)
	}
	return nil
}

func firstError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	msg := messages[first.Tag()]
	if first.Param() != "" {
		msg = fmt.Sprintf(msg, first.Param())
	}
	return &ValidationError{
		Field:   fieldPath(first.Namespace()),
		Message: msg,
	}
}

// fieldPath drops the root type from a validator namespace, along with the
// "resume." prefix of a graph's root record
func fieldPath(ns string) string {
	_, path, found := strings.Cut(ns, ".")
	if !found {
		path = ns
	}
	path = strings.TrimPrefix(path, "resume.")
	return strings.ToLower(path)
}
