// Package validation validates service inputs using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/tsundokudragon/dragon-server/internal/domain"
	domainerrors "github.com/tsundokudragon/dragon-server/internal/errors"
)

// MaxSkillNameLength bounds a skill name, in characters.
const MaxSkillNameLength = 50

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Validation registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("skillname", validateSkillName)
	_ = v.RegisterValidation("bookstatus", validateBookStatus)

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Collect all field errors
	fieldErrors := make(map[string]string)
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	// Return domain validation error with details
	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param() + unit(e.Kind())
	case "max":
		return "must not exceed " + e.Param() + unit(e.Kind())
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	case "skillname":
		return fmt.Sprintf("must be a non-blank skill name of at most %d characters", MaxSkillNameLength)
	case "bookstatus":
		return "must be one of: reading completed archived"
	default:
		return "is invalid"
	}
}

func unit(kind reflect.Kind) string {
	switch kind {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	default:
		return ""
	}
}

// validateSkillName accepts names that can be stored as a sort key suffix.
func validateSkillName(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	if name == "" || strings.ContainsRune(name, 0) {
		return false
	}
	return utf8.RuneCountInString(name) <= MaxSkillNameLength
}

func validateBookStatus(fl validator.FieldLevel) bool {
	return domain.BookStatus(fl.Field().String()).Valid()
}
