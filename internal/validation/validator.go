// Package validation wraps go-playground/validator with English messages keyed by JSON field names.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/integrity-watch/report-service/internal/domain"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

var (
	// custom validation tags & texts
	categoryTag  = "report_category"
	categoryText = "{0} must be a known report category"
	priorityTag  = "report_priority"
	priorityText = "{0} must be one of low, medium, high or urgent"
	statusTag    = "report_status"
	statusText   = "{0} must be a known report status"
	outcomeTag   = "resolution_outcome"
	outcomeText  = "{0} must be a known resolution outcome"
	roleTag      = "role"
	roleText     = "{0} must be citizen, police or admin"
	notBlankTag  = "notblank"
	notBlankText = "{0} must not be blank"
)

// Validator validates request payloads.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a validator with English translations and the domain tags registered.
func New() *Validator {
	validate := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "" {
			tag = fld.Tag.Get("form")
		}
		name := strings.SplitN(tag, ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate, translator: translator}
	v.register(categoryTag, categoryText, func(fl validator.FieldLevel) bool {
		return domain.ReportCategory(fl.Field().String()).Valid()
	})
	v.register(priorityTag, priorityText, func(fl validator.FieldLevel) bool {
		return domain.ReportPriority(fl.Field().String()).Valid()
	})
	v.register(statusTag, statusText, func(fl validator.FieldLevel) bool {
		return domain.ReportStatus(fl.Field().String()).Valid()
	})
	v.register(outcomeTag, outcomeText, func(fl validator.FieldLevel) bool {
		return domain.ResolutionOutcome(fl.Field().String()).Valid()
	})
	v.register(roleTag, roleText, func(fl validator.FieldLevel) bool {
		return domain.Role(fl.Field().String()).Valid()
	})
	v.register(notBlankTag, notBlankText, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func (v *Validator) register(tag, text string, fn validator.Func) {
	_ = v.validate.RegisterValidation(tag, fn)
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and returns a VALIDATION_FAILED error with per-field messages.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldPath(fe)] = fe.Translate(v.translator)
	}
	return apperrors.NewValidationError("validation failed", details)
}

// fieldPath drops the root struct name from the namespace, e.g. "location.address".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
