// Package validate contains the support for validating models and the
// values a user types on the command line.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// validate holds the settings and caches for validating request struct values.
var validate *validator.Validate

// translator is a cache of locale and translation information.
var translator ut.Translator

func init() {

	// Instantiate a validator.
	validate = validator.New()

	// Create a translator for english so the error messages are
	// more human-readable than technical.
	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")

	// Register the english error messages for use.
	en_translations.RegisterDefaultTranslations(validate, translator)

	// Use the names which have been specified for env/JSON representations of
	// structs, rather than normal Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	register("address", "{0} must be a 0x prefixed, 40 character hex address", func(fl validator.FieldLevel) bool {
		return IsAddress(fl.Field().String())
	})
	register("proposal", "{0} must be non-empty text of at most 32 bytes", func(fl validator.FieldLevel) bool {
		return IsProposal(fl.Field().String())
	})
	register("hexkey", "{0} must be a 32 byte hex encoded private key", func(fl validator.FieldLevel) bool {
		return IsHexKey(fl.Field().String())
	})
}

// register adds a custom tag with its english message.
func register(tag string, msg string, fn validator.Func) {
	validate.RegisterValidation(tag, fn)

	validate.RegisterTranslation(tag, translator,
		func(ut ut.Translator) error {
			return ut.Add(tag, msg, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}

// =============================================================================

// FieldError is used to indicate an error with a specific field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// ValidationError represents user supplied input or configuration that is
// not acceptable. Nothing must touch the network once this is returned.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	msgs := make([]string, len(ve.Fields))
	for i, fld := range ve.Fields {
		msgs[i] = fmt.Sprintf("%s: %s", fld.Field, fld.Err)
	}

	return "validation failed: " + strings.Join(msgs, "; ")
}

// Fail constructs a validation error for a single field.
func Fail(field string, format string, args ...any) error {
	return &ValidationError{
		Fields: []FieldError{{Field: field, Err: fmt.Sprintf(format, args...)}},
	}
}

// IsValidationError checks if an error of type ValidationError exists.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GetValidationError returns a copy of the ValidationError pointer.
func GetValidationError(err error) *ValidationError {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	return ve
}

// =============================================================================

// Check validates the provided model against it's declared tags.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {

		// Use a type assertion to get the real error value.
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}

		var ve ValidationError
		for _, verror := range verrors {
			field := FieldError{
				Field: verror.Field(),
				Err:   verror.Translate(translator),
			}
			ve.Fields = append(ve.Fields, field)
		}

		return &ve
	}

	return nil
}
