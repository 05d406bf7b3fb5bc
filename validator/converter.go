// Package validator turns ozzo-validation failures into LayeredErrors.
package validator

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/KOMKZ/go-yogan-auth/errcode"
)

// Validatable is implemented by request structs.
type Validatable interface {
	Validate() error
}

// ValidateRequest runs req.Validate and maps field errors to errcode.ErrValidation.
func ValidateRequest(req Validatable) error {
	err := req.Validate()
	if err == nil {
		return nil
	}

	var internal validation.InternalError
	if errors.As(err, &internal) {
		return errcode.ErrInternal.Wrap(internal.InternalError())
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return ConvertValidationError(fieldErrs)
	}

	return errcode.ErrValidation.WithMsg(err.Error())
}

// ConvertValidationError keeps one message per field under data["fields"].
func ConvertValidationError(validationErrs validation.Errors) *errcode.LayeredError {
	fields := make(map[string]string, len(validationErrs))
	for field, fieldErr := range validationErrs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}

	return errcode.ErrValidation.WithData("fields", fields)
}
