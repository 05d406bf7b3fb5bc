package validator

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 72 // bcrypt ignores anything longer
)

// EmailRules applies to every email field accepted by the API.
func EmailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(3, 254),
		is.EmailFormat,
	}
}

// PasswordRules applies to new passwords. Login only checks presence so
// accounts created under older rules can still sign in.
func PasswordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(PasswordMinLength, PasswordMaxLength),
	}
}

// PageSizeRules bounds list pagination.
func PageSizeRules(max int) []validation.Rule {
	return []validation.Rule{
		validation.Min(1),
		validation.Max(max),
	}
}
