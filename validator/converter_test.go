package validator

import (
	"errors"
	"net/http"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KOMKZ/go-yogan-auth/errcode"
)

type credentials struct {
	Email    string
	Password string
}

func (c credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, EmailRules()...),
		validation.Field(&c.Password, PasswordRules()...),
	)
}

type plainFailure struct{}

func (plainFailure) Validate() error { return errors.New("body must not be empty") }

func TestValidateRequest_OK(t *testing.T) {
	assert.NoError(t, ValidateRequest(credentials{Email: "ann@example.com", Password: "long-enough"}))
}

func TestValidateRequest_FieldErrors(t *testing.T) {
	cases := []struct {
		name  string
		req   credentials
		field string
	}{
		{"bad email", credentials{Email: "not-an-email", Password: "long-enough"}, "Email"},
		{"short password", credentials{Email: "ann@example.com", Password: "bvbvhf"}, "Password"},
		{"missing email", credentials{Password: "long-enough"}, "Email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRequest(tc.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, errcode.ErrValidation)

			le, ok := errcode.As(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, le.HTTPStatus())

			fields := le.Data()["fields"].(map[string]string)
			assert.Contains(t, fields, tc.field)
		})
	}
}

func TestValidateRequest_PlainError(t *testing.T) {
	err := ValidateRequest(plainFailure{})
	assert.ErrorIs(t, err, errcode.ErrValidation)
	assert.Contains(t, err.Error(), "body must not be empty")
}

func TestPageSizeRules(t *testing.T) {
	size := 150
	err := validation.Validate(size, PageSizeRules(100)...)
	assert.Error(t, err)
	assert.NoError(t, validation.Validate(20, PageSizeRules(100)...))
}
