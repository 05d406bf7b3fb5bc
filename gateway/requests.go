package gateway

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/KOMKZ/go-yogan-auth/httpx/types"
	"github.com/KOMKZ/go-yogan-auth/validator"
)

// credentialsReq is the signup and login body. Both keys are required.
type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupReq struct {
	credentialsReq
}

func (r signupReq) Validate() error {
	return validation.ValidateStruct(&r.credentialsReq,
		validation.Field(&r.Email, validator.EmailRules()...),
		validation.Field(&r.Password, validator.PasswordRules()...),
	)
}

type loginReq struct {
	credentialsReq
}

// Validate only checks presence; a wrong password is a 401, not a 400.
func (r loginReq) Validate() error {
	return validation.ValidateStruct(&r.credentialsReq,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// changingReq carries the new email, the new password, or both.
type changingReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r changingReq) Validate() error {
	if r.Email == "" && r.Password == "" {
		return validation.Errors{"email": validation.NewError("validation_required_any", "email or password is required")}
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.When(r.Email != "", validator.EmailRules()...)),
		validation.Field(&r.Password, validation.When(r.Password != "", validator.PasswordRules()...)),
	)
}

type historyReq struct {
	types.PageQuery
}

type emptyReq struct{}

type userResp struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
