package validation

import (
	"github.com/dmitrijs2005/taskflow/internal/common"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
)

type SignupCommand struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate normalizes the command in place and reports field errors.
func (c *SignupCommand) Validate() error {
	c.Username = trim(c.Username)
	c.Email = common.NormalizeEmail(c.Email)

	errs := Errors{}
	switch {
	case c.Username == "":
		errs.add("username", "is required")
	case tooLong(c.Username, maxUsernameLen):
		errs.add("username", "is too long")
	}
	checkEmail(errs, "email", c.Email)
	checkPassword(errs, "password", c.Password)
	return errs.result()
}

type LoginCommand struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *LoginCommand) Validate() error {
	c.Email = common.NormalizeEmail(c.Email)

	errs := Errors{}
	checkEmail(errs, "email", c.Email)
	if c.Password == "" {
		errs.add("password", "is required")
	}
	return errs.result()
}

type SendOTPCommand struct {
	Email string         `json:"email"`
	Type  models.OTPType `json:"type"`
}

func (c *SendOTPCommand) Validate() error {
	c.Email = common.NormalizeEmail(c.Email)

	errs := Errors{}
	checkEmail(errs, "email", c.Email)
	if !c.Type.Valid() {
		errs.add("type", "must be email_verification or reset_password")
	}
	return errs.result()
}

type ConfirmOTPCommand struct {
	Email       string         `json:"email"`
	OTP         string         `json:"otp"`
	Type        models.OTPType `json:"type"`
	NewPassword string         `json:"newPassword,omitempty"`
}

func (c *ConfirmOTPCommand) Validate() error {
	c.Email = common.NormalizeEmail(c.Email)
	c.OTP = trim(c.OTP)

	errs := Errors{}
	checkEmail(errs, "email", c.Email)
	if c.OTP == "" {
		errs.add("otp", "is required")
	}
	if !c.Type.Valid() {
		errs.add("type", "must be email_verification or reset_password")
	}
	if c.Type == models.OTPResetPassword {
		checkPassword(errs, "newPassword", c.NewPassword)
	}
	return errs.result()
}

type OAuthCallbackCommand struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

func (c *OAuthCallbackCommand) Validate() error {
	c.Code = trim(c.Code)
	c.State = trim(c.State)

	errs := Errors{}
	if c.Code == "" {
		errs.add("code", "is required")
	}
	if c.State == "" {
		errs.add("state", "is required")
	}
	return errs.result()
}

type UpdateUserCommand struct {
	Username string `json:"username"`
}

func (c *UpdateUserCommand) Validate() error {
	c.Username = trim(c.Username)

	errs := Errors{}
	switch {
	case c.Username == "":
		errs.add("username", "is required")
	case tooLong(c.Username, maxUsernameLen):
		errs.add("username", "is too long")
	}
	return errs.result()
}
