package models

import "time"

// OTPType is the purpose an OTP code was issued for.
type OTPType string

const (
	OTPEmailVerification OTPType = "email_verification"
	OTPResetPassword     OTPType = "reset_password"
)

// Valid reports whether t is a known purpose.
func (t OTPType) Valid() bool {
	return t == OTPEmailVerification || t == OTPResetPassword
}

// OTPCode is a single-use code tied to a user and a purpose.
type OTPCode struct {
	ID        string
	UserID    string
	Code      string
	Type      OTPType
	ExpiresAt time.Time
	CreatedAt time.Time
}
