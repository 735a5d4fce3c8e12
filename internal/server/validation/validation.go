// Package validation turns decoded request bodies into checked commands.
// Services accept only commands whose Validate method returned nil.
package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
)

const (
	minPasswordLen = 8
	// bcrypt ignores everything after 72 bytes.
	maxPasswordBytes = 72
	maxUsernameLen   = 64
	maxTitleLen      = 200
	maxDescLen       = 5000
	maxFileNameLen   = 255
)

// Errors collects per-field messages.
type Errors map[string]string

func (e Errors) add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// result converts collected field errors into an apperr validation error.
func (e Errors) result() error {
	if len(e) == 0 {
		return nil
	}
	return apperr.Validation("validation failed", e)
}

func checkEmail(errs Errors, field, email string) {
	if email == "" {
		errs.add(field, "is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs.add(field, "must be a valid email address")
	}
}

func checkPassword(errs Errors, field, password string) {
	switch {
	case password == "":
		errs.add(field, "is required")
	case utf8.RuneCountInString(password) < minPasswordLen:
		errs.add(field, "must be at least 8 characters")
	case len(password) > maxPasswordBytes:
		errs.add(field, "must be at most 72 bytes")
	}
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
