// Package otpcodes stores one-time verification codes.
package otpcodes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, code *models.OTPCode) error
	// DeleteForUser removes every outstanding code of the given type for a
	// user and reports how many were removed.
	DeleteForUser(ctx context.Context, userID string, otpType models.OTPType) (int64, error)
	// Consume deletes the matching code and returns it. Only one of several
	// concurrent callers can receive the row; the rest get common.ErrorNotFound.
	Consume(ctx context.Context, userID, code string, otpType models.OTPType) (*models.OTPCode, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
