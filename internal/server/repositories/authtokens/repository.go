// Package authtokens stores OAuth credentials obtained from external providers.
package authtokens

import (
	"context"

	"github.com/dmitrijs2005/taskflow/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.AuthToken) error
	// Latest returns the most recently stored token for a user and provider.
	Latest(ctx context.Context, userID, provider string) (*models.AuthToken, error)
}
