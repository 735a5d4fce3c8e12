package authtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskflow/internal/common"
	"github.com/dmitrijs2005/taskflow/internal/dbx"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.AuthToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO auth_tokens (id, user_id, access_token, refresh_token, provider, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		token.ID, token.UserID, token.AccessToken, token.RefreshToken, token.Provider, token.ExpiresAt,
	).Scan(&token.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Latest(ctx context.Context, userID, provider string) (*models.AuthToken, error) {
	query :=
		`SELECT id, user_id, access_token, refresh_token, provider, expires_at, created_at
		 FROM auth_tokens
		 WHERE user_id = $1 AND provider = $2
		 ORDER BY created_at DESC
		 LIMIT 1
		 `

	t := &models.AuthToken{}
	err := r.db.QueryRowContext(ctx, query, userID, provider).
		Scan(&t.ID, &t.UserID, &t.AccessToken, &t.RefreshToken, &t.Provider, &t.ExpiresAt, &t.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
