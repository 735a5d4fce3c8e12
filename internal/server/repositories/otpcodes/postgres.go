package otpcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, code *models.OTPCode) error {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO otp_codes (id, user_id, code, type, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		code.ID, code.UserID, code.Code, string(code.Type), code.ExpiresAt,
	).Scan(&code.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteForUser(ctx context.Context, userID string, otpType models.OTPType) (int64, error) {
	query := `DELETE FROM otp_codes WHERE user_id = $1 AND type = $2`

	res, err := r.db.ExecContext(ctx, query, userID, string(otpType))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Consume(ctx context.Context, userID, code string, otpType models.OTPType) (*models.OTPCode, error) {
	query :=
		`DELETE FROM otp_codes
		 WHERE id = (
		     SELECT id FROM otp_codes
		     WHERE user_id = $1 AND code = $2 AND type = $3
		     ORDER BY created_at DESC
		     LIMIT 1
		     FOR UPDATE
		 )
		 RETURNING id, expires_at, created_at
		 `

	c := &models.OTPCode{UserID: userID, Code: code, Type: otpType}
	err := r.db.QueryRowContext(ctx, query, userID, code, string(otpType)).
		Scan(&c.ID, &c.ExpiresAt, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
