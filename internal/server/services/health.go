package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
)

// HealthService reports whether the backing database answers.
type HealthService struct {
	db      *sql.DB
	timeout time.Duration
}

func NewHealthService(db *sql.DB) *HealthService {
	return &HealthService{db: db, timeout: 2 * time.Second}
}

func (s *HealthService) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return apperr.Unavailable("database unavailable", err)
	}
	return nil
}
