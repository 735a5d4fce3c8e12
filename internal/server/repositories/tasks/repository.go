// Package tasks persists user-owned tasks.
package tasks

import (
	"context"

	"github.com/dmitrijs2005/taskflow/internal/server/models"
)

// Filter narrows ListByUser. A zero Status matches every status; a zero
// Limit means no limit.
type Filter struct {
	Status models.TaskStatus
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	ListByUser(ctx context.Context, userID string, f Filter) ([]*models.Task, error)
	// Update writes every mutable column of task and refreshes UpdatedAt.
	Update(ctx context.Context, task *models.Task) (*models.Task, error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, userID string) ([]models.TaskStatusCount, error)
}
