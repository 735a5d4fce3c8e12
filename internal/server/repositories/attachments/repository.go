// Package attachments stores metadata for files attached to tasks. File
// contents live in object storage under Attachment.StorageKey.
package attachments

import (
	"context"

	"github.com/dmitrijs2005/taskflow/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error)
	ListByTask(ctx context.Context, taskID string) ([]*models.Attachment, error)
}
