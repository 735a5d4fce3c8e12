package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskflow/internal/server/storage"
	"github.com/dmitrijs2005/taskflow/internal/server/validation"
)

// ObjectStorage issues presigned URLs for attachment bodies.
type ObjectStorage interface {
	PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// AttachmentService manages files attached to tasks. Clients upload and
// download bytes directly against object storage with presigned URLs.
type AttachmentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     ObjectStorage
	logger      logging.Logger
}

// NewAttachmentService returns a service; a nil store disables attachments.
func NewAttachmentService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStorage, l logging.Logger) *AttachmentService {
	return &AttachmentService{db: db, repomanager: m, storage: store, logger: l.With("module", "attachments")}
}

func (s *AttachmentService) enabled() error {
	if s.storage == nil {
		return apperr.Unavailable("attachment storage is not configured", nil)
	}
	return nil
}

// Create registers an attachment on a task the caller owns and returns a
// URL the client PUTs the file to.
func (s *AttachmentService) Create(ctx context.Context, userID, taskID string, cmd validation.CreateAttachmentCommand) (*models.AttachmentUpload, error) {
	if err := s.enabled(); err != nil {
		return nil, err
	}
	if _, err := loadOwned(ctx, s.repomanager.Tasks(s.db), userID, taskID); err != nil {
		return nil, err
	}

	key := storage.NewKey(userID, taskID)
	url, expires, err := s.storage.PresignPut(ctx, key, cmd.ContentType)
	if err != nil {
		return nil, apperr.Unavailable("could not prepare upload", err)
	}

	a, err := s.repomanager.Attachments(s.db).Create(ctx, &models.Attachment{
		TaskID:      taskID,
		UserID:      userID,
		StorageKey:  key,
		FileName:    cmd.FileName,
		ContentType: cmd.ContentType,
	})
	if err != nil {
		return nil, repoErr(err, "task not found")
	}

	s.logger.Info(ctx, "attachment registered", "attachment_id", a.ID, "task_id", taskID)
	return &models.AttachmentUpload{Attachment: a, URL: url, ExpiresAt: expires}, nil
}

// List returns the task's attachments, each with a fresh download URL.
func (s *AttachmentService) List(ctx context.Context, userID, taskID string) ([]models.AttachmentDownload, error) {
	if err := s.enabled(); err != nil {
		return nil, err
	}
	if _, err := loadOwned(ctx, s.repomanager.Tasks(s.db), userID, taskID); err != nil {
		return nil, err
	}

	list, err := s.repomanager.Attachments(s.db).ListByTask(ctx, taskID)
	if err != nil {
		return nil, repoErr(err, "")
	}

	out := make([]models.AttachmentDownload, 0, len(list))
	for _, a := range list {
		url, err := s.storage.PresignGet(ctx, a.StorageKey)
		if err != nil {
			return nil, apperr.Unavailable("could not prepare download", err)
		}
		out = append(out, models.AttachmentDownload{Attachment: a, URL: url})
	}
	return out, nil
}
