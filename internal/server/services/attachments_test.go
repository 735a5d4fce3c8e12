package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/dmitrijs2005/taskflow/internal/server/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	putErr error
	getErr error
	keys   []string
}

func (s *fakeStorage) PresignPut(_ context.Context, key, contentType string) (string, time.Time, error) {
	if s.putErr != nil {
		return "", time.Time{}, s.putErr
	}
	s.keys = append(s.keys, key)
	return "https://bucket.example/put/" + key + "?ct=" + contentType, time.Now().Add(time.Minute), nil
}

func (s *fakeStorage) PresignGet(_ context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	return "https://bucket.example/get/" + key, nil
}

func TestAttachmentService_CreateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedUser(t, "a@example.com", true)
	other := f.seedUser(t, "b@example.com", true)
	task, err := f.tasks.Create(ctx, owner.ID, validation.CreateTaskCommand{Title: "T", Status: models.TaskPending})
	require.NoError(t, err)

	store := &fakeStorage{}
	svc := NewAttachmentService(f.db, f.rm, store, logging.Nop{})
	cmd := validation.CreateAttachmentCommand{FileName: "notes.txt", ContentType: "text/plain"}

	_, err = svc.Create(ctx, other.ID, task.ID, cmd)
	requireKind(t, err, apperr.KindForbidden)

	up, err := svc.Create(ctx, owner.ID, task.ID, cmd)
	require.NoError(t, err)
	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasPrefix(store.keys[0], "users/"+owner.ID+"/tasks/"+task.ID+"/"))
	assert.Contains(t, up.URL, "/put/")
	assert.Equal(t, "notes.txt", up.Attachment.FileName)

	list, err := svc.List(ctx, owner.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://bucket.example/get/"+store.keys[0], list[0].URL)

	_, err = svc.List(ctx, other.ID, task.ID)
	requireKind(t, err, apperr.KindForbidden)
}

func TestAttachmentService_StorageErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedUser(t, "a@example.com", true)
	task, err := f.tasks.Create(ctx, owner.ID, validation.CreateTaskCommand{Title: "T", Status: models.TaskPending})
	require.NoError(t, err)
	cmd := validation.CreateAttachmentCommand{FileName: "a.bin", ContentType: "application/octet-stream"}

	disabled := NewAttachmentService(f.db, f.rm, nil, logging.Nop{})
	_, err = disabled.Create(ctx, owner.ID, task.ID, cmd)
	requireKind(t, err, apperr.KindUnavailable)

	failing := NewAttachmentService(f.db, f.rm, &fakeStorage{putErr: errors.New("s3 down")}, logging.Nop{})
	_, err = failing.Create(ctx, owner.ID, task.ID, cmd)
	requireKind(t, err, apperr.KindUnavailable)

	store := &fakeStorage{}
	svc := NewAttachmentService(f.db, f.rm, store, logging.Nop{})
	_, err = svc.Create(ctx, owner.ID, task.ID, cmd)
	require.NoError(t, err)
	store.getErr = errors.New("s3 down")
	_, err = svc.List(ctx, owner.ID, task.ID)
	requireKind(t, err, apperr.KindUnavailable)
}
