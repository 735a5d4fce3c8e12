package attachments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taskflow/internal/common"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+task_attachments`).
		WithArgs(sqlmock.AnyArg(), "t-1", "u-1", "tasks/t-1/k", "a.pdf", "application/pdf").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	got, err := repo.Create(context.Background(), &models.Attachment{
		TaskID: "t-1", UserID: "u-1", StorageKey: "tasks/t-1/k", FileName: "a.pdf", ContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestCreate_TaskGone(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+task_attachments`).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := repo.Create(context.Background(), &models.Attachment{TaskID: "t-gone", UserID: "u-1"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+task_attachments`).WillReturnError(errors.New("down"))

	_, err := repo.Create(context.Background(), &models.Attachment{TaskID: "t-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestListByTask(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+task_attachments\s+WHERE\s+task_id\s*=\s*\$1`).
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "user_id", "storage_key", "file_name", "content_type", "created_at"}).
			AddRow("a-1", "t-1", "u-1", "k1", "one.txt", "text/plain", now).
			AddRow("a-2", "t-1", "u-1", "k2", "two.png", "image/png", now))

	got, err := repo.ListByTask(context.Background(), "t-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "k2", got[1].StorageKey)
}
