package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/common"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskflow/internal/server/repositories/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ repomanager.RepositoryManager = (*RepositoryManager)(nil)

func TestUsers_UniqueEmail(t *testing.T) {
	m := NewRepositoryManager()
	ctx := context.Background()

	_, err := m.Users(nil).Create(ctx, &models.User{Email: "a@b.co"})
	require.NoError(t, err)
	_, err = m.Users(nil).Create(ctx, &models.User{Email: "a@b.co"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestOTP_ConsumeOnce(t *testing.T) {
	m := NewRepositoryManager()
	ctx := context.Background()

	u, err := m.Users(nil).Create(ctx, &models.User{Email: "a@b.co"})
	require.NoError(t, err)
	require.NoError(t, m.OTPCodes(nil).Create(ctx, &models.OTPCode{
		UserID: u.ID, Code: "111111", Type: models.OTPEmailVerification, ExpiresAt: time.Now().Add(time.Minute),
	}))

	_, err = m.OTPCodes(nil).Consume(ctx, u.ID, "111111", models.OTPResetPassword)
	assert.ErrorIs(t, err, common.ErrorNotFound, "purpose must match")

	c, err := m.OTPCodes(nil).Consume(ctx, u.ID, "111111", models.OTPEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, "111111", c.Code)

	_, err = m.OTPCodes(nil).Consume(ctx, u.ID, "111111", models.OTPEmailVerification)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUsers_DeleteCascades(t *testing.T) {
	m := NewRepositoryManager()
	ctx := context.Background()

	u, err := m.Users(nil).Create(ctx, &models.User{Email: "a@b.co"})
	require.NoError(t, err)
	task, err := m.Tasks(nil).Create(ctx, &models.Task{UserID: u.ID, Title: "T"})
	require.NoError(t, err)

	require.NoError(t, m.Users(nil).Delete(ctx, u.ID))
	_, err = m.Tasks(nil).GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTasks_ListFilterAndPage(t *testing.T) {
	m := NewRepositoryManager()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		status := models.TaskPending
		if i%2 == 0 {
			status = models.TaskCompleted
		}
		_, err := m.Tasks(nil).Create(ctx, &models.Task{UserID: "u-1", Title: "T", Status: status})
		require.NoError(t, err)
	}
	_, err := m.Tasks(nil).Create(ctx, &models.Task{UserID: "u-2", Title: "other"})
	require.NoError(t, err)

	all, err := m.Tasks(nil).ListByUser(ctx, "u-1", tasks.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	done, err := m.Tasks(nil).ListByUser(ctx, "u-1", tasks.Filter{Status: models.TaskCompleted})
	require.NoError(t, err)
	assert.Len(t, done, 3)

	paged, err := m.Tasks(nil).ListByUser(ctx, "u-1", tasks.Filter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, paged, 1)

	counts, err := m.Tasks(nil).CountByStatus(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[0].Count)
	assert.Equal(t, int64(3), counts[2].Count)
}
