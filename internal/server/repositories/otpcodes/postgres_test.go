package otpcodes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taskflow/internal/common"
	"github.com/dmitrijs2005/taskflow/internal/server/models"
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

	exp := time.Now().Add(10 * time.Minute)
	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+otp_codes\s*\(id,\s*user_id,\s*code,\s*type,\s*expires_at\)`).
		WithArgs(sqlmock.AnyArg(), "u-1", "123456", "email_verification", exp).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	c := &models.OTPCode{UserID: "u-1", Code: "123456", Type: models.OTPEmailVerification, ExpiresAt: exp}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.NotEmpty(t, c.ID)
	assert.True(t, c.CreatedAt.Equal(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteForUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+otp_codes\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+type\s*=\s*\$2$`).
		WithArgs("u-1", "reset_password").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteForUser(context.Background(), "u-1", models.OTPResetPassword)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestConsume_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	exp := time.Now().Add(time.Minute)
	mock.ExpectQuery(`(?s)^DELETE\s+FROM\s+otp_codes.*FOR\s+UPDATE.*RETURNING\s+id,\s*expires_at,\s*created_at$`).
		WithArgs("u-1", "123456", "email_verification").
		WillReturnRows(sqlmock.NewRows([]string{"id", "expires_at", "created_at"}).AddRow("c-1", exp, time.Now()))

	c, err := repo.Consume(context.Background(), "u-1", "123456", models.OTPEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ID)
	assert.True(t, c.ExpiresAt.Equal(exp))
	assert.Equal(t, models.OTPEmailVerification, c.Type)
}

func TestConsume_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^DELETE\s+FROM\s+otp_codes`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Consume(context.Background(), "u-1", "000000", models.OTPEmailVerification)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestConsume_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^DELETE\s+FROM\s+otp_codes`).
		WillReturnError(errors.New("conn reset"))

	_, err := repo.Consume(context.Background(), "u-1", "000000", models.OTPEmailVerification)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestDeleteExpired(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	cutoff := time.Now()
	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+otp_codes\s+WHERE\s+expires_at\s*<\s*\$1$`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}
