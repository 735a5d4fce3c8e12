package mailer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendSES, cfg.Backend)
	assert.Equal(t, "otp-email-queue", cfg.QueueName)
	assert.Equal(t, 20*time.Second, cfg.WaitTime)
	assert.EqualValues(t, 10, cfg.MaxMessages)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("MAILER_BACKEND", "smtp")
	t.Setenv("MAILER_SMTP_HOST", "mail.local")
	t.Setenv("MAILER_WAIT_TIME", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendSMTP, cfg.Backend)
	assert.Equal(t, "mail.local", cfg.SMTPHost)
	assert.Equal(t, 5*time.Second, cfg.WaitTime)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Backend = BackendSMTP
	assert.Error(t, cfg.Validate())

	cfg.Backend = "pigeon"
	assert.Error(t, cfg.Validate())

	cfg.Backend = BackendLog
	cfg.MaxMessages = 11
	assert.Error(t, cfg.Validate())

	cfg.MaxMessages = 1
	cfg.WaitTime = time.Minute
	assert.Error(t, cfg.Validate())
}
