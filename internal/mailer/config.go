// Package mailer is the worker that drains the OTP queue and delivers the
// messages by SMTP or Amazon SES.
package mailer

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Delivery backends.
const (
	BackendSES  = "ses"
	BackendSMTP = "smtp"
	BackendLog  = "log"
)

type Config struct {
	LogLevel  string `env:"MAILER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"MAILER_LOG_FORMAT" envDefault:"text"`

	Backend string `env:"MAILER_BACKEND" envDefault:"ses"`
	From    string `env:"MAILER_FROM" envDefault:"no-reply@taskflow.local"`

	QueueName         string        `env:"TASKFLOW_QUEUE_NAME" envDefault:"otp-email-queue"`
	WaitTime          time.Duration `env:"MAILER_WAIT_TIME" envDefault:"20s"`
	MaxMessages       int32         `env:"MAILER_MAX_MESSAGES" envDefault:"10"`
	VisibilityTimeout time.Duration `env:"MAILER_VISIBILITY_TIMEOUT" envDefault:"60s"`

	AWSRegion          string `env:"TASKFLOW_AWS_REGION" envDefault:"ap-south-1"`
	AWSEndpoint        string `env:"TASKFLOW_AWS_ENDPOINT"`
	AWSAccessKeyID     string `env:"TASKFLOW_AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"TASKFLOW_AWS_SECRET_ACCESS_KEY"`
	SecretsName        string `env:"TASKFLOW_SECRETS_NAME"`

	SMTPHost     string `env:"MAILER_SMTP_HOST"`
	SMTPPort     int    `env:"MAILER_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"MAILER_SMTP_USERNAME"`
	SMTPPassword string `env:"MAILER_SMTP_PASSWORD"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendSES, BackendLog:
	case BackendSMTP:
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("smtp host is required for the smtp backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.From == "" {
		errs = append(errs, errors.New("from address is required"))
	}
	if c.QueueName == "" {
		errs = append(errs, errors.New("queue name is required"))
	}
	if c.MaxMessages < 1 || c.MaxMessages > 10 {
		errs = append(errs, fmt.Errorf("max messages %d out of range [1,10]", c.MaxMessages))
	}
	if c.WaitTime < 0 || c.WaitTime > 20*time.Second {
		errs = append(errs, errors.New("wait time must be between 0 and 20s"))
	}
	return errors.Join(errs...)
}
