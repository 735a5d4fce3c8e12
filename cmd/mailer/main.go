package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/dmitrijs2005/taskflow/internal/mailer"
	"github.com/dmitrijs2005/taskflow/internal/server/awsx"
	"github.com/dmitrijs2005/taskflow/internal/server/secrets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := mailer.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	awsCfg, err := awsx.Load(ctx, awsx.Options{
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.AWSEndpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	})
	if err != nil {
		logger.Error(ctx, "aws config failed", "error", err)
		os.Exit(1)
	}

	if cfg.SecretsName != "" {
		v, err := secrets.NewLoaderFromConfig(awsCfg).Fetch(ctx, cfg.SecretsName)
		if err != nil {
			logger.Error(ctx, "secrets failed", "error", err)
			os.Exit(1)
		}
		if v.SMTPPassword != "" {
			cfg.SMTPPassword = v.SMTPPassword
		}
	}

	var sender mailer.Sender
	switch cfg.Backend {
	case mailer.BackendSMTP:
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.From)
	case mailer.BackendLog:
		sender = mailer.NewLogSender(logger)
	default:
		sender = mailer.NewSESSenderFromConfig(awsCfg, cfg.From)
	}

	w := mailer.NewWorker(sqs.NewFromConfig(awsCfg), sender, cfg, logger)
	if err := w.Run(ctx); err != nil {
		logger.Error(ctx, "mail worker failed", "error", err)
		os.Exit(1)
	}
}
