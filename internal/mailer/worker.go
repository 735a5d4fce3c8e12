package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/dmitrijs2005/taskflow/internal/server/queue"
	"github.com/sethvargo/go-retry"
)

const (
	defaultSubject = "Your TaskFlow verification code"
	defaultBody    = "You requested a verification code from TaskFlow."
)

// errorBackoff is the pause after a failed receive.
var errorBackoff = 5 * time.Second

// SQSAPI is the subset of *sqs.Client used by Worker.
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, in *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Worker long-polls the OTP queue. A message is deleted once it is sent or
// found to be undeliverable; send failures leave it for redelivery after the
// visibility timeout.
type Worker struct {
	client            SQSAPI
	sender            Sender
	queueName         string
	waitTime          time.Duration
	maxMessages       int32
	visibilityTimeout time.Duration
	logger            logging.Logger
}

func NewWorker(client SQSAPI, sender Sender, cfg *Config, l logging.Logger) *Worker {
	return &Worker{
		client:            client,
		sender:            sender,
		queueName:         cfg.QueueName,
		waitTime:          cfg.WaitTime,
		maxMessages:       cfg.MaxMessages,
		visibilityTimeout: cfg.VisibilityTimeout,
		logger:            l.With("module", "mail_worker"),
	}
}

// resolveQueue looks the queue URL up, retrying while the queue service
// comes up.
func (w *Worker) resolveQueue(ctx context.Context) (string, error) {
	var url string
	b := retry.WithMaxRetries(10, retry.WithCappedDuration(10*time.Second, retry.NewExponential(500*time.Millisecond)))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		out, err := w.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(w.queueName)})
		if err != nil {
			w.logger.Warn(ctx, "queue lookup failed", "queue", w.queueName, "error", err)
			return retry.RetryableError(err)
		}
		url = aws.ToString(out.QueueUrl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("resolve queue %q: %w", w.queueName, err)
	}
	return url, nil
}

// Run processes messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	url, err := w.resolveQueue(ctx)
	if err != nil {
		return err
	}
	w.logger.Info(ctx, "Starting mail worker", "queue", w.queueName)

	for {
		if ctx.Err() != nil {
			w.logger.Info(ctx, "Stopping mail worker...")
			return nil
		}

		if _, err := w.Poll(ctx, url); err != nil && ctx.Err() == nil {
			w.logger.Error(ctx, "receive failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
		}
	}
}

// Poll receives one batch and handles every message in it. It returns the
// number of messages deleted from the queue.
func (w *Worker) Poll(ctx context.Context, url string) (int, error) {
	out, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(url),
		MaxNumberOfMessages: w.maxMessages,
		WaitTimeSeconds:     int32(w.waitTime / time.Second),
		VisibilityTimeout:   int32(w.visibilityTimeout / time.Second),
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, m := range out.Messages {
		if !w.handle(ctx, m) {
			continue
		}
		if _, err := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(url),
			ReceiptHandle: m.ReceiptHandle,
		}); err != nil {
			w.logger.Error(ctx, "delete failed", "message_id", aws.ToString(m.MessageId), "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// handle reports whether the message is done with and may be deleted.
func (w *Worker) handle(ctx context.Context, m types.Message) bool {
	id := aws.ToString(m.MessageId)

	var msg queue.OTPMessage
	if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &msg); err != nil {
		w.logger.Warn(ctx, "dropping malformed message", "message_id", id, "error", err)
		return true
	}
	if msg.Email == "" {
		w.logger.Warn(ctx, "dropping message without email", "message_id", id)
		return true
	}
	if msg.Subject == "" {
		msg.Subject = defaultSubject
	}
	if msg.Message == "" {
		msg.Message = defaultBody
	}

	if err := w.sender.Send(ctx, msg.Email, msg.Subject, msg.Message); err != nil {
		w.logger.Error(ctx, "send failed", "message_id", id, "type", msg.Type, "error", err)
		return false
	}
	w.logger.Info(ctx, "email sent", "message_id", id, "type", msg.Type)
	return true
}
