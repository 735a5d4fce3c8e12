// Package queue publishes OTP delivery requests for the mail worker.
package queue

import (
	"context"

	"github.com/dmitrijs2005/taskflow/internal/logging"
)

// OTPMessage is the JSON body placed on the OTP queue. The mail worker
// expects exactly these keys.
type OTPMessage struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

type Publisher interface {
	PublishOTP(ctx context.Context, msg OTPMessage) error
}

// LogPublisher writes messages to the log instead of a queue. It is meant
// for local development without AWS.
type LogPublisher struct {
	logger logging.Logger
}

func NewLogPublisher(l logging.Logger) *LogPublisher {
	return &LogPublisher{logger: l.With("module", "queue")}
}

func (p *LogPublisher) PublishOTP(ctx context.Context, msg OTPMessage) error {
	p.logger.Info(ctx, "otp message", "email", msg.Email, "subject", msg.Subject, "type", msg.Type, "body", msg.Message)
	return nil
}
