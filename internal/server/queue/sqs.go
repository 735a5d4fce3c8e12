package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the subset of *sqs.Client used by SQSPublisher.
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, in *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends messages to a queue looked up by name. The URL is
// resolved on first use and cached.
type SQSPublisher struct {
	client    SQSAPI
	queueName string

	mu       sync.Mutex
	queueURL string
}

func NewSQSPublisher(client SQSAPI, queueName string) *SQSPublisher {
	return &SQSPublisher{client: client, queueName: queueName}
}

func NewSQSPublisherFromConfig(cfg aws.Config, queueName string) *SQSPublisher {
	return NewSQSPublisher(sqs.NewFromConfig(cfg), queueName)
}

func (p *SQSPublisher) url(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queueURL != "" {
		return p.queueURL, nil
	}
	out, err := p.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(p.queueName)})
	if err != nil {
		return "", fmt.Errorf("resolve queue %q: %w", p.queueName, err)
	}
	p.queueURL = aws.ToString(out.QueueUrl)
	return p.queueURL, nil
}

func (p *SQSPublisher) PublishOTP(ctx context.Context, msg OTPMessage) error {
	url, err := p.url(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(string(body)),
	}
	// SQS rejects empty attribute values.
	if msg.Type != "" {
		in.MessageAttributes = map[string]types.MessageAttributeValue{
			"type": {DataType: aws.String("String"), StringValue: aws.String(msg.Type)},
		}
	}

	_, err = p.client.SendMessage(ctx, in)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
