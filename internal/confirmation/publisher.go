package confirmation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Publisher fans scheduled entries out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, entries []Entry) error
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends one message per entry to an SQS queue. The body is the
// entry's JSON; stage and clinic are copied into message attributes so
// consumers can filter without decoding.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
}

// NewSQSPublisher wraps an SQS client. It panics on a nil client or empty URL.
func NewSQSPublisher(client sqsAPI, queueURL string) *SQSPublisher {
	if client == nil {
		panic("confirmation: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("confirmation: SQS queueURL cannot be empty")
	}
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("confirmation: marshal entry: %w", err)
		}
		_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"stage":     {DataType: aws.String("String"), StringValue: aws.String(string(e.Stage))},
				"clinic_id": {DataType: aws.String("String"), StringValue: aws.String(e.ClinicID)},
			},
		})
		if err != nil {
			return fmt.Errorf("confirmation: failed to send SQS message: %w", err)
		}
	}
	return nil
}

// NopPublisher discards entries. Used when no queue is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, []Entry) error { return nil }
