// internal/delivery/queue.go
//
// SQS backend.  Each submission becomes one JSON message.  FIFO queues
// (URL ending in `.fifo`) get a single message group so submissions stay
// ordered, and the submission ID doubles as the deduplication ID so a
// retried send inside the five-minute window is dropped by SQS.
//
// Client construction follows the usual LocalStack pattern: when an
// endpoint is configured we pin static dummy credentials and point the
// service client at it.

package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/yanizio/serenity/internal/contact"
)

// fifoGroup is the MessageGroupId used for FIFO queues.
const fifoGroup = "contact"

// SQSSender is the subset of *sqs.Client the queue backend needs.
type SQSSender interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Queue publishes submissions to one SQS queue.
type Queue struct {
	SQS      SQSSender
	QueueURL string
}

func (q *Queue) Name() string { return "queue" }

// Deliver implements contact.Transport.
func (q *Queue) Deliver(ctx context.Context, sub contact.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return err
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.QueueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String("contact.submission")},
		},
	}
	if strings.HasSuffix(q.QueueURL, ".fifo") {
		in.MessageGroupId = aws.String(fifoGroup)
		in.MessageDeduplicationId = aws.String(sub.ID)
	}

	if _, err := q.SQS.SendMessage(ctx, in); err != nil {
		return fmt.Errorf("sqs send %s: %w", sub.ID, err)
	}
	return nil
}

// NewSQSClient loads the default AWS config for region.  A non-empty
// endpoint (LocalStack, e.g. http://localhost:4566) switches to static test
// credentials and overrides the service base endpoint.
func NewSQSClient(ctx context.Context, region, endpoint string) (*sqs.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if endpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	if endpoint != "" {
		return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		}), nil
	}
	return sqs.NewFromConfig(cfg), nil
}
