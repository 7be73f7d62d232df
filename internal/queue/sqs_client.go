package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// kindAttribute lets queue consumers filter by event kind without decoding bodies.
const kindAttribute = "kind"

type sqsSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient publishes usage messages to an SQS queue. FIFO queues are grouped
// per user and deduplicated by event id.
type SQSClient struct {
	client   sqsSender
	queueURL string
	fifo     bool
}

// NewSQSClient loads the default AWS config, optionally pinned to region.
func NewSQSClient(ctx context.Context, region, queueURL string) (*SQSClient, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, errors.New("USAGE_SQS_QUEUE_URL is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region = strings.TrimSpace(region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSQSClient(sqs.NewFromConfig(cfg), queueURL), nil
}

func newSQSClient(client sqsSender, queueURL string) *SQSClient {
	return &SQSClient{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

// Send publishes msg.
func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode usage message: %w", err)
	}

	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			kindAttribute: {DataType: aws.String("String"), StringValue: aws.String(msg.Kind)},
		},
	}
	if s.fifo {
		in.MessageGroupId = aws.String(msg.UserID)
		in.MessageDeduplicationId = aws.String(msg.EventID)
	}
	if _, err := s.client.SendMessage(ctx, in); err != nil {
		return fmt.Errorf("sqs send usage %s: %w", msg.EventID, err)
	}
	return nil
}

var _ Client = (*SQSClient)(nil)
