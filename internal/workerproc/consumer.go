package workerproc

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"upscale-bot/internal/shared/metrics"
	"upscale-bot/internal/shared/telemetry"
	"upscale-bot/internal/usage"
)

const receiveCountAttr = "ApproximateReceiveCount"

// ErrDrainTimeout is returned by Run when in-flight messages outlive the grace period.
var ErrDrainTimeout = errors.New("in-flight usage messages still running after grace period")

// SQSAPI is the subset of the SQS client used by Consumer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls the usage queue and persists each event into Sink.
type Consumer struct {
	Client      SQSAPI
	QueueURL    string
	Sink        usage.Sink
	Concurrency int
	Visibility  time.Duration
	WaitTime    time.Duration
	RetryDelay  time.Duration
}

// Run receives until ctx is done, then waits up to grace for handlers still
// running. Handlers are detached from ctx and bounded by the visibility
// timeout instead, so a shutdown does not abort half-written events.
func (c *Consumer) Run(ctx context.Context, grace time.Duration) error {
	var g errgroup.Group
	g.SetLimit(max(1, c.Concurrency))
	work := context.WithoutCancel(ctx)

	telemetry.Info("worker.started", map[string]any{
		"queue":       c.QueueURL,
		"concurrency": max(1, c.Concurrency),
		"visibility":  c.visibility().String(),
	})

	for ctx.Err() == nil {
		msgs, err := c.receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			telemetry.Error("worker.usage.receive_failed", map[string]any{"error": err})
			c.pause(ctx)
			continue
		}
		for _, m := range msgs {
			metrics.IncUsageQueueMessage("received")
			m := m
			g.Go(func() error {
				hctx, cancel := context.WithTimeout(work, c.visibility())
				defer cancel()
				c.Handle(hctx, m)
				return nil
			})
		}
	}

	telemetry.Info("worker.draining", map[string]any{"grace": grace.String()})
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(grace):
		return ErrDrainTimeout
	}
}

func (c *Consumer) receive(ctx context.Context) ([]sqstypes.Message, error) {
	wait := c.WaitTime
	if wait <= 0 {
		wait = 20 * time.Second
	}
	out, err := c.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.QueueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     int32(wait / time.Second),
		VisibilityTimeout:   int32(c.visibility() / time.Second),
		AttributeNames:      []sqstypes.QueueAttributeName{receiveCountAttr},
	})
	if err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Consumer) pause(ctx context.Context) {
	delay := c.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *Consumer) visibility() time.Duration {
	if c.Visibility <= 0 {
		return time.Minute
	}
	return c.Visibility
}

// Handle stores one usage event. The message is deleted once stored or when
// it can never be stored. Store failures leave it for redelivery.
func (c *Consumer) Handle(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	evt, err := HandleMessage(ctx, c.Sink, body)
	fields := messageFields(msg, evt.ID)
	if err != nil {
		meta := ComputeMeta(body)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err
		if !Unrecoverable(err) {
			telemetry.Error("worker.usage.failed", fields)
			metrics.IncUsageQueueMessage("failed")
			return
		}
		telemetry.Error("worker.usage.unrecoverable", fields)
		if c.delete(ctx, msg, fields) {
			metrics.IncUsageQueueMessage("unrecoverable")
		}
		return
	}

	fields["kind"] = string(evt.Kind)
	if c.delete(ctx, msg, fields) {
		telemetry.Info("worker.usage.stored", fields)
		metrics.IncUsageQueueMessage("stored")
	}
}

func (c *Consumer) delete(ctx context.Context, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields["delete_error"] = "missing receipt handle"
		telemetry.Error("worker.usage.delete_failed", fields)
		return false
	}
	_, err := c.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.QueueURL),
		ReceiptHandle: aws.String(receipt),
	})
	if err != nil {
		fields["delete_error"] = err
		telemetry.Error("worker.usage.delete_failed", fields)
		return false
	}
	return true
}

func messageFields(msg sqstypes.Message, eventID string) map[string]any {
	fields := map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if eventID != "" {
		fields["event_id"] = eventID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	n, err := strconv.Atoi(msg.Attributes[receiveCountAttr])
	if err != nil {
		return 0
	}
	return n
}
