package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upscale-bot/internal/usage"
)

type fakeSender struct {
	bodies []string
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSender) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func TestPublisherSendsEvent(t *testing.T) {
	sender := &fakeSender{}
	pub := NewPublisher(newSQSClient(sender, "q"))
	at := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	pub.Now = func() time.Time { return at.Add(time.Second) }

	evt := usage.Event{ID: "e1", UserID: "7", Kind: usage.KindUpscaleSuccess, Tier: "elite", At: at}
	require.NoError(t, pub.Store(context.Background(), evt))
	require.Len(t, sender.bodies, 1)

	msg, err := DecodeMessage([]byte(sender.bodies[0]))
	require.NoError(t, err)
	assert.Equal(t, MessageVersion, msg.Version)
	assert.Equal(t, "2026-03-01T10:00:01Z", msg.EnqueuedAt)

	back, err := ToEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, evt, back)
}

func TestPublisherRejectsInvalidAndPropagatesErrors(t *testing.T) {
	sender := &fakeSender{}
	pub := NewPublisher(newSQSClient(sender, "q"))
	assert.ErrorIs(t, pub.Store(context.Background(), usage.Event{ID: "x", Kind: usage.KindStart, At: time.Now()}), usage.ErrInvalidEvent)
	assert.Empty(t, sender.bodies)

	sender.err = errors.New("throttled")
	err := pub.Store(context.Background(), usage.Event{ID: "x", UserID: "1", Kind: usage.KindStart, At: time.Now()})
	assert.ErrorContains(t, err, "throttled")
}

func TestToEventRejectsBadTimestamp(t *testing.T) {
	_, err := ToEvent(Message{EventID: "e", UserID: "1", Kind: "start", OccurredAt: "yesterday"})
	assert.Error(t, err)
}

func TestSQSClientFIFOAttributes(t *testing.T) {
	evt := usage.Event{ID: "e9", UserID: "42", Kind: usage.KindTierChange, Tier: "pro", At: time.Now()}

	standard := &fakeSender{}
	require.NoError(t, NewPublisher(newSQSClient(standard, "https://sqs/usage")).Store(context.Background(), evt))
	require.Len(t, standard.inputs, 1)
	assert.Nil(t, standard.inputs[0].MessageGroupId)
	assert.Equal(t, "tier_change", aws.ToString(standard.inputs[0].MessageAttributes[kindAttribute].StringValue))

	fifo := &fakeSender{}
	require.NoError(t, NewPublisher(newSQSClient(fifo, "https://sqs/usage.fifo")).Store(context.Background(), evt))
	require.Len(t, fifo.inputs, 1)
	assert.Equal(t, "42", aws.ToString(fifo.inputs[0].MessageGroupId))
	assert.Equal(t, "e9", aws.ToString(fifo.inputs[0].MessageDeduplicationId))
}
