package jobs

import (
	"context"

	"upscale-bot/internal/tier"
)

// Client is the remote job API.
type Client interface {
	// Submit uploads an image and returns a job in StateSubmitted.
	Submit(ctx context.Context, image []byte, t tier.Tier) (Job, error)
	// Poll performs exactly one status check and advances the job.
	Poll(ctx context.Context, job Job) (Job, error)
	// Fetch downloads a result reference.
	Fetch(ctx context.Context, resultRef string) (Result, error)
}
