package workflow

import (
	"context"
	"errors"
	"fmt"

	"upscale-bot/internal/jobs"
)

// DeliveryError means the result could not be handed to the transport.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver result: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// SourceError means the user's image could not be downloaded or staged.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("download source image: %v", e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// errPanic marks a run that ended in a recovered panic.
var errPanic = errors.New("unexpected internal error")

// userReason is the failure text shown after "Failed to process image:".
func userReason(err error) string {
	var (
		submission *jobs.SubmissionError
		transport  *jobs.PollTransportError
		remote     *jobs.RemoteFailure
		fetch      *jobs.FetchError
		delivery   *DeliveryError
		source     *SourceError
	)
	switch {
	case errors.As(err, &submission):
		return "the upscaler rejected the upload"
	case errors.As(err, &transport):
		return "status check failed"
	case errors.As(err, &remote):
		return "the upscaler could not process this image"
	case errors.Is(err, jobs.ErrTimeoutExceeded):
		return "upscale timed out"
	case errors.As(err, &fetch):
		return "could not download the result"
	case errors.As(err, &delivery):
		return "could not send the result"
	case errors.As(err, &source):
		return "could not download your image"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "processing was interrupted"
	default:
		return "unexpected error"
	}
}

// outcome is the metrics label for a finished run.
func outcome(err error) string {
	switch {
	case err == nil:
		return "done"
	case errors.Is(err, jobs.ErrTimeoutExceeded):
		return "timeout"
	default:
		return "failed"
	}
}
