package jobs

import (
	"errors"
	"fmt"
)

// ErrTimeoutExceeded is returned when a job is still waiting after the last allowed attempt.
var ErrTimeoutExceeded = errors.New("upscale timed out")

// SubmissionError means the remote service did not accept the image.
type SubmissionError struct {
	Body string
	Err  error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload failed: %v", e.Err)
	}
	return "upload failed: " + e.Body
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollTransportError is a status check that failed below the job level.
type PollTransportError struct {
	StatusCode int
	Err        error
}

func (e *PollTransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status check failed: %v", e.Err)
	}
	return fmt.Sprintf("status check failed: %d", e.StatusCode)
}

func (e *PollTransportError) Unwrap() error { return e.Err }

// RemoteFailure is a job the remote service reported as failed.
type RemoteFailure struct {
	Reason string
}

func (e *RemoteFailure) Error() string {
	return "remote failure: " + e.Reason
}

// FetchError means the result could not be downloaded.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download result failed: %v", e.Err)
	}
	return fmt.Sprintf("download result failed: %d", e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }
