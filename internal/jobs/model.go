// Package jobs talks to the remote enhancement service: submit an image,
// poll the job until it settles and fetch the result.
package jobs

import (
	"encoding/json"

	"upscale-bot/internal/tier"
)

// State is a job's lifecycle position.
type State string

const (
	StateSubmitted State = "submitted"
	StateWaiting   State = "waiting"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateTimedOut
}

// DefaultMaxAttempts bounds the number of status checks per job.
const DefaultMaxAttempts = 20

// Handle identifies a remote job. Code is kept as the raw JSON the service
// returned so it can be echoed back verbatim.
type Handle struct {
	Code json.RawMessage
	Type string
}

// String renders the handle for logs.
func (h Handle) String() string {
	return rawString(h.Code) + "/" + h.Type
}

// Job is the in-memory view of one remote enhancement job.
type Job struct {
	Handle      Handle
	Tier        tier.Tier
	State       State
	Attempt     int
	MaxAttempts int
	ResultRef   string
	Reason      string
}

// Status is what a single status check observed.
type Status int

const (
	StatusWaiting Status = iota
	StatusSuccess
	StatusFailure
)

// Observation is the outcome of one status check.
type Observation struct {
	Status    Status
	ResultRef string
	Reason    string
}

// Result is a fetched output image.
type Result struct {
	Bytes       []byte
	ContentType string
	URL         string
}
