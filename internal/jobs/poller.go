package jobs

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"upscale-bot/internal/shared/metrics"
)

// DefaultInterval is the pause between status checks.
const DefaultInterval = 3 * time.Second

// Poller drives a submitted job to a terminal state.
type Poller struct {
	Client   Client
	Clock    clockwork.Clock
	Interval time.Duration
}

// NewPoller returns a Poller using the real clock.
func NewPoller(client Client, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{Client: client, Clock: clockwork.NewRealClock(), Interval: interval}
}

// Run polls until job is terminal. onWaiting is called after every check that
// left the job waiting, before the pause. The pause is skipped once the job
// can no longer wait, and it ends early when ctx is done.
//
// A Succeeded job returns a nil error. A Failed job returns *RemoteFailure and
// a TimedOut job returns ErrTimeoutExceeded.
func (p *Poller) Run(ctx context.Context, job Job, onWaiting func(Job)) (Job, error) {
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	for {
		next, err := p.Client.Poll(ctx, job)
		if err != nil {
			return next, err
		}
		job = next

		switch job.State {
		case StateSucceeded:
			metrics.ObservePollAttempts(job.Attempt)
			return job, nil
		case StateFailed:
			metrics.ObservePollAttempts(job.Attempt)
			return job, &RemoteFailure{Reason: job.Reason}
		case StateTimedOut:
			metrics.ObservePollAttempts(job.Attempt)
			return job, ErrTimeoutExceeded
		}

		if onWaiting != nil {
			onWaiting(job)
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-clock.After(interval):
		}
	}
}
