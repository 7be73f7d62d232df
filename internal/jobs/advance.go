package jobs

// Advance applies one status observation to job. Terminal jobs are returned
// unchanged. A job still waiting once Attempt reaches MaxAttempts times out.
func Advance(job Job, obs Observation) Job {
	if job.State.Terminal() {
		return job
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = DefaultMaxAttempts
	}
	job.Attempt++

	switch obs.Status {
	case StatusSuccess:
		if obs.ResultRef == "" {
			job.State = StateFailed
			job.Reason = "remote reported success without a result"
			return job
		}
		job.State = StateSucceeded
		job.ResultRef = obs.ResultRef
	case StatusWaiting:
		if job.Attempt >= job.MaxAttempts {
			job.State = StateTimedOut
			job.Reason = ErrTimeoutExceeded.Error()
			return job
		}
		job.State = StateWaiting
	default:
		job.State = StateFailed
		job.Reason = obs.Reason
		if job.Reason == "" {
			job.Reason = "remote reported failure"
		}
	}
	return job
}
