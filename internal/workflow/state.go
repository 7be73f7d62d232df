package workflow

// State is a position in the upscale workflow.
type State string

const (
	StateAwaitingMembership    State = "awaiting_membership"
	StateAwaitingTierSelection State = "awaiting_tier_selection"
	StateAwaitingImage         State = "awaiting_image"
	StateUploading             State = "uploading"
	StatePolling               State = "polling"
	StateDelivering            State = "delivering"
	StateDone                  State = "done"
	StateFailed                State = "failed"
	// StateBusy is returned when an image arrives while the user's previous
	// one is still being processed. Nothing is started.
	StateBusy State = "busy"
)
