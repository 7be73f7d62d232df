package usage

import "errors"

var (
	// ErrInvalidEvent is returned for events missing a user or with an unknown kind.
	ErrInvalidEvent = errors.New("invalid usage event")
	// ErrInvalidPeriod is returned for report periods other than day and month.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrRecorderClosed is returned by Close when called twice.
	ErrRecorderClosed = errors.New("usage recorder closed")
)
