// Package tier defines the upscale quality levels offered to users.
package tier

import (
	"errors"
	"strings"
)

// Tier is a processing quality level. The zero value means "not chosen".
type Tier int

const (
	Unset Tier = iota
	Basic
	Premium
	Elite
	Pro
)

// ErrUnknown is returned by Parse for names outside the tier set.
var ErrUnknown = errors.New("unknown tier")

// CallbackPrefix starts every tier button payload.
const CallbackPrefix = "scale_"

// All lists the selectable tiers in display order.
var All = []Tier{Basic, Premium, Elite, Pro}

// Parse accepts a tier name ("premium") or a button payload ("scale_premium").
func Parse(raw string) (Tier, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, CallbackPrefix)
	switch name {
	case "basic":
		return Basic, nil
	case "premium":
		return Premium, nil
	case "elite":
		return Elite, nil
	case "pro":
		return Pro, nil
	default:
		return Unset, ErrUnknown
	}
}

// Valid reports whether t is one of the selectable tiers.
func (t Tier) Valid() bool {
	return t >= Basic && t <= Pro
}

// String returns the lowercase name used in storage and file names.
func (t Tier) String() string {
	switch t {
	case Basic:
		return "basic"
	case Premium:
		return "premium"
	case Elite:
		return "elite"
	case Pro:
		return "pro"
	default:
		return ""
	}
}

// Label is the human-facing name with its emoji.
func (t Tier) Label() string {
	switch t {
	case Basic:
		return "🔧 Basic"
	case Premium:
		return "⭐ Premium"
	case Elite:
		return "💎 Elite"
	case Pro:
		return "🚀 Pro"
	default:
		return ""
	}
}

// Title is the capitalized name without decoration.
func (t Tier) Title() string {
	s := t.String()
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Code is the remote service's scaleRadio value.
func (t Tier) Code() string {
	switch t {
	case Basic:
		return "1"
	case Premium:
		return "2"
	case Elite:
		return "3"
	case Pro:
		return "4"
	default:
		return ""
	}
}

// CallbackData is the button payload that selects t.
func (t Tier) CallbackData() string {
	return CallbackPrefix + t.String()
}
