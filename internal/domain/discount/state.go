package discount

import "time"

// State is the derived lifecycle state of a discount. It is computed at
// evaluation time and never stored.
type State string

const (
	// StateDisabled means the admin kill-switch is off.
	StateDisabled State = "disabled"
	// StateExhausted means the usage limit has been reached.
	StateExhausted State = "exhausted"
	// StatePending means the validity window has not opened yet.
	StatePending State = "pending"
	// StateExpired means the validity window has closed.
	StateExpired State = "expired"
	// StateActive means the discount is currently redeemable.
	StateActive State = "active"
)

// StateAt derives the lifecycle state of d at the given instant. Disabled
// takes precedence over every other state since the kill-switch can be
// flipped at any time.
func StateAt(d *Discount, at time.Time) State {
	if !d.Active {
		return StateDisabled
	}
	if d.UsageLimit > 0 && d.UsageCount >= d.UsageLimit {
		return StateExhausted
	}
	if d.StartsAt != nil && at.Before(*d.StartsAt) {
		return StatePending
	}
	if d.EndsAt != nil && at.After(*d.EndsAt) {
		return StateExpired
	}
	return StateActive
}
