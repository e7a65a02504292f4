// internal/contact/state.go
//
// Serenity – Contact form: submission lifecycle.
//
// Context
//   The form moves through three states.  transition is the single place
//   that decides which event is legal in which state, so the Controller
//   never mutates State directly.
//
//        submit           delivered
//   Idle ───────► Submitting ───────► Submitted
//    ▲                │                   │
//    └──── failed ────┘                   │
//    └──────────────── reset ─────────────┘
//
//------------------------------------------------------------------------------

package contact

import "fmt"

// State is the lifecycle phase of one form instance.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON snapshots.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Event drives a transition.
type Event string

const (
	EventSubmit    Event = "submit"
	EventDelivered Event = "delivered"
	EventFailed    Event = "failed"
	EventReset     Event = "reset"
)

// transition returns the next state or an error wrapping the lifecycle
// sentinel that explains the refusal.
func transition(current State, ev Event) (State, error) {
	switch current {
	case StateIdle:
		if ev == EventSubmit {
			return StateSubmitting, nil
		}
		if ev == EventReset {
			return current, invalidTransition(current, ev, ErrNotSubmitted)
		}
	case StateSubmitting:
		switch ev {
		case EventDelivered:
			return StateSubmitted, nil
		case EventFailed:
			return StateIdle, nil
		case EventSubmit:
			return current, invalidTransition(current, ev, ErrBusy)
		case EventReset:
			return current, invalidTransition(current, ev, ErrNotSubmitted)
		}
	case StateSubmitted:
		switch ev {
		case EventReset:
			return StateIdle, nil
		case EventSubmit:
			return current, invalidTransition(current, ev, ErrNotIdle)
		}
	default:
		return current, fmt.Errorf("contact: unknown state %v", current)
	}
	return current, invalidTransition(current, ev, nil)
}

func invalidTransition(s State, ev Event, cause error) error {
	if cause == nil {
		return fmt.Errorf("contact: invalid transition: %s --(%s)--> ?", s, ev)
	}
	return fmt.Errorf("%w: %s --(%s)--> ?", cause, s, ev)
}
