package quartz

// TriggerState is the internal lifecycle state of a stored trigger.
//
// WAITING -> ACQUIRED -> EXECUTING -> {COMPLETE | ERROR | BLOCKED},
// with WAITING <-> PAUSED and BLOCKED <-> PAUSED_BLOCKED.
// Only WAITING triggers are eligible for acquisition.
type TriggerState string

const (
	StateWaiting       TriggerState = "WAITING"
	StateAcquired      TriggerState = "ACQUIRED"
	StateExecuting     TriggerState = "EXECUTING"
	StateComplete      TriggerState = "COMPLETE"
	StateBlocked       TriggerState = "BLOCKED"
	StateError         TriggerState = "ERROR"
	StatePaused        TriggerState = "PAUSED"
	StatePausedBlocked TriggerState = "PAUSED_BLOCKED"
	StateDeleted       TriggerState = "DELETED"
)

// ExternalState is the coarse state reported to the scheduling engine.
type ExternalState string

const (
	ExternalNormal   ExternalState = "NORMAL"
	ExternalPaused   ExternalState = "PAUSED"
	ExternalComplete ExternalState = "COMPLETE"
	ExternalError    ExternalState = "ERROR"
	ExternalBlocked  ExternalState = "BLOCKED"
	ExternalNone     ExternalState = "NONE"
)

// External maps the internal state onto the engine-facing state set.
func (s TriggerState) External() ExternalState {
	switch s {
	case StateDeleted:
		return ExternalNone
	case StateComplete:
		return ExternalComplete
	case StatePaused, StatePausedBlocked:
		return ExternalPaused
	case StateError:
		return ExternalError
	case StateBlocked:
		return ExternalBlocked
	default:
		return ExternalNormal
	}
}
