package reconcile

import (
	"time"

	"github.com/uarix/WashWise/internal/vendorapi"
)

// Vendor-reported device codes. Anything else is unclassified and treated as
// idle-equivalent.
const (
	CodeIdle           = 0
	CodeRunning        = 2
	CodeTransientFault = 4204
)

// CycleDuration is the fixed remaining-time estimate anchored at the start of
// a wash/dry cycle. The vendor reports instantaneous state only, so this is a
// client-side approximation that decays by the poll interval.
const CycleDuration = 30 * time.Minute

// FaultStrikeThreshold is the number of consecutive transient-fault
// observations after which a machine is considered faulted. Fewer are noise.
const FaultStrikeThreshold = 6

// MachineState is this service's interpretation of a machine's status,
// rebuilt from successive vendor observations.
type MachineState struct {
	MachineID        string `json:"machineId"`
	DisplayName      string `json:"name"`
	ErrorMessage     string `json:"deviceErrorMsg"`
	Code             int    `json:"deviceErrorCode"`
	RemainingSeconds int    `json:"remainTime"`
	FaultStrikes     int    `json:"errorCount"`
}

// Faulted reports whether the machine has accumulated enough consecutive
// transient-fault observations to be treated as broken.
func (s MachineState) Faulted() bool {
	return s.FaultStrikes >= FaultStrikeThreshold
}

// Reconcile folds one new observation into the previous derived state and
// reports whether a usage event fired. prev is nil on the first observation
// of a machine, in which case counters start at zero and no event fires.
//
// The function is total: unrecognized codes fall through to the default
// branch, which zeroes both counters.
func Reconcile(prev *MachineState, obs vendorapi.Observation, pollInterval time.Duration) (MachineState, bool) {
	next := MachineState{
		MachineID:    obs.MachineID,
		DisplayName:  obs.Name,
		ErrorMessage: obs.ErrorMessage,
		Code:         obs.ErrorCode,
	}

	if prev == nil {
		return next, false
	}

	switch {
	case obs.ErrorCode == CodeRunning && prev.Code != CodeRunning:
		// Cycle start: anchor the countdown and fire exactly one usage event.
		next.RemainingSeconds = int(CycleDuration.Seconds())
		return next, true

	case obs.ErrorCode == CodeRunning:
		// Still running: decay the estimate by one poll interval.
		next.RemainingSeconds = prev.RemainingSeconds - int(pollInterval.Seconds())
		if next.RemainingSeconds < 0 {
			next.RemainingSeconds = 0
		}
		return next, false

	case obs.ErrorCode == CodeTransientFault:
		next.FaultStrikes = prev.FaultStrikes + 1
		return next, false

	default:
		// Idle, running→idle, or anything unclassified.
		return next, false
	}
}
