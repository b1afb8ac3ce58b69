// internal/status/tracker.go
package status

import (
	"github.com/tamzrod/opcua-replicator/internal/poller"
)

// Tracker derives the device status from engine cycle reports.
// It is owned by one goroutine; it does no IO.
type Tracker struct {
	snap Snapshot
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe folds one cycle report into the snapshot.
// changed is true when any field moved.
func (t *Tracker) Observe(r poller.CycleReport) (Snapshot, bool) {
	next := t.snap

	next.Reconnects = saturate16(r.Reconnects)
	var fresh uint64
	for _, e := range r.Entries {
		if e.Fresh {
			fresh++
		}
	}
	next.FreshTags = saturate16(fresh)

	switch {
	case !r.Healthy:
		next.Health = HealthError
		next.LastStatusCode = ErrorCode(r.Err)

	case firstFailure(r.Results) != nil:
		next.Health = HealthStale
		next.LastStatusCode = firstFailure(r.Results).StatusCode()

	default:
		// Recovery / OK
		next.Health = HealthOK
		next.LastStatusCode = 0
		// Reset seconds-in-error on recovery.
		next.SecondsInError = 0
	}

	// NOTE: seconds_in_error increments on the 1Hz ticker only.
	changed := next != t.snap
	t.snap = next
	return next, changed
}

// Tick advances seconds_in_error by one while not OK. It never wraps.
func (t *Tracker) Tick() (Snapshot, bool) {
	if t.snap.Health == HealthOK || t.snap.Health == HealthUnknown {
		return t.snap, false
	}
	if t.snap.SecondsInError == 0xFFFF {
		return t.snap, false
	}
	t.snap.SecondsInError++
	return t.snap, true
}

func firstFailure(rs []poller.ReadResult) *poller.ReadError {
	for _, r := range rs {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

func saturate16(n uint64) uint16 {
	if n > 0xFFFF {
		return 0xFFFF
	}
	return uint16(n)
}
