// internal/poller/types.go
package poller

import (
	"fmt"
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/tamzrod/opcua-replicator/internal/cache"
	"github.com/tamzrod/opcua-replicator/internal/resolver"
)

// State is the engine position in one logical cycle.
type State int32

const (
	Idle State = iota
	Waiting
	Reading
	Updating
	Faulted
	Reconnecting
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Reading:
		return "reading"
	case Updating:
		return "updating"
	case Faulted:
		return "faulted"
	case Reconnecting:
		return "reconnecting"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ReadMode selects how one cycle is issued on the wire.
type ReadMode string

const (
	// SingleRead issues one request per node.
	SingleRead ReadMode = "single"
	// BatchRead issues one request for all nodes.
	BatchRead ReadMode = "batch"
)

// ReadErrorKind classifies a failed read of one node.
type ReadErrorKind int

const (
	BadStatus ReadErrorKind = iota
	Timeout
	SessionUnavailable
)

func (k ReadErrorKind) String() string {
	switch k {
	case BadStatus:
		return "bad status"
	case Timeout:
		return "timeout"
	case SessionUnavailable:
		return "session unavailable"
	default:
		return fmt.Sprintf("ReadErrorKind(%d)", int(k))
	}
}

// ReadError is the failure half of a ReadResult.
type ReadError struct {
	Kind   ReadErrorKind
	Status ua.StatusCode
	Err    error
}

func (e *ReadError) Error() string {
	switch {
	case e.Kind == BadStatus && e.Err == nil:
		return fmt.Sprintf("poller: read: bad status 0x%08X: %s", uint32(e.Status), e.Status.Error())
	case e.Err != nil:
		return fmt.Sprintf("poller: read: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("poller: read: %s", e.Kind)
	}
}

func (e *ReadError) Unwrap() error { return e.Err }

// StatusCode returns the OPC UA status that best describes the failure.
func (e *ReadError) StatusCode() uint32 {
	if e.Status != ua.StatusOK {
		return uint32(e.Status)
	}
	switch e.Kind {
	case Timeout:
		return uint32(ua.StatusBadTimeout)
	case SessionUnavailable:
		return uint32(ua.StatusBadNotConnected)
	default:
		return uint32(ua.StatusBadUnexpectedError)
	}
}

// ReadResult is the outcome of reading one node: a Sample or an Err, never both.
type ReadResult struct {
	Name string
	Node resolver.NodeID

	Sample cache.Sample
	Err    *ReadError

	Latency time.Duration
}

// OK reports whether the read produced a value.
func (r ReadResult) OK() bool { return r.Err == nil }

// CycleReport is emitted after every cycle, faulted ones included.
type CycleReport struct {
	At    time.Time
	State State

	// Healthy is false for cycles that found the session unusable.
	Healthy bool

	// Err is the session-level cause on faulted cycles.
	Err error

	Results []ReadResult
	Entries []cache.Entry

	Reconnects uint64
}

// Observer receives engine events. Calls are made from the polling goroutine
// and must not block.
type Observer interface {
	StateChanged(from, to State)
	ReadCompleted(tag string, err *ReadError, latency time.Duration)
	CacheUpdated(entries []cache.Entry)
	ReconnectAttempt(attempt uint)
	Reconnected(attempts uint)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) StateChanged(State, State)                      {}
func (NopObserver) ReadCompleted(string, *ReadError, time.Duration) {}
func (NopObserver) CacheUpdated([]cache.Entry)                     {}
func (NopObserver) ReconnectAttempt(uint)                          {}
func (NopObserver) Reconnected(uint)                               {}
