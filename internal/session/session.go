// internal/session/session.go
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
)

// State is the last-known state of a session handle.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Faulted
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Conn is the subset of *opcua.Client the core needs.
type Conn interface {
	Read(ctx context.Context, req *ua.ReadRequest) (*ua.ReadResponse, error)
	NamespaceArray(ctx context.Context) ([]string, error)
	State() opcua.ConnState
	Close(ctx context.Context) error
}

// Session is a handle to one logical connection.
// A reconnect never revives a handle; it produces a new one.
type Session struct {
	id       string
	endpoint Endpoint
	timeout  time.Duration
	conn     Conn

	state atomic.Int32

	faultMu sync.Mutex
	fault   error

	closeOnce sync.Once
	closeErr  error
	onClose   func()
}

func (s *Session) ID() string             { return s.id }
func (s *Session) Endpoint() Endpoint     { return s.endpoint }
func (s *Session) Timeout() time.Duration { return s.timeout }

// State returns the handle state without blocking.
func (s *Session) State() State {
	if s == nil {
		return Disconnected
	}
	return State(s.state.Load())
}

// Fault marks the handle faulted. The first cause is kept.
func (s *Session) Fault(err error) {
	if s == nil {
		return
	}
	s.faultMu.Lock()
	if s.fault == nil {
		s.fault = err
	}
	s.faultMu.Unlock()
	s.state.CompareAndSwap(int32(Connected), int32(Faulted))
}

// FaultCause returns the error passed to the first Fault call.
func (s *Session) FaultCause() error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.fault
}

// Read issues a read request on the session.
func (s *Session) Read(ctx context.Context, req *ua.ReadRequest) (*ua.ReadResponse, error) {
	if st := s.State(); st != Connected {
		return nil, fmt.Errorf("session %s is %s: %w", s.id, st, ErrClosed)
	}
	return s.conn.Read(ctx, req)
}

// NamespaceArray returns the server's current namespace table.
func (s *Session) NamespaceArray(ctx context.Context) ([]string, error) {
	if st := s.State(); st != Connected {
		return nil, fmt.Errorf("session %s is %s: %w", s.id, st, ErrClosed)
	}
	return s.conn.NamespaceArray(ctx)
}

func (s *Session) close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(Disconnected))
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		s.closeErr = s.conn.Close(ctx)
		if s.onClose != nil {
			s.onClose()
		}
	})
	return s.closeErr
}

const closeTimeout = 5 * time.Second
