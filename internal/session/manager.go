// internal/session/manager.go
package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gopcua/opcua"
	"github.com/rs/zerolog"
)

// CertificatePolicy decides how the server certificate is trusted.
type CertificatePolicy string

// AcceptAll trusts whatever certificate the server advertises.
// It is insecure and the only policy implemented: there is no trust store.
const AcceptAll CertificatePolicy = "accept_all"

// Options are the negotiation parameters passed to the Dialer.
type Options struct {
	SecurityPolicy    string
	SecurityMode      string
	CertificatePolicy CertificatePolicy
	CertificateFile   string
	PrivateKeyFile    string

	// RequestTimeout bounds every service call made on the session.
	RequestTimeout time.Duration
	// SessionTimeout is the session lifetime requested from the server.
	SessionTimeout time.Duration

	ApplicationName string
}

// Dialer performs ONE connect attempt: endpoint discovery, selection,
// secure channel and session activation.
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint, opts Options) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, ep Endpoint, opts Options) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, ep Endpoint, opts Options) (Conn, error) {
	return f(ctx, ep, opts)
}

// Manager owns session lifecycle. It never retries; callers own retry policy.
type Manager struct {
	dialer Dialer
	opts   Options
	log    zerolog.Logger

	open atomic.Int64
}

// NewManager creates a session manager.
func NewManager(d Dialer, opts Options, log zerolog.Logger) *Manager {
	return &Manager{
		dialer: d,
		opts:   opts,
		log:    log,
	}
}

// Connect establishes a new session within timeout.
// Errors are always *ConnectError.
func (m *Manager) Connect(ctx context.Context, ep Endpoint, timeout time.Duration) (*Session, error) {
	if ep.IsZero() {
		return nil, &ConnectError{Kind: Unreachable, Err: errors.New("endpoint not set")}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s := &Session{
		id:       uuid.NewString(),
		endpoint: ep,
		timeout:  m.opts.SessionTimeout,
	}
	s.state.Store(int32(Connecting))

	m.log.Debug().Str("session", s.id).Str("endpoint", ep.String()).Msg("connecting")

	conn, err := m.dialer.Dial(ctx, ep, m.opts)
	if err != nil {
		s.state.Store(int32(Faulted))
		ce := ClassifyConnectError(ep.String(), err)
		m.log.Warn().Err(ce.Err).Str("kind", ce.Kind.String()).Str("endpoint", ep.String()).Msg("connect failed")
		return nil, ce
	}

	s.conn = conn
	s.onClose = func() { m.open.Add(-1) }
	s.state.Store(int32(Connected))
	m.open.Add(1)

	m.log.Info().Str("session", s.id).Str("endpoint", ep.String()).Msg("session established")
	return s, nil
}

// IsHealthy reports the last-known state without blocking.
func (m *Manager) IsHealthy(s *Session) bool {
	if s == nil || s.State() != Connected {
		return false
	}
	return s.conn.State() == opcua.Connected
}

// Close releases the session. Safe on nil, faulted and already closed handles.
func (m *Manager) Close(s *Session) error {
	if s == nil || s.conn == nil {
		return nil
	}
	err := s.close()
	if err != nil {
		m.log.Debug().Err(err).Str("session", s.id).Msg("close reported error")
	}
	return err
}

// Open returns the number of sessions connected and not yet closed.
func (m *Manager) Open() int {
	return int(m.open.Load())
}
