// internal/session/errors.go
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/gopcua/opcua/ua"
)

// ConnectErrorKind classifies why a session could not be established.
type ConnectErrorKind int

const (
	Unreachable ConnectErrorKind = iota
	HandshakeRejected
	Timeout
)

func (k ConnectErrorKind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case HandshakeRejected:
		return "handshake rejected"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("ConnectErrorKind(%d)", int(k))
	}
}

// ConnectError is returned by Manager.Connect.
type ConnectError struct {
	Kind     ConnectErrorKind
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("session: connect %s: %s: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// StatusCode exposes the OPC UA status code carried by the cause, if any.
func (e *ConnectError) StatusCode() uint32 {
	var code ua.StatusCode
	if errors.As(e.Err, &code) {
		return uint32(code)
	}
	return uint32(ua.StatusBadCommunicationError)
}

// ErrNoMatchingEndpoint means the server advertised no endpoint with the
// requested security policy and mode.
var ErrNoMatchingEndpoint = errors.New("session: no matching endpoint")

// ErrClosed is returned when an operation is attempted on a closed handle.
var ErrClosed = errors.New("session: closed")

// ClassifyConnectError maps a transport/handshake error to a ConnectError.
// An existing *ConnectError is returned unchanged.
func ClassifyConnectError(endpoint string, err error) *ConnectError {
	if err == nil {
		return nil
	}

	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce
	}

	kind := Unreachable
	var code ua.StatusCode
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ua.StatusBadTimeout), isNetTimeout(err):
		kind = Timeout
	case errors.Is(err, ErrNoMatchingEndpoint):
		kind = HandshakeRejected
	case IsConnectionLoss(err):
		kind = Unreachable
	case errors.As(err, &code):
		kind = HandshakeRejected
	}

	return &ConnectError{Kind: kind, Endpoint: endpoint, Err: err}
}

// connection-level status codes; anything else from the server during
// connect is a rejection of the handshake itself
var lossCodes = []ua.StatusCode{
	ua.StatusBadCommunicationError,
	ua.StatusBadConnectionClosed,
	ua.StatusBadNotConnected,
	ua.StatusBadServerNotConnected,
	ua.StatusBadServerHalted,
	ua.StatusBadSecureChannelClosed,
	ua.StatusBadSecureChannelIDInvalid,
	ua.StatusBadSessionClosed,
	ua.StatusBadSessionIDInvalid,
	ua.StatusBadSessionNotActivated,
}

// IsConnectionLoss reports whether err means the transport or session is gone,
// as opposed to a per-node or per-request failure.
func IsConnectionLoss(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var op *net.OpError
	if errors.As(err, &op) && !op.Timeout() {
		return true
	}
	for _, c := range lossCodes {
		if errors.Is(err, c) {
			return true
		}
	}
	return false
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
