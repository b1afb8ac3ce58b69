// internal/session/endpoint.go
package session

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Scheme is the only transport scheme the client speaks.
const Scheme = "opc.tcp"

// DefaultPort is the IANA port for opc.tcp.
const DefaultPort = 4840

// Endpoint identifies the server. Fields are read-only after ParseEndpoint.
type Endpoint struct {
	scheme string
	host   string
	port   int
	path   string
}

// ParseEndpoint parses an opc.tcp URL.
func ParseEndpoint(raw string) (Endpoint, error) {
	if raw == "" {
		return Endpoint{}, errors.New("session: endpoint required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("session: invalid endpoint %q: %w", raw, err)
	}
	if u.Scheme != Scheme {
		return Endpoint{}, fmt.Errorf("session: endpoint %q: scheme must be %s", raw, Scheme)
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("session: endpoint %q: host required", raw)
	}

	port := DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return Endpoint{}, fmt.Errorf("session: endpoint %q: invalid port %q", raw, p)
		}
	}

	return Endpoint{
		scheme: u.Scheme,
		host:   u.Hostname(),
		port:   port,
		path:   u.Path,
	}, nil
}

func (e Endpoint) Scheme() string { return e.scheme }
func (e Endpoint) Host() string   { return e.host }
func (e Endpoint) Port() int      { return e.port }
func (e Endpoint) Path() string   { return e.path }

// IsZero reports whether e was never parsed.
func (e Endpoint) IsZero() bool { return e.scheme == "" }

// String renders the endpoint URL with an explicit port.
func (e Endpoint) String() string {
	if e.IsZero() {
		return ""
	}
	u := url.URL{
		Scheme: e.scheme,
		Host:   net.JoinHostPort(e.host, strconv.Itoa(e.port)),
		Path:   e.path,
	}
	return u.String()
}
