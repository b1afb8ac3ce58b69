// internal/poller/fake_test.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"github.com/rs/zerolog"

	"github.com/tamzrod/opcua-replicator/internal/session"
)

// fakeServer is an in-memory OPC UA server reachable through session.Manager.
type fakeServer struct {
	mu         sync.Mutex
	namespaces []string
	values     map[string]*ua.DataValue
	offline    bool
	readDelay  time.Duration
	conns      []*fakeConn

	dials         atomic.Int64
	nsCalls       atomic.Int64
	readCalls     atomic.Int64
	readsStarted  atomic.Int64
	readsFinished atomic.Int64
}

func newFakeServer(namespaces ...string) *fakeServer {
	return &fakeServer{
		namespaces: namespaces,
		values:     make(map[string]*ua.DataValue),
	}
}

func nodeKey(ns uint16, name string) string { return fmt.Sprintf("ns=%d;s=%s", ns, name) }

func (f *fakeServer) setValue(ns uint16, name string, v any, status ua.StatusCode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[nodeKey(ns, name)] = &ua.DataValue{
		Value:           ua.MustVariant(v),
		Status:          status,
		SourceTimestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeServer) setNamespaces(ns ...string) {
	f.mu.Lock()
	f.namespaces = ns
	f.mu.Unlock()
}

// goOffline drops every live connection and refuses new ones.
func (f *fakeServer) goOffline() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = true
	for _, c := range f.conns {
		c.state.Store(int32(opcua.Disconnected))
	}
}

func (f *fakeServer) goOnline() {
	f.mu.Lock()
	f.offline = false
	f.mu.Unlock()
}

func (f *fakeServer) openConns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.conns {
		if !c.closed.Load() {
			n++
		}
	}
	return n
}

func (f *fakeServer) Dial(ctx context.Context, ep session.Endpoint, o session.Options) (session.Conn, error) {
	f.dials.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, errors.New("dial tcp: connection refused")
	}
	c := &fakeConn{srv: f}
	c.state.Store(int32(opcua.Connected))
	f.conns = append(f.conns, c)
	return c, nil
}

type fakeConn struct {
	srv    *fakeServer
	state  atomic.Int32
	closed atomic.Bool
}

func (c *fakeConn) Read(ctx context.Context, req *ua.ReadRequest) (*ua.ReadResponse, error) {
	f := c.srv
	f.readCalls.Add(1)
	f.readsStarted.Add(1)
	defer f.readsFinished.Add(1)

	f.mu.Lock()
	delay := f.readDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if opcua.ConnState(c.state.Load()) != opcua.Connected {
		return nil, ua.StatusBadSecureChannelClosed
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	resp := &ua.ReadResponse{}
	for _, n := range req.NodesToRead {
		dv, ok := f.values[nodeKey(n.NodeID.Namespace(), n.NodeID.StringID())]
		if !ok {
			dv = &ua.DataValue{Status: ua.StatusBadNodeIDUnknown}
		}
		resp.Results = append(resp.Results, dv)
	}
	return resp, nil
}

func (c *fakeConn) NamespaceArray(ctx context.Context) ([]string, error) {
	c.srv.nsCalls.Add(1)
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	return append([]string(nil), c.srv.namespaces...), nil
}

func (c *fakeConn) State() opcua.ConnState { return opcua.ConnState(c.state.Load()) }

func (c *fakeConn) Close(ctx context.Context) error {
	c.closed.Store(true)
	c.state.Store(int32(opcua.Closed))
	return nil
}

func newTestManager(srv *fakeServer) *session.Manager {
	return session.NewManager(srv, session.Options{SessionTimeout: time.Minute}, zerolog.Nop())
}
