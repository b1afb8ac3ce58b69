// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/opcua-replicator/internal/backoff"
	"github.com/tamzrod/opcua-replicator/internal/cache"
	"github.com/tamzrod/opcua-replicator/internal/resolver"
	"github.com/tamzrod/opcua-replicator/internal/session"
)

// Defaults applied by New when a Config field is zero.
const (
	DefaultConnectTimeout = 15 * time.Second
	DefaultReadTimeout    = 500 * time.Millisecond
)

// ErrStopped is returned by Start after Stop.
var ErrStopped = errors.New("poller: stopped")

// Sessions is the session lifecycle the engine depends on.
// *session.Manager satisfies it.
type Sessions interface {
	Connect(ctx context.Context, ep session.Endpoint, timeout time.Duration) (*session.Session, error)
	IsHealthy(s *session.Session) bool
	Close(s *session.Session) error
}

// Config is the immutable runtime config of one engine.
type Config struct {
	Endpoint session.Endpoint
	Tags     []resolver.Tag

	Interval       time.Duration
	ReadTimeout    time.Duration
	ConnectTimeout time.Duration
	Mode           ReadMode

	Backoff backoff.Policy
}

// Option customizes an Engine.
type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithObserver(o Observer) Option { return func(e *Engine) { e.obs = o } }

// WithReports makes the engine emit one CycleReport per cycle on ch.
// Sends never block; reports are dropped when ch is full.
func WithReports(ch chan<- CycleReport) Option { return func(e *Engine) { e.reports = ch } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// Engine polls a fixed tag set and keeps the value cache current.
type Engine struct {
	cfg      Config
	sessions Sessions
	cache    *cache.Cache

	log     zerolog.Logger
	obs     Observer
	reports chan<- CycleReport
	now     func() time.Time

	state      atomic.Int32
	sess       atomic.Pointer[session.Session]
	reconnects atomic.Uint64

	// owned by the loop goroutine after Start
	bindings []resolver.Binding

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New validates cfg and creates an idle engine with an empty cache.
func New(cfg Config, sessions Sessions, opts ...Option) (*Engine, error) {
	if sessions == nil {
		return nil, errors.New("poller: sessions required")
	}
	if cfg.Endpoint.IsZero() {
		return nil, errors.New("poller: endpoint required")
	}
	if len(cfg.Tags) == 0 {
		return nil, errors.New("poller: at least one tag required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}

	names := make([]string, 0, len(cfg.Tags))
	seen := make(map[string]struct{}, len(cfg.Tags))
	for i, t := range cfg.Tags {
		if t.LogicalName == "" || t.Name == "" || t.NamespaceURI == "" {
			return nil, fmt.Errorf("poller: tag[%d]: namespace uri, name and logical name required", i)
		}
		if _, dup := seen[t.LogicalName]; dup {
			return nil, fmt.Errorf("poller: tag[%d]: duplicate logical name %q", i, t.LogicalName)
		}
		seen[t.LogicalName] = struct{}{}
		names = append(names, t.LogicalName)
	}

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = min(DefaultReadTimeout, cfg.Interval/2)
	}
	if cfg.ReadTimeout >= cfg.Interval {
		return nil, fmt.Errorf("poller: read timeout %s must be shorter than interval %s", cfg.ReadTimeout, cfg.Interval)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = SingleRead
	case SingleRead, BatchRead:
	default:
		return nil, fmt.Errorf("poller: unknown read mode %q", cfg.Mode)
	}
	cfg.Backoff = cfg.Backoff.Normalized()
	cfg.Tags = append([]resolver.Tag(nil), cfg.Tags...)

	e := &Engine{
		cfg:      cfg,
		sessions: sessions,
		cache:    cache.New(names),
		log:      zerolog.Nop(),
		obs:      NopObserver{},
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Cache is the consumer boundary. Only the engine writes to it.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// Config returns the effective config after defaults.
func (e *Engine) Config() Config { return e.cfg }

// State returns the current state machine position.
func (e *Engine) State() State { return State(e.state.Load()) }

// Healthy reports whether the current session is usable, without blocking.
func (e *Engine) Healthy() bool { return e.sessions.IsHealthy(e.sess.Load()) }

// Reconnects returns the number of successful reconnects since Start.
func (e *Engine) Reconnects() uint64 { return e.reconnects.Load() }

// Start connects, resolves every tag and launches the polling loop.
// Connect and resolve failures are returned as-is; nothing is left running.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrStopped
	}
	if e.started {
		return errors.New("poller: already started")
	}

	s, bindings, err := e.establish(ctx)
	if err != nil {
		return err
	}

	e.sess.Store(s)
	e.bindings = bindings
	e.started = true

	// the loop outlives ctx; only Stop ends it
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel

	e.log.Info().
		Str("endpoint", e.cfg.Endpoint.String()).
		Int("tags", len(bindings)).
		Dur("interval", e.cfg.Interval).
		Str("mode", string(e.cfg.Mode)).
		Msg("polling started")

	go e.run(loopCtx)
	return nil
}

// Stop requests shutdown and returns once the loop has exited and the
// session is released. In-flight reads complete or time out first.
// Safe to call more than once and before Start.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	cancel, started := e.cancel, e.started
	e.mu.Unlock()

	if !started {
		return
	}
	cancel()
	<-e.done
}

// Done is closed when the loop has exited.
func (e *Engine) Done() <-chan struct{} { return e.done }

// establish is one connect + resolve attempt. The session is closed on
// resolve failure.
func (e *Engine) establish(ctx context.Context) (*session.Session, []resolver.Binding, error) {
	s, err := e.sessions.Connect(ctx, e.cfg.Endpoint, e.cfg.ConnectTimeout)
	if err != nil {
		return nil, nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, e.cfg.ConnectTimeout)
	defer cancel()

	bindings, err := resolver.ResolveAll(rctx, s, e.cfg.Tags)
	if err != nil {
		_ = e.sessions.Close(s)
		return nil, nil, err
	}

	for _, b := range bindings {
		e.log.Debug().Str("tag", b.Tag.LogicalName).Str("node", b.Node.String()).Msg("resolved")
	}
	return s, bindings, nil
}

func (e *Engine) setState(to State) {
	from := State(e.state.Swap(int32(to)))
	if from == to {
		return
	}
	e.obs.StateChanged(from, to)
}

func (e *Engine) report(r CycleReport) {
	if e.reports == nil {
		return
	}
	select {
	case e.reports <- r:
	default:
		e.log.Debug().Msg("cycle report dropped")
	}
}
