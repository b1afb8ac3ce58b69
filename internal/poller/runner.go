// internal/poller/runner.go
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gopcua/opcua/ua"

	"github.com/tamzrod/opcua-replicator/internal/cache"
	"github.com/tamzrod/opcua-replicator/internal/resolver"
	"github.com/tamzrod/opcua-replicator/internal/session"
)

// run is the ticker loop. One goroutine per engine. No overlap.
func (e *Engine) run(ctx context.Context) {
	defer func() {
		e.release()
		e.setState(Stopped)
		e.log.Info().Msg("polling stopped")
		close(e.done)
	}()

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	e.setState(Idle)
	for {
		e.setState(Waiting)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		e.step(ctx)
	}
}

// step performs exactly one cycle.
func (e *Engine) step(ctx context.Context) {
	s := e.sess.Load()
	if !e.sessions.IsHealthy(s) {
		e.recover(ctx, s)
		return
	}

	e.setState(Reading)
	var results []ReadResult
	if e.cfg.Mode == BatchRead {
		results = e.readBatch(ctx, s)
	} else {
		results = e.readEach(ctx, s)
	}

	e.setState(Updating)
	e.apply(results)

	entries := e.cache.Snapshot()
	e.obs.CacheUpdated(entries)

	e.report(CycleReport{
		At:         e.now(),
		State:      Updating,
		Healthy:    true,
		Results:    results,
		Entries:    entries,
		Reconnects: e.reconnects.Load(),
	})
	e.setState(Idle)
}

// apply commits good results and marks failed ones stale.
// A failed read never touches the stored sample.
func (e *Engine) apply(results []ReadResult) {
	for _, r := range results {
		e.obs.ReadCompleted(r.Name, r.Err, r.Latency)

		if r.OK() {
			e.cache.Commit(r.Name, r.Sample)
			continue
		}

		e.log.Warn().
			Str("tag", r.Name).
			Str("node", r.Node.String()).
			Str("kind", r.Err.Kind.String()).
			Uint32("status", r.Err.StatusCode()).
			Err(r.Err).
			Msg("read failed")

		e.cache.MarkStale(r.Name, cache.Failure{
			Status:      r.Err.StatusCode(),
			Description: r.Err.Error(),
			At:          e.now(),
		})
	}
}

// recover handles the Faulted -> Reconnecting -> Idle edge.
// Returns early only when ctx is cancelled.
func (e *Engine) recover(ctx context.Context, old *session.Session) {
	e.setState(Faulted)

	cause := errors.New("session not connected")
	if old != nil {
		if fc := old.FaultCause(); fc != nil {
			cause = fc
		}
	}
	e.log.Error().Err(cause).Msg("session unavailable; reads skipped")

	code := uint32(ua.StatusBadNotConnected)
	var sc ua.StatusCode
	if errors.As(cause, &sc) {
		code = uint32(sc)
	}
	e.cache.MarkAllStale(cache.Failure{
		Status:      code,
		Description: cause.Error(),
		At:          e.now(),
	})
	entries := e.cache.Snapshot()
	e.obs.CacheUpdated(entries)
	e.report(CycleReport{
		At:         e.now(),
		State:      Faulted,
		Err:        cause,
		Entries:    entries,
		Reconnects: e.reconnects.Load(),
	})

	// a reconnect never revives a handle
	e.sess.Store(nil)
	_ = e.sessions.Close(old)
	e.bindings = nil

	e.setState(Reconnecting)
	s, bindings, attempts, err := e.reconnect(ctx)
	if err != nil {
		e.log.Debug().Err(err).Msg("reconnect abandoned")
		return
	}

	e.sess.Store(s)
	e.bindings = bindings
	e.reconnects.Add(1)
	e.obs.Reconnected(attempts)
	e.log.Info().Uint("attempts", attempts).Str("session", s.ID()).Msg("reconnected")

	e.setState(Idle)
}

// reconnect retries establish until it succeeds or ctx is cancelled.
// The first attempt is immediate; later ones follow the backoff policy.
func (e *Engine) reconnect(ctx context.Context) (*session.Session, []resolver.Binding, uint, error) {
	var (
		s        *session.Session
		bindings []resolver.Binding
		attempts uint
	)

	err := retry.Do(
		func() error {
			attempts++
			e.obs.ReconnectAttempt(attempts)

			var err error
			s, bindings, err = e.establish(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.LastErrorOnly(true),
		retry.DelayType(e.cfg.Backoff.DelayType()),
		retry.OnRetry(func(n uint, err error) {
			e.log.Warn().
				Err(err).
				Uint("attempt", attempts).
				Dur("next_in", e.cfg.Backoff.Delay(attempts)).
				Msg("reconnect failed")
		}),
	)
	if err != nil {
		return nil, nil, attempts, err
	}
	return s, bindings, attempts, nil
}

// release closes the current session on loop exit.
func (e *Engine) release() {
	s := e.sess.Swap(nil)
	if s == nil {
		return
	}
	if err := e.sessions.Close(s); err != nil {
		e.log.Debug().Err(err).Msg("session close on exit")
	}
}
