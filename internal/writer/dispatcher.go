// internal/writer/dispatcher.go
package writer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/opcua-replicator/internal/poller"
	"github.com/tamzrod/opcua-replicator/internal/status"
)

// Dispatcher fans cycle reports out to the sinks and owns the device
// status: tracker state plus the 1 Hz seconds-in-error ticker.
type Dispatcher struct {
	sinks   []Sink
	status  StatusWriter // nil when the status block is disabled
	tracker *status.Tracker
	log     zerolog.Logger

	tick time.Duration

	mu   sync.RWMutex
	snap status.Snapshot
}

// NewDispatcher builds a dispatcher. sw may be nil.
func NewDispatcher(log zerolog.Logger, sw StatusWriter, sinks ...Sink) *Dispatcher {
	t := status.NewTracker()
	return &Dispatcher{
		sinks:   sinks,
		status:  sw,
		tracker: t,
		log:     log,
		tick:    time.Second,
		snap:    t.Snapshot(),
	}
}

// Status returns the latest device status. Safe for concurrent use.
func (d *Dispatcher) Status() status.Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap
}

// Run consumes reports until ctx is done or in is closed.
func (d *Dispatcher) Run(ctx context.Context, in <-chan poller.CycleReport) {
	secTicker := time.NewTicker(d.tick)
	defer secTicker.Stop()

	// Full block write on start (identity re-assert) if enabled.
	d.publish(d.tracker.Snapshot(), true)

	for {
		select {
		case <-ctx.Done():
			return

		case r, ok := <-in:
			if !ok {
				return
			}

			// --- data delivery ---
			for _, s := range d.sinks {
				if err := s.Write(r); err != nil {
					d.log.Warn().Err(err).Str("sink", s.Name()).Msg("sink write failed")
				}
			}

			// --- status update ---
			snap, changed := d.tracker.Observe(r)
			d.publish(snap, changed)

		case <-secTicker.C:
			snap, changed := d.tracker.Tick()
			d.publish(snap, changed)
		}
	}
}

func (d *Dispatcher) publish(snap status.Snapshot, changed bool) {
	d.mu.Lock()
	prev := d.snap
	d.snap = snap
	d.mu.Unlock()

	if prev.Health != snap.Health {
		d.log.Info().
			Str("from", status.HealthName(prev.Health)).
			Str("to", status.HealthName(snap.Health)).
			Uint32("status_code", snap.LastStatusCode).
			Msg("device health changed")
	}

	if !changed || d.status == nil {
		return
	}
	if err := d.status.WriteStatus(snap); err != nil {
		d.log.Warn().Err(err).Msg("status write failed")
	}
}
