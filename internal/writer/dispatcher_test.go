// internal/writer/dispatcher_test.go
package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/opcua-replicator/internal/cache"
	"github.com/tamzrod/opcua-replicator/internal/poller"
	"github.com/tamzrod/opcua-replicator/internal/status"
)

type recordingSink struct {
	mu      sync.Mutex
	reports []poller.CycleReport
	err     error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(r poller.CycleReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

type recordingStatus struct {
	mu    sync.Mutex
	snaps []status.Snapshot
}

func (s *recordingStatus) WriteStatus(snap status.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *recordingStatus) all() []status.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]status.Snapshot(nil), s.snaps...)
}

func runDispatcher(t *testing.T, d *Dispatcher) (chan<- poller.CycleReport, <-chan struct{}) {
	t.Helper()
	in := make(chan poller.CycleReport)
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(context.Background(), in)
	}()
	return in, done
}

func TestDispatcher_FeedsSinksAndStatus(t *testing.T) {
	bad := &recordingSink{err: errors.New("down")}
	good := &recordingSink{}
	sw := &recordingStatus{}

	d := NewDispatcher(zerolog.Nop(), sw, bad, good)
	in, done := runDispatcher(t, d)

	in <- poller.CycleReport{
		Healthy:    true,
		Reconnects: 2,
		Entries: []cache.Entry{
			{Name: "a", HasValue: true, Fresh: true},
			{Name: "b", HasValue: true, Fresh: true},
		},
	}
	close(in)
	<-done

	// a failing sink does not starve the next one
	assert.Equal(t, 1, bad.count())
	assert.Equal(t, 1, good.count())

	snaps := sw.all()
	require.Len(t, snaps, 2)
	assert.Equal(t, status.HealthUnknown, snaps[0].Health)
	assert.Equal(t, status.HealthOK, snaps[1].Health)
	assert.Equal(t, uint16(2), snaps[1].Reconnects)
	assert.Equal(t, uint16(2), snaps[1].FreshTags)

	assert.Equal(t, snaps[1], d.Status())
}

func TestDispatcher_SecondsInErrorTicks(t *testing.T) {
	d := NewDispatcher(zerolog.Nop(), nil)
	d.tick = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan poller.CycleReport)
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx, in)
	}()

	in <- poller.CycleReport{Healthy: false, Err: ua.StatusBadNotConnected}

	require.Eventually(t, func() bool {
		return d.Status().SecondsInError >= 2
	}, 2*time.Second, 5*time.Millisecond)

	snap := d.Status()
	assert.Equal(t, status.HealthError, snap.Health)
	assert.Equal(t, uint32(ua.StatusBadNotConnected), snap.LastStatusCode)

	// recovery resets the counter
	in <- poller.CycleReport{Healthy: true}
	require.Eventually(t, func() bool {
		s := d.Status()
		return s.Health == status.HealthOK && s.SecondsInError == 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
