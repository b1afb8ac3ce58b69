// internal/status/status_test.go
package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gopcua/opcua/ua"

	"github.com/tamzrod/opcua-replicator/internal/cache"
	"github.com/tamzrod/opcua-replicator/internal/poller"
	"github.com/tamzrod/opcua-replicator/internal/session"
)

func TestEncode_Layout(t *testing.T) {
	s := Snapshot{
		Health:         HealthStale,
		LastStatusCode: 0x80340000,
		SecondsInError: 7,
		Reconnects:     2,
		FreshTags:      1,
	}
	regs := Encode(s, EncodeDeviceName("R1"))

	if len(regs) != SlotsPerDevice {
		t.Fatalf("block size = %d", len(regs))
	}
	if regs[SlotHealthCode] != HealthStale {
		t.Fatalf("health = %d", regs[SlotHealthCode])
	}
	if regs[SlotLastStatusHi] != 0x8034 || regs[SlotLastStatusLo] != 0x0000 {
		t.Fatalf("status words = %04x %04x", regs[SlotLastStatusHi], regs[SlotLastStatusLo])
	}
	if regs[SlotSecondsInError] != 7 || regs[SlotReconnects] != 2 || regs[SlotFreshTags] != 1 {
		t.Fatalf("counters = %v", regs[SlotSecondsInError:SlotFreshTags+1])
	}
	for i := SlotReservedStart; i <= SlotReservedEnd; i++ {
		if regs[i] != 0 {
			t.Fatalf("reserved slot %d = %d", i, regs[i])
		}
	}
	if regs[SlotDeviceNameStart] != uint16('R')<<8|uint16('1') {
		t.Fatalf("device name slot = %04x", regs[SlotDeviceNameStart])
	}
}

func TestEncodeDeviceName(t *testing.T) {
	regs := EncodeDeviceName("ABC\x01DEFGHIJKLMNOPQRSTU")

	if len(regs) != SlotDeviceNameSlots {
		t.Fatalf("len = %d", len(regs))
	}
	if regs[0] != uint16('A')<<8|uint16('B') {
		t.Fatalf("reg0 = %04x", regs[0])
	}
	// control character sanitized
	if regs[1] != uint16('C')<<8|uint16('?') {
		t.Fatalf("reg1 = %04x", regs[1])
	}
	// truncated at 16 characters: last pair is "NO"
	if regs[7] != uint16('N')<<8|uint16('O') {
		t.Fatalf("reg7 = %04x", regs[7])
	}
}

func TestErrorCode(t *testing.T) {
	if ErrorCode(nil) != 0 {
		t.Fatalf("nil must map to 0")
	}

	ce := &session.ConnectError{Kind: session.HandshakeRejected, Err: ua.StatusBadSecurityChecksFailed}
	if got := ErrorCode(fmt.Errorf("start: %w", ce)); got != uint32(ua.StatusBadSecurityChecksFailed) {
		t.Fatalf("connect error code = %08x", got)
	}

	if got := ErrorCode(fmt.Errorf("x: %w", ua.StatusBadSessionClosed)); got != uint32(ua.StatusBadSessionClosed) {
		t.Fatalf("wrapped status code = %08x", got)
	}

	if got := ErrorCode(errors.New("opaque")); got != uint32(ua.StatusBadUnexpectedError) {
		t.Fatalf("opaque code = %08x", got)
	}
}

func healthy(entries []cache.Entry, results ...poller.ReadResult) poller.CycleReport {
	return poller.CycleReport{Healthy: true, State: poller.Updating, Results: results, Entries: entries}
}

func TestTracker_Transitions(t *testing.T) {
	tr := NewTracker()
	if tr.Snapshot().Health != HealthUnknown {
		t.Fatalf("initial health = %d", tr.Snapshot().Health)
	}

	// unknown does not tick
	if _, changed := tr.Tick(); changed {
		t.Fatalf("tick while unknown")
	}

	ok := healthy(
		[]cache.Entry{{Name: "joint1", HasValue: true, Fresh: true}},
		poller.ReadResult{Name: "joint1"},
	)
	s, changed := tr.Observe(ok)
	if !changed || s.Health != HealthOK || s.FreshTags != 1 {
		t.Fatalf("after ok: %+v changed=%v", s, changed)
	}

	// same report again: nothing to write
	if _, changed := tr.Observe(ok); changed {
		t.Fatalf("identical report must not change snapshot")
	}

	// one bad tag
	bad := healthy(
		[]cache.Entry{{Name: "joint1", HasValue: true}},
		poller.ReadResult{Name: "joint1", Err: &poller.ReadError{Kind: poller.BadStatus, Status: ua.StatusBadSensorFailure}},
	)
	s, _ = tr.Observe(bad)
	if s.Health != HealthStale || s.LastStatusCode != uint32(ua.StatusBadSensorFailure) || s.FreshTags != 0 {
		t.Fatalf("after bad: %+v", s)
	}

	// session down
	down := poller.CycleReport{State: poller.Faulted, Err: session.ErrClosed, Reconnects: 0}
	s, _ = tr.Observe(down)
	if s.Health != HealthError {
		t.Fatalf("after fault: %+v", s)
	}

	for i := 0; i < 3; i++ {
		tr.Tick()
	}
	if tr.Snapshot().SecondsInError != 3 {
		t.Fatalf("seconds in error = %d", tr.Snapshot().SecondsInError)
	}

	// recovery resets
	rec := ok
	rec.Reconnects = 1
	s, _ = tr.Observe(rec)
	if s.Health != HealthOK || s.SecondsInError != 0 || s.LastStatusCode != 0 || s.Reconnects != 1 {
		t.Fatalf("after recovery: %+v", s)
	}
	if _, changed := tr.Tick(); changed {
		t.Fatalf("tick while ok")
	}
}

func TestTracker_SecondsInErrorSaturates(t *testing.T) {
	tr := NewTracker()
	tr.Observe(poller.CycleReport{State: poller.Faulted})
	tr.snap.SecondsInError = 0xFFFE

	if s, changed := tr.Tick(); !changed || s.SecondsInError != 0xFFFF {
		t.Fatalf("tick to max: %+v", s)
	}
	if s, changed := tr.Tick(); changed || s.SecondsInError != 0xFFFF {
		t.Fatalf("must not wrap: %+v", s)
	}
}
