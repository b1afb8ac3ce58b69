// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/opcua-replicator/internal/status"
)

// StatusWriter is the delivery-only contract for device status.
// It receives a snapshot and writes it verbatim.
// No logic, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter is the concrete implementation used by the replicator.
type deviceStatusWriter struct {
	plan *StatusPlan
	cli  endpointClient

	needFull bool
	last     status.Snapshot
	nameRegs []uint16
}

// NewDeviceStatusWriter builds a status writer if status is enabled.
// If plan.Status is nil, status is disabled.
func NewDeviceStatusWriter(plan Plan, clients map[string]endpointClient) (*deviceStatusWriter, bool) {
	if plan.Status == nil {
		return nil, false
	}

	sp := plan.Status

	return &deviceStatusWriter{
		plan:     sp,
		cli:      clients[sp.Endpoint],
		needFull: true, // full re-assert on first successful write
		last:     status.Snapshot{Health: status.HealthUnknown},
		nameRegs: status.EncodeDeviceName(sp.DeviceName),
	}, true
}

// slotWrite is one incremental register update.
type slotWrite struct {
	name string
	slot uint16
	regs []uint16
}

// WriteStatus delivers a device status snapshot into status memory.
// On any write failure, the next successful call will re-assert the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.plan == nil {
		return errors.New("status writer: disabled")
	}
	if sw.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", sw.plan.Endpoint)
	}

	baseAddr := sw.baseAddr()
	unitID := sw.plan.UnitID

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(unitID, baseAddr, status.Encode(s, sw.nameRegs)); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = s
		return nil
	}

	// ------------------------------------------------------------
	// Incremental: only slots whose value moved
	// ------------------------------------------------------------
	var pending []slotWrite
	if sw.last.Health != s.Health {
		pending = append(pending, slotWrite{"health", status.SlotHealthCode, []uint16{s.Health}})
	}
	if sw.last.LastStatusCode != s.LastStatusCode {
		// both words together: a reader must never see a torn code
		pending = append(pending, slotWrite{"last_status", status.SlotLastStatusHi,
			[]uint16{uint16(s.LastStatusCode >> 16), uint16(s.LastStatusCode)}})
	}
	if sw.last.SecondsInError != s.SecondsInError {
		pending = append(pending, slotWrite{"seconds_in_error", status.SlotSecondsInError, []uint16{s.SecondsInError}})
	}
	if sw.last.Reconnects != s.Reconnects {
		pending = append(pending, slotWrite{"reconnects", status.SlotReconnects, []uint16{s.Reconnects}})
	}
	if sw.last.FreshTags != s.FreshTags {
		pending = append(pending, slotWrite{"fresh_tags", status.SlotFreshTags, []uint16{s.FreshTags}})
	}

	var errs []string
	for _, w := range pending {
		if err := sw.cli.WriteRegisters(unitID, baseAddr+w.slot, w.regs); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", w.slot, w.name, err))
		}
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt: re-assert on next success.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	sw.last = s
	return nil
}

func (sw *deviceStatusWriter) baseAddr() uint16 {
	// Each device owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}
