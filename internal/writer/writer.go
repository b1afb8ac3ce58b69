// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/opcua-replicator/internal/cache"
	"github.com/tamzrod/opcua-replicator/internal/poller"
)

// endpointClient is the exact contract the writers use.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

type registerMirror struct {
	plan    Plan
	clients map[string]endpointClient
}

// New returns the Modbus mirror sink. Only fresh values are written;
// stale and missing tags leave their registers untouched.
func New(plan Plan, clients map[string]endpointClient) Sink {
	return &registerMirror{
		plan:    plan,
		clients: clients,
	}
}

func (w *registerMirror) Name() string { return "modbus" }

func (w *registerMirror) Write(r poller.CycleReport) error {
	if !r.Healthy {
		return nil
	}

	entries := make(map[string]cache.Entry, len(r.Entries))
	for _, e := range r.Entries {
		entries[e.Name] = e
	}

	var errs []string

	for _, tgt := range w.plan.Targets {
		cli := w.clients[tgt.Endpoint]
		if cli == nil {
			errs = append(errs, fmt.Sprintf(
				"writer: missing client for endpoint %s",
				tgt.Endpoint,
			))
			continue
		}

		for _, rd := range tgt.Registers {
			e, ok := entries[rd.Tag]
			if !ok || !e.Fresh {
				continue
			}

			regs, err := EncodeValue(rd.Encoding, e.Sample.Value)
			if err != nil {
				errs = append(errs, err.Error())
				continue
			}

			if err := cli.WriteRegisters(tgt.UnitID, rd.Address, regs); err != nil {
				errs = append(errs, fmt.Sprintf(
					"writer: ep=%s unit=%d tag=%s addr=%d err=%v",
					tgt.Endpoint, tgt.UnitID, rd.Tag, rd.Address, err,
				))
			}
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}

	return nil
}
