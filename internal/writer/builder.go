// internal/writer/builder.go
package writer

import (
	"time"

	cfg "github.com/tamzrod/opcua-replicator/internal/config"
	wmodbus "github.com/tamzrod/opcua-replicator/internal/writer/modbus"
)

// BuildPlan converts the mirror section of the config into a Plan.
// Assumes config has already passed overlap validation.
func BuildPlan(c *cfg.Config) (Plan, error) {
	var plan Plan

	for _, t := range c.Targets {
		ep := TargetEndpoint{
			Endpoint: t.Endpoint,
			UnitID:   t.UnitID,
		}

		for _, r := range t.Registers {
			enc, err := ParseEncoding(r.Encoding)
			if err != nil {
				return Plan{}, err
			}
			ep.Registers = append(ep.Registers, RegisterDest{
				Tag:      r.Tag,
				Address:  r.Address,
				Encoding: enc,
			})
		}

		plan.Targets = append(plan.Targets, ep)
	}

	if st := c.Status; st != nil {
		plan.Status = &StatusPlan{
			Endpoint:   st.Endpoint,
			UnitID:     st.UnitID,
			BaseSlot:   st.Slot,
			DeviceName: st.DeviceName,
		}
	}

	return plan, nil
}

// BuildEndpointClients creates one TCP client per unique endpoint,
// data targets and status block included.
func BuildEndpointClients(c *cfg.Config) (map[string]endpointClient, func() error, error) {
	timeouts := map[string]time.Duration{}
	for _, t := range c.Targets {
		timeouts[t.Endpoint] = max(timeouts[t.Endpoint], time.Duration(t.TimeoutMs)*time.Millisecond)
	}
	if st := c.Status; st != nil {
		timeouts[st.Endpoint] = max(timeouts[st.Endpoint], time.Duration(st.TimeoutMs)*time.Millisecond)
	}

	clients := make(map[string]endpointClient)
	var closers []func() error

	for endpoint, timeout := range timeouts {
		cl, err := wmodbus.NewEndpointClient(wmodbus.Config{
			Endpoint: endpoint,
			Timeout:  timeout,
		})
		if err != nil {
			for _, fn := range closers {
				_ = fn()
			}
			return nil, nil, err
		}
		clients[endpoint] = cl
		closers = append(closers, cl.Close)
	}

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	return clients, closeAll, nil
}
