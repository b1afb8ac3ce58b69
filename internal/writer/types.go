// internal/writer/types.go
package writer

import "github.com/tamzrod/opcua-replicator/internal/poller"

// RegisterDest maps one tag to a holding register range.
type RegisterDest struct {
	Tag      string // logical name
	Address  uint16
	Encoding Encoding
}

// TargetEndpoint is one Modbus TCP endpoint + unit with its register map.
type TargetEndpoint struct {
	Endpoint  string
	UnitID    uint8
	Registers []RegisterDest
}

// StatusPlan places the device status block. Nil means disabled.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Plan is the fully-built mirror plan.
type Plan struct {
	Targets []TargetEndpoint
	Status  *StatusPlan
}

// Sink consumes engine cycle reports.
type Sink interface {
	Name() string
	Write(r poller.CycleReport) error
}
