// internal/writer/builder_test.go
package writer

import (
	"testing"

	cfg "github.com/tamzrod/opcua-replicator/internal/config"
)

func TestBuildPlan(t *testing.T) {
	c := &cfg.Config{
		Targets: []cfg.TargetConfig{
			{
				Endpoint: "10.0.0.5:502",
				UnitID:   3,
				Registers: []cfg.RegisterConfig{
					{Tag: "joint1", Address: 100, Encoding: "float32"},
					{Tag: "joint2", Address: 102, Encoding: "int16"},
				},
			},
		},
		Status: &cfg.StatusConfig{
			Endpoint:   "10.0.0.5:502",
			UnitID:     9,
			Slot:       1,
			DeviceName: "ROBOT-01",
		},
	}

	plan, err := BuildPlan(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Targets) != 1 || len(plan.Targets[0].Registers) != 2 {
		t.Fatalf("unexpected targets: %+v", plan.Targets)
	}
	if got := plan.Targets[0].Registers[0]; got.Encoding != Float32 || got.Address != 100 {
		t.Fatalf("unexpected register: %+v", got)
	}
	if plan.Status == nil || plan.Status.BaseSlot != 1 || plan.Status.UnitID != 9 {
		t.Fatalf("unexpected status plan: %+v", plan.Status)
	}
}

func TestBuildPlan_NoStatus(t *testing.T) {
	plan, err := BuildPlan(&cfg.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Status != nil || len(plan.Targets) != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestBuildPlan_BadEncoding(t *testing.T) {
	c := &cfg.Config{
		Targets: []cfg.TargetConfig{
			{Endpoint: "x:502", Registers: []cfg.RegisterConfig{{Tag: "a", Encoding: "bcd"}}},
		},
	}
	if _, err := BuildPlan(c); err == nil {
		t.Fatalf("expected encoding error")
	}
}
