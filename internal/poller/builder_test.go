// internal/poller/builder_test.go
package poller

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/opcua-replicator/internal/config"
)

func TestBuild_FromConfig(t *testing.T) {
	c := &cfg.Config{
		Source: cfg.SourceConfig{Endpoint: "opc.tcp://localhost:4840/server/"},
		Tags: []cfg.TagConfig{
			{NamespaceURI: robotNS, Name: "R1d_Joi1", LogicalName: "joint1"},
			{NamespaceURI: robotNS, Name: "R1d_Joi2", LogicalName: "joint2"},
		},
		Poll: cfg.PollConfig{Mode: "batch"},
	}
	cfg.Normalize(c)
	if err := cfg.Validate(c); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	e, mgr, err := Build(c, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build() err=%v", err)
	}
	if mgr.Open() != 0 {
		t.Fatalf("Build must not dial, open=%d", mgr.Open())
	}

	got := e.Config()
	if got.Interval != time.Second || got.ReadTimeout != 500*time.Millisecond {
		t.Fatalf("timing: interval=%s read=%s", got.Interval, got.ReadTimeout)
	}
	if got.ConnectTimeout != 15*time.Second {
		t.Fatalf("connect timeout = %s", got.ConnectTimeout)
	}
	if got.Mode != BatchRead {
		t.Fatalf("mode = %s", got.Mode)
	}
	if got.Backoff.Initial != time.Second || got.Backoff.Max != 30*time.Second {
		t.Fatalf("backoff = %+v", got.Backoff)
	}
	if names := e.Cache().Names(); len(names) != 2 || names[0] != "joint1" {
		t.Fatalf("cache names = %v", names)
	}
}

func TestBuild_BadEndpoint(t *testing.T) {
	c := &cfg.Config{Source: cfg.SourceConfig{Endpoint: "tcp://x"}}
	if _, _, err := Build(c, zerolog.Nop()); err == nil {
		t.Fatalf("expected error")
	}
}
