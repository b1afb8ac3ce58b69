// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/tamzrod/opcua-replicator/internal/session"
	"github.com/tamzrod/opcua-replicator/internal/session/uaclient"
)

// StatusBlockSlots is the size of one device status block in registers.
const StatusBlockSlots = 20

// encodingWidths is the number of holding registers per value.
var encodingWidths = map[string]uint16{
	"int16":   1,
	"int32":   2,
	"float32": 2,
	"float64": 4,
}

// EncodingWidth returns the register count of a mirror encoding.
func EncodingWidth(enc string) (uint16, bool) {
	w, ok := encodingWidths[enc]
	return w, ok
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: empty")
	}

	if err := validateSource(cfg.Source); err != nil {
		return err
	}
	if err := validateTags(cfg.Tags); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// POLL / RECONNECT
	// ------------------------------------------------------------

	p := cfg.Poll
	if p.IntervalMs <= 0 {
		return fmt.Errorf("poll: interval_ms must be > 0")
	}
	if p.ReadTimeoutMs <= 0 || p.ReadTimeoutMs >= p.IntervalMs {
		return fmt.Errorf("poll: read_timeout_ms=%d must be > 0 and shorter than interval_ms=%d",
			p.ReadTimeoutMs, p.IntervalMs)
	}
	if p.Mode != "single" && p.Mode != "batch" {
		return fmt.Errorf("poll: mode %q must be single or batch", p.Mode)
	}
	if cfg.Reconnect.InitialMs <= 0 || cfg.Reconnect.InitialMs > cfg.Reconnect.MaxMs {
		return fmt.Errorf("reconnect: initial_ms=%d must be > 0 and <= max_ms=%d",
			cfg.Reconnect.InitialMs, cfg.Reconnect.MaxMs)
	}

	if err := validateMirror(cfg); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// MQTT / LOG
	// ------------------------------------------------------------

	if m := cfg.MQTT; m != nil {
		if m.Broker == "" {
			return fmt.Errorf("mqtt: broker required")
		}
		if m.Format != "json" && m.Format != "cbor" {
			return fmt.Errorf("mqtt: format %q must be json or cbor", m.Format)
		}
		if m.QoS > 2 {
			return fmt.Errorf("mqtt: qos %d out of range 0..2", m.QoS)
		}
	}

	if f := cfg.Log.Format; f != "" && f != "json" && f != "console" {
		return fmt.Errorf("log: format %q must be json or console", f)
	}

	return nil
}

func validateSource(s SourceConfig) error {
	if _, err := session.ParseEndpoint(s.Endpoint); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if s.ConnectTimeoutMs <= 0 || s.RequestTimeoutMs <= 0 || s.SessionTimeoutMs <= 0 {
		return fmt.Errorf("source: connect, request and session timeouts must be > 0")
	}

	if _, ok := uaclient.PolicyURI(s.SecurityPolicy); !ok {
		return fmt.Errorf("source: unknown security_policy %q", s.SecurityPolicy)
	}
	if _, ok := uaclient.SecurityMode(s.SecurityMode); !ok {
		return fmt.Errorf("source: unknown security_mode %q", s.SecurityMode)
	}

	secured := s.SecurityPolicy != "" && !strings.EqualFold(s.SecurityPolicy, "none")
	modeNone := strings.EqualFold(s.SecurityMode, "none") || s.SecurityMode == ""
	if secured == modeNone {
		return fmt.Errorf("source: security_policy %q and security_mode %q are inconsistent",
			s.SecurityPolicy, s.SecurityMode)
	}

	if s.CertificatePolicy != "" && s.CertificatePolicy != string(session.AcceptAll) {
		return fmt.Errorf("source: certificate_policy %q unsupported (only %s)", s.CertificatePolicy, session.AcceptAll)
	}
	if secured {
		if s.CertificatePolicy != string(session.AcceptAll) {
			return fmt.Errorf("source: security_policy %s requires certificate_policy: %s", s.SecurityPolicy, session.AcceptAll)
		}
		if s.CertificateFile == "" || s.PrivateKeyFile == "" {
			return fmt.Errorf("source: security_policy %s requires certificate_file and private_key_file", s.SecurityPolicy)
		}
	}
	return nil
}

func validateTags(tags []TagConfig) error {
	if len(tags) == 0 {
		return fmt.Errorf("tags: at least one tag required")
	}
	seen := make(map[string]struct{}, len(tags))
	for i, t := range tags {
		if t.NamespaceURI == "" || t.Name == "" || t.LogicalName == "" {
			return fmt.Errorf("tags[%d]: namespace_uri, name and logical_name are required", i)
		}
		if _, dup := seen[t.LogicalName]; dup {
			return fmt.Errorf("tags[%d]: duplicate logical_name %q", i, t.LogicalName)
		}
		seen[t.LogicalName] = struct{}{}
	}
	return nil
}

// validateMirror checks register mappings and the status block.
// Spans are inclusive and keyed by endpoint | unit_id.
func validateMirror(cfg *Config) error {
	type span struct {
		start uint32
		end   uint32
		owner string
	}

	known := make(map[string]struct{}, len(cfg.Tags))
	for _, t := range cfg.Tags {
		known[t.LogicalName] = struct{}{}
	}

	spans := make(map[string][]span)
	claim := func(endpoint string, unit uint8, start, width uint32, owner string) error {
		end := start + width - 1
		if end > 0xFFFF {
			return fmt.Errorf("%s: range %d-%d exceeds register space", owner, start, end)
		}
		key := fmt.Sprintf("%s|%d", endpoint, unit)
		for _, s := range spans[key] {
			// overlap check (inclusive)
			if !(end < s.start || start > s.end) {
				return fmt.Errorf(
					"register overlap: endpoint=%s unit_id=%d range=%d-%d (%s) overlaps %d-%d (%s)",
					endpoint, unit, start, end, owner, s.start, s.end, s.owner,
				)
			}
		}
		spans[key] = append(spans[key], span{start: start, end: end, owner: owner})
		return nil
	}

	for ti, t := range cfg.Targets {
		if t.Endpoint == "" {
			return fmt.Errorf("targets[%d]: endpoint required", ti)
		}
		if len(t.Registers) == 0 {
			return fmt.Errorf("targets[%d]: at least one register mapping required", ti)
		}
		for ri, r := range t.Registers {
			if _, ok := known[r.Tag]; !ok {
				return fmt.Errorf("targets[%d].registers[%d]: unknown tag %q", ti, ri, r.Tag)
			}
			w, ok := EncodingWidth(r.Encoding)
			if !ok {
				return fmt.Errorf("targets[%d].registers[%d]: unknown encoding %q", ti, ri, r.Encoding)
			}
			if err := claim(t.Endpoint, t.UnitID, uint32(r.Address), uint32(w), "tag "+r.Tag); err != nil {
				return err
			}
		}
	}

	st := cfg.Status
	if st == nil {
		return nil
	}
	if st.Endpoint == "" {
		return fmt.Errorf("status: endpoint required")
	}
	// device_name sanity (ASCII only)
	for i := 0; i < len(st.DeviceName); i++ {
		if st.DeviceName[i] > 0x7F {
			return fmt.Errorf("status: device_name must contain ASCII characters only")
		}
	}
	base := uint32(st.Slot) * StatusBlockSlots
	return claim(st.Endpoint, st.UnitID, base, StatusBlockSlots, "status block")
}
