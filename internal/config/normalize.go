// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultConnectTimeoutMs = 15000
	DefaultRequestTimeoutMs = 15000
	DefaultSessionTimeoutMs = 60000
	DefaultIntervalMs       = 1000
	DefaultReadTimeoutMs    = 500
	DefaultReconnectInitMs  = 1000
	DefaultReconnectMaxMs   = 30000
	DefaultModbusTimeoutMs  = 1000

	DefaultSecurity        = "None"
	DefaultPollMode        = "single"
	DefaultEncoding        = "float32"
	DefaultApplicationName = "opcua-replicator"
	DefaultMQTTFormat      = "json"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"

	DeviceNameMaxChars = 16
)

// Normalize fills defaults. It mutates cfg and runs before Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// SOURCE
	// ------------------------------------------------------------

	s := &cfg.Source
	setDefault(&s.ConnectTimeoutMs, DefaultConnectTimeoutMs)
	setDefault(&s.RequestTimeoutMs, DefaultRequestTimeoutMs)
	setDefault(&s.SessionTimeoutMs, DefaultSessionTimeoutMs)
	if s.SecurityPolicy == "" {
		s.SecurityPolicy = DefaultSecurity
	}
	if s.SecurityMode == "" {
		s.SecurityMode = DefaultSecurity
	}
	if s.ApplicationName == "" {
		s.ApplicationName = DefaultApplicationName
	}

	// ------------------------------------------------------------
	// POLL / RECONNECT
	// ------------------------------------------------------------

	setDefault(&cfg.Poll.IntervalMs, DefaultIntervalMs)
	if cfg.Poll.ReadTimeoutMs <= 0 {
		cfg.Poll.ReadTimeoutMs = min(DefaultReadTimeoutMs, cfg.Poll.IntervalMs/2)
	}
	if cfg.Poll.Mode == "" {
		cfg.Poll.Mode = DefaultPollMode
	}
	setDefault(&cfg.Reconnect.InitialMs, DefaultReconnectInitMs)
	setDefault(&cfg.Reconnect.MaxMs, DefaultReconnectMaxMs)

	// ------------------------------------------------------------
	// MODBUS MIRROR
	// ------------------------------------------------------------

	for ti := range cfg.Targets {
		t := &cfg.Targets[ti]
		setDefault(&t.TimeoutMs, DefaultModbusTimeoutMs)
		for ri := range t.Registers {
			if t.Registers[ri].Encoding == "" {
				t.Registers[ri].Encoding = DefaultEncoding
			}
		}
	}

	if st := cfg.Status; st != nil {
		setDefault(&st.TimeoutMs, DefaultModbusTimeoutMs)
		// ASCII is checked by Validate; truncation only here
		if len(st.DeviceName) > DeviceNameMaxChars {
			st.DeviceName = st.DeviceName[:DeviceNameMaxChars]
		}
	}

	// ------------------------------------------------------------
	// MQTT / LOG
	// ------------------------------------------------------------

	if m := cfg.MQTT; m != nil {
		if m.Format == "" {
			m.Format = DefaultMQTTFormat
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

func setDefault(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}
