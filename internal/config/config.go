// internal/config/config.go
package config

type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Tags      []TagConfig     `yaml:"tags"`
	Poll      PollConfig      `yaml:"poll"`
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// Modbus mirror (optional)
	Targets []TargetConfig `yaml:"targets"`
	Status  *StatusConfig  `yaml:"status"`

	MQTT *MQTTConfig `yaml:"mqtt"`
	HTTP HTTPConfig  `yaml:"http"`
	Log  LogConfig   `yaml:"log"`
}

// ---- SOURCE ----

type SourceConfig struct {
	Endpoint         string `yaml:"endpoint"`
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms"`
	SessionTimeoutMs int    `yaml:"session_timeout_ms"`

	SecurityPolicy    string `yaml:"security_policy"`
	SecurityMode      string `yaml:"security_mode"`
	CertificatePolicy string `yaml:"certificate_policy"`
	CertificateFile   string `yaml:"certificate_file"`
	PrivateKeyFile    string `yaml:"private_key_file"`

	ApplicationName string `yaml:"application_name"`
}

// ---- TAGS ----

type TagConfig struct {
	NamespaceURI string `yaml:"namespace_uri"`
	Name         string `yaml:"name"`
	LogicalName  string `yaml:"logical_name"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs    int    `yaml:"interval_ms"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
	Mode          string `yaml:"mode"` // single | batch
}

type ReconnectConfig struct {
	InitialMs int `yaml:"initial_ms"`
	MaxMs     int `yaml:"max_ms"`
}

// ---- MODBUS MIRROR ----

type TargetConfig struct {
	Endpoint  string           `yaml:"endpoint"`
	UnitID    uint8            `yaml:"unit_id"`
	TimeoutMs int              `yaml:"timeout_ms"`
	Registers []RegisterConfig `yaml:"registers"`
}

type RegisterConfig struct {
	Tag      string `yaml:"tag"` // logical name
	Address  uint16 `yaml:"address"`
	Encoding string `yaml:"encoding"` // float32 | float64 | int16 | int32
}

// StatusConfig enables the device status block.
type StatusConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	Slot       uint16 `yaml:"slot"`
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	Format      string `yaml:"format"` // json | cbor
	QoS         byte   `yaml:"qos"`
	Retained    bool   `yaml:"retained"`
}

// ---- HTTP / LOG ----

type HTTPConfig struct {
	Listen string `yaml:"listen"` // empty disables the API
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}
