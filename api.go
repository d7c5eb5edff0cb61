package aegissensor

import (
	base "github.com/ghalamif/aegis-sensor/pkg/aegissensor"
)

// Re-exported errors for convenience.
var (
	ErrConnectionLost = base.ErrConnectionLost
)

// Type aliases so consumers can import github.com/ghalamif/aegis-sensor directly.
type (
	Config          = base.Config
	SensorsConfig   = base.SensorsConfig
	TransportConfig = base.TransportConfig
	SigningConfig   = base.SigningConfig
	ScheduleConfig  = base.ScheduleConfig
	MetricsConfig   = base.MetricsConfig
	JournalConfig   = base.JournalConfig
	OPCUAConfig     = base.OPCUAConfig
	MQTTConfig      = base.MQTTConfig
	LogConfig       = base.LogConfig
	JournalPolicy   = base.JournalPolicy
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption
	Transport       = base.Transport
	Connection      = base.Connection
	Sink            = base.Sink
	PayloadSigner   = base.PayloadSigner
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func ParseConfig(raw []byte) (*Config, error) {
	return base.ParseConfig(raw)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithTransport(t Transport) RuntimeOption {
	return base.WithTransport(t)
}

func WithSigner(s PayloadSigner) RuntimeOption {
	return base.WithSigner(s)
}

func WithSink(s Sink) RuntimeOption {
	return base.WithSink(s)
}

func WithPassphrase(p []byte) RuntimeOption {
	return base.WithPassphrase(p)
}

func WithoutMetricsServer() RuntimeOption {
	return base.WithoutMetricsServer()
}
