package aegissensor

import (
	"github.com/ghalamif/aegis-sensor/internal/adapters/mqtt"
	"github.com/ghalamif/aegis-sensor/internal/adapters/observability"
	"github.com/ghalamif/aegis-sensor/internal/adapters/opcua"
	"github.com/ghalamif/aegis-sensor/internal/app/config"
	"github.com/ghalamif/aegis-sensor/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	SensorsConfig   = config.SensorsConfig
	TransportConfig = config.TransportConfig
	SigningConfig   = config.SigningConfig
	ScheduleConfig  = config.ScheduleConfig
	MetricsConfig   = config.MetricsConfig
	JournalConfig   = config.JournalConfig
	// OPCUAConfig holds the OPC UA session settings.
	OPCUAConfig = opcua.Config
	// MQTTConfig holds the broker settings.
	MQTTConfig = mqtt.Config
	LogConfig  = observability.LogConfig
	// JournalPolicy bounds the journal queue and batches.
	JournalPolicy = ports.JournalPolicy
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// ParseConfig reads YAML from memory.
func ParseConfig(raw []byte) (*Config, error) {
	return config.Parse(raw)
}
