package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/aegis-sensor/internal/adapters/mqtt"
	"github.com/ghalamif/aegis-sensor/internal/adapters/observability"
	"github.com/ghalamif/aegis-sensor/internal/adapters/opcua"
	"github.com/ghalamif/aegis-sensor/internal/adapters/sink"
	"github.com/ghalamif/aegis-sensor/internal/ports"
)

const (
	KindOPCUA  = "opcua"
	KindMQTT   = "mqtt"
	KindMemory = "memory"

	DefaultPassphraseEnv = "AEGIS_KEY_PASSPHRASE"
)

type Config struct {
	Sensors   SensorsConfig           `yaml:"sensors"`
	Transport TransportConfig         `yaml:"transport"`
	Signing   SigningConfig           `yaml:"signing"`
	Schedule  ScheduleConfig          `yaml:"schedule"`
	Metrics   MetricsConfig           `yaml:"metrics"`
	Logging   observability.LogConfig `yaml:"logging"`
	Journal   JournalConfig           `yaml:"journal"`
}

// SensorsConfig names the simulated sensors either explicitly (ids) or as a
// contiguous range of count ids starting at first_id.
type SensorsConfig struct {
	IDs        []int32 `yaml:"ids"`
	Count      int     `yaml:"count"`
	FirstID    int32   `yaml:"first_id"`
	NodePrefix string  `yaml:"node_prefix"`
}

type TransportConfig struct {
	Kind   string       `yaml:"kind"`
	OPCUA  opcua.Config `yaml:"opcua"`
	MQTT   mqtt.Config  `yaml:"mqtt"`
	Memory MemoryConfig `yaml:"memory"`
}

type MemoryConfig struct {
	HistoryLimit int `yaml:"history_limit"`
}

type SigningConfig struct {
	// Disabled publishes frames with a zero-length signature.
	Disabled      bool   `yaml:"disabled"`
	KeyPath       string `yaml:"key_path"`
	PassphraseEnv string `yaml:"passphrase_env"`
}

type ScheduleConfig struct {
	TimeUnit         time.Duration `yaml:"time_unit"`
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// JournalConfig enables the publish journal when ConnString is set.
type JournalConfig struct {
	ConnString string              `yaml:"conn_string"`
	Table      string              `yaml:"table"`
	Policy     ports.JournalPolicy `yaml:"policy"`
}

func (j JournalConfig) Enabled() bool { return j.ConnString != "" }

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// OverrideSensors replaces the configured sensors with ids, or with the range
// [firstID, firstID+count) when ids is empty, and revalidates.
func (c *Config) OverrideSensors(ids []int32, count int, firstID int32) error {
	switch {
	case len(ids) > 0:
		c.Sensors.IDs = ids
		c.Sensors.Count = 0
	case count > 0:
		c.Sensors.IDs = nil
		c.Sensors.Count = count
		c.Sensors.FirstID = firstID
	default:
		return nil
	}
	return c.Sensors.validate()
}

// SensorIDs resolves the configured sensor identities in publish order.
func (c *Config) SensorIDs() []int32 {
	if len(c.Sensors.IDs) > 0 {
		return append([]int32(nil), c.Sensors.IDs...)
	}
	ids := make([]int32, c.Sensors.Count)
	for i := range ids {
		ids[i] = c.Sensors.FirstID + int32(i)
	}
	return ids
}

// Passphrase returns override if set, otherwise the value of the configured
// environment variable. Nil means no passphrase.
func (c *Config) Passphrase(override string) []byte {
	if override != "" {
		return []byte(override)
	}
	if v := os.Getenv(c.Signing.PassphraseEnv); v != "" {
		return []byte(v)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Sensors.IDs) == 0 && c.Sensors.Count == 0 {
		c.Sensors.Count = 1
	}
	if len(c.Sensors.IDs) == 0 && c.Sensors.FirstID == 0 {
		c.Sensors.FirstID = 1
	}
	if c.Transport.Kind == "" {
		c.Transport.Kind = KindOPCUA
	}
	if c.Sensors.NodePrefix == "" {
		switch c.Transport.Kind {
		case KindMQTT:
			c.Sensors.NodePrefix = "aegis/sensors/"
		case KindMemory:
			c.Sensors.NodePrefix = "sensor-"
		default:
			c.Sensors.NodePrefix = "ns=1;s=sensor-"
		}
	}
	if c.Transport.Memory.HistoryLimit == 0 {
		c.Transport.Memory.HistoryLimit = 100
	}
	c.Transport.OPCUA.ApplyDefaults()
	c.Transport.MQTT.ApplyDefaults()

	if c.Signing.PassphraseEnv == "" {
		c.Signing.PassphraseEnv = DefaultPassphraseEnv
	}
	if c.Schedule.TimeUnit == 0 {
		c.Schedule.TimeUnit = time.Second
	}
	if c.Schedule.ReconnectBackoff == 0 {
		c.Schedule.ReconnectBackoff = time.Second
	}
	if c.Schedule.WriteTimeout == 0 {
		c.Schedule.WriteTimeout = 5 * time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	c.Logging.ApplyDefaults()

	if c.Journal.Table == "" {
		c.Journal.Table = "publish_journal"
	}
	if c.Journal.Policy.MaxQueueLen == 0 {
		c.Journal.Policy.MaxQueueLen = 10_000
	}
	if c.Journal.Policy.MaxBatchSize == 0 {
		c.Journal.Policy.MaxBatchSize = 500
	}
	if c.Journal.Policy.IdleSleep == 0 {
		c.Journal.Policy.IdleSleep = 100 * time.Millisecond
	}
}

func (c *Config) validate() error {
	if err := c.Sensors.validate(); err != nil {
		return err
	}

	switch c.Transport.Kind {
	case KindOPCUA:
		if err := c.Transport.OPCUA.Validate(); err != nil {
			return fmt.Errorf("transport.opcua: %w", err)
		}
	case KindMQTT:
		if err := c.Transport.MQTT.Validate(); err != nil {
			return fmt.Errorf("transport.mqtt: %w", err)
		}
	case KindMemory:
	default:
		return fmt.Errorf("transport.kind must be opcua, mqtt or memory, got %q", c.Transport.Kind)
	}

	if !c.Signing.Disabled && c.Signing.KeyPath == "" {
		return errors.New("signing.key_path is required unless signing.disabled is set")
	}
	if c.Schedule.TimeUnit < 0 || c.Schedule.ReconnectBackoff < 0 || c.Schedule.WriteTimeout < 0 {
		return errors.New("schedule durations must not be negative")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Journal.Enabled() && !tableName.MatchString(c.Journal.Table) {
		return fmt.Errorf("journal.table %q is not a valid identifier", c.Journal.Table)
	}
	if err := validatePolicy(c.Journal.Policy); err != nil {
		return fmt.Errorf("journal.policy: %w", err)
	}
	return nil
}

func validatePolicy(p ports.JournalPolicy) error {
	if p.MaxQueueLen < 0 {
		return fmt.Errorf("max_queue_len must not be negative, got %d", p.MaxQueueLen)
	}
	if p.MaxBatchSize < 0 || p.MaxBatchSize > sink.MaxBatchSize {
		return fmt.Errorf("max_batch_size must be between 0 and %d, got %d", sink.MaxBatchSize, p.MaxBatchSize)
	}
	if p.IdleSleep < 0 {
		return fmt.Errorf("idle_sleep must not be negative, got %s", p.IdleSleep)
	}
	return nil
}

func (s *SensorsConfig) validate() error {
	if len(s.IDs) > 0 {
		seen := make(map[int32]bool, len(s.IDs))
		for _, id := range s.IDs {
			if seen[id] {
				return fmt.Errorf("sensors.ids: duplicate id %d", id)
			}
			seen[id] = true
		}
		return nil
	}
	if s.Count <= 0 {
		return fmt.Errorf("sensors.count must be positive, got %d", s.Count)
	}
	if int64(s.FirstID)+int64(s.Count)-1 > math.MaxInt32 {
		return fmt.Errorf("sensors: range starting at %d with count %d overflows int32", s.FirstID, s.Count)
	}
	return nil
}
