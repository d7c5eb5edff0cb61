// Package mqtt maps nodes onto retained MQTT topics: the broker keeps exactly
// one current value per topic, which new subscribers receive immediately.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ghalamif/aegis-sensor/internal/ports"
)

type Config struct {
	Broker         string        `yaml:"broker"`
	ClientIDPrefix string        `yaml:"client_id_prefix"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	QoS            byte          `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	KeepAlive      time.Duration `yaml:"keep_alive"`
}

func (c *Config) ApplyDefaults() {
	if c.Broker == "" {
		c.Broker = "tcp://localhost:1883"
	}
	if c.ClientIDPrefix == "" {
		c.ClientIDPrefix = "aegis-sensor"
	}
	if c.QoS == 0 {
		c.QoS = 1
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = 30 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Broker == "" {
		return errors.New("broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	return nil
}

type Transport struct {
	cfg Config
	seq atomic.Uint64
}

func NewTransport(cfg Config) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Transport{cfg: cfg}, nil
}

func (t *Transport) Name() string { return "mqtt" }

func (t *Transport) Connect(ctx context.Context) (ports.Connection, error) {
	c := &connection{lost: make(chan struct{}), qos: t.cfg.QoS}

	opts := paho.NewClientOptions().
		AddBroker(t.cfg.Broker).
		SetClientID(t.clientID()).
		SetAutoReconnect(false).
		SetCleanSession(true).
		SetConnectTimeout(t.cfg.ConnectTimeout).
		SetKeepAlive(t.cfg.KeepAlive).
		SetOrderMatters(true).
		SetConnectionLostHandler(func(_ paho.Client, _ error) { c.markLost() })
	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username).SetPassword(t.cfg.Password)
	}

	c.client = paho.NewClient(opts)
	tok := c.client.Connect()
	if err := waitToken(ctx, tok); err != nil {
		if ctx.Err() != nil {
			abandonConnect(c.client, tok)
		}
		return nil, fmt.Errorf("mqtt connect %s: %w", t.cfg.Broker, err)
	}
	return c, nil
}

// abandonConnect releases a client whose connect was cut short by ctx. The
// attempt keeps running inside paho, so a late success is disconnected too.
func abandonConnect(client paho.Client, tok paho.Token) {
	client.Disconnect(0)
	go func() {
		<-tok.Done()
		if tok.Error() == nil {
			client.Disconnect(0)
		}
	}()
}

func (t *Transport) clientID() string {
	return fmt.Sprintf("%s-%d-%d", t.cfg.ClientIDPrefix, os.Getpid(), t.seq.Add(1))
}

type connection struct {
	client paho.Client
	qos    byte

	lost     chan struct{}
	lostOnce sync.Once
}

// WriteValue publishes value as the retained value of topic node.
func (c *connection) WriteValue(ctx context.Context, node string, value []byte) error {
	if strings.ContainsAny(node, "+#") {
		return fmt.Errorf("mqtt topic %q contains wildcards", node)
	}
	if c.isLost() || !c.client.IsConnectionOpen() {
		return fmt.Errorf("%w: mqtt publish %q", ports.ErrConnectionLost, node)
	}

	err := waitToken(ctx, c.client.Publish(node, c.qos, true, value))
	if err == nil {
		return nil
	}
	if c.isLost() || errors.Is(err, paho.ErrNotConnected) || !c.client.IsConnectionOpen() {
		return fmt.Errorf("%w: mqtt publish %q: %w", ports.ErrConnectionLost, node, err)
	}
	return fmt.Errorf("mqtt publish %q: %w", node, err)
}

func (c *connection) Close(context.Context) error {
	c.markLost()
	c.client.Disconnect(250)
	return nil
}

func (c *connection) markLost() {
	c.lostOnce.Do(func() { close(c.lost) })
}

func (c *connection) isLost() bool {
	select {
	case <-c.lost:
		return true
	default:
		return false
	}
}

func waitToken(ctx context.Context, t paho.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ ports.Transport = (*Transport)(nil)
