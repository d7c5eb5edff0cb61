package opcua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/ghalamif/aegis-sensor/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session.
type Config struct {
	Endpoint        string        `yaml:"endpoint"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	SecurityMode    string        `yaml:"security_mode"`
	SecurityPolicy  string        `yaml:"security_policy"`
	CertFile        string        `yaml:"cert_file"`
	KeyFile         string        `yaml:"key_file"`
	ApplicationName string        `yaml:"application_name"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "opc.tcp://localhost:4840"
	}
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "Aegis Sensor"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if !strings.HasPrefix(c.Endpoint, "opc.tcp://") {
		return fmt.Errorf("endpoint %q must use opc.tcp://", c.Endpoint)
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("cert_file and key_file must be set together")
	}
	return nil
}

// Transport writes frames as ByteString values of OPC UA variable nodes.
// Node names are OPC UA node ids such as "ns=1;s=sensor-7".
type Transport struct {
	cfg Config
}

func NewTransport(cfg Config) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Transport{cfg: cfg}, nil
}

func (t *Transport) Name() string { return "opcua" }

// Connect opens a fresh session. Reconnection is left to the caller.
func (t *Transport) Connect(ctx context.Context) (ports.Connection, error) {
	client, err := opcua.NewClient(t.cfg.Endpoint, t.buildClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcua connect %s: %w", t.cfg.Endpoint, err)
	}
	return &connection{client: client, nodes: make(map[string]*ua.NodeID)}, nil
}

type connection struct {
	client *opcua.Client

	mu    sync.Mutex
	nodes map[string]*ua.NodeID
}

func (c *connection) WriteValue(ctx context.Context, node string, value []byte) error {
	id, err := c.nodeID(node)
	if err != nil {
		return err
	}
	v, err := ua.NewVariant(value)
	if err != nil {
		return fmt.Errorf("opcua variant: %w", err)
	}

	req := &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{
			{
				NodeID:      id,
				AttributeID: ua.AttributeIDValue,
				Value: &ua.DataValue{
					EncodingMask: ua.DataValueValue,
					Value:        v,
				},
			},
		},
	}

	resp, err := c.client.Write(ctx, req)
	if err != nil {
		return c.classify(fmt.Errorf("opcua write %q: %w", node, err))
	}
	if len(resp.Results) == 0 {
		return fmt.Errorf("opcua write %q failed: empty result", node)
	}
	if status := resp.Results[0]; status != ua.StatusOK {
		return c.classify(fmt.Errorf("opcua write %q: %w", node, status))
	}
	return nil
}

func (c *connection) Close(ctx context.Context) error {
	if err := c.client.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *connection) nodeID(node string) (*ua.NodeID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.nodes[node]; ok {
		return id, nil
	}
	id, err := ua.ParseNodeID(node)
	if err != nil {
		return nil, fmt.Errorf("parse node id %q: %w", node, err)
	}
	c.nodes[node] = id
	return id, nil
}

func (c *connection) classify(err error) error {
	if isConnectionLoss(err) || c.client.State() == opcua.Closed || c.client.State() == opcua.Disconnected {
		return fmt.Errorf("%w: %w", ports.ErrConnectionLost, err)
	}
	return err
}

var lostStatus = map[ua.StatusCode]bool{
	ua.StatusBadConnectionClosed:    true,
	ua.StatusBadSecureChannelClosed: true,
	ua.StatusBadSessionClosed:       true,
	ua.StatusBadSessionIDInvalid:    true,
	ua.StatusBadServerNotConnected:  true,
	ua.StatusBadNotConnected:        true,
	ua.StatusBadCommunicationError:  true,
}

func isConnectionLoss(err error) bool {
	var status ua.StatusCode
	if errors.As(err, &status) && lostStatus[status] {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

func (t *Transport) buildClientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(t.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(t.cfg.SecurityPolicy)),
		opcua.ApplicationName(t.cfg.ApplicationName),
		opcua.RequestTimeout(t.cfg.RequestTimeout),
		opcua.AutoReconnect(false),
	}

	if t.cfg.CertFile != "" {
		opts = append(opts, opcua.CertificateFile(t.cfg.CertFile), opcua.PrivateKeyFile(t.cfg.KeyFile))
	}
	if t.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(t.cfg.Username, t.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.Transport = (*Transport)(nil)
