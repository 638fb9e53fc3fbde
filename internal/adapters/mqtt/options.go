package mqtt

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// DefaultTopicPrefix is the topic root when none is configured.
	DefaultTopicPrefix = "seriallog"

	// DefaultClientID is used when no client ID is configured.
	DefaultClientID = "seriallog"

	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second
	defaultMaxReconnect      = 30 * time.Second

	maxQoS        = 2
	tlsMinVersion = tls.VersionTLS12
)

// Config configures the broker connection.
type Config struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883 or ssl://host:8883.
	Broker   string
	ClientID string
	Username string
	Password string

	// TopicPrefix is prepended to every topic.
	TopicPrefix string

	// QoS applies to every publish and subscription.
	QoS byte
}

// SetDefaults fills in zero fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("%w: broker URL is required", ErrConnectionFailed)
	}
	if c.QoS > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}

// Topics builds topic names under a prefix.
type Topics struct {
	Prefix string
}

// Batch is the topic sealed batches are published on.
func (t Topics) Batch() string { return t.Prefix + "/batch" }

// Rate is the topic rate reports are published on.
func (t Topics) Rate() string { return t.Prefix + "/rate" }

// Status is the retained online/offline topic.
func (t Topics) Status() string { return t.Prefix + "/status" }

// ControlPaused is the pause command topic.
func (t Topics) ControlPaused() string { return t.Prefix + "/control/paused" }

// ControlExport is the export command topic.
func (t Topics) ControlExport() string { return t.Prefix + "/control/export" }

// buildClientOptions creates paho options from cfg.
func buildClientOptions(cfg Config) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(defaultMaxReconnect)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if strings.HasPrefix(cfg.Broker, "ssl://") || strings.HasPrefix(cfg.Broker, "tls://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	// the broker publishes this if we drop off without a clean Close
	opts.SetWill(Topics{cfg.TopicPrefix}.Status(), statusPayload(cfg.ClientID, "offline", "unexpected_disconnect"), 1, true)
	return opts
}

func statusPayload(clientID, status, reason string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	if reason == "" {
		return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`, status, clientID, ts)
	}
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"reason":%q,"timestamp":%q}`, status, clientID, reason, ts)
}
