package mqtt

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/iot-go-sdk/simulated-device/pkg/auth"
	"github.com/iot-go-sdk/simulated-device/pkg/clock"
	"github.com/iot-go-sdk/simulated-device/pkg/config"
	"github.com/iot-go-sdk/simulated-device/pkg/errors"
	"github.com/iot-go-sdk/simulated-device/pkg/logger"
	tlsutil "github.com/iot-go-sdk/simulated-device/pkg/tls"
)

const (
	eventQoS          = 1
	disconnectQuiesce = 250
	contentType       = "application/json"
	contentEncoding   = "utf-8"
)

// Token tracks a single asynchronous send. paho's mqtt.Token satisfies it.
type Token interface {
	Done() <-chan struct{}
	Error() error
}

type Client struct {
	config     *config.Config
	device     *auth.ConnectionString
	clock      clock.Clock
	mqttClient mqtt.Client
	topic      string
	connected  bool
	mutex      sync.RWMutex
	logger     *logger.Device
}

func NewClient(cfg *config.Config) (*Client, error) {
	device, err := cfg.ParsedConnectionString()
	if err != nil {
		return nil, err
	}
	return &Client{
		config: cfg,
		device: device,
		clock:  clock.Real(),
		topic:  device.EventTopic(),
		logger: logger.Default().With("mqtt"),
	}, nil
}

func (c *Client) SetLogger(l *logger.Device) {
	c.logger = l
}

func (c *Client) SetClock(clk clock.Clock) {
	c.clock = clk
}

// BrokerURL is the address the session is opened against.
func (c *Client) BrokerURL() string {
	scheme := "tcp"
	if c.config.MQTT.UseTLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.device.BrokerHost(), c.config.MQTT.Port)
}

// credentials mints a fresh SAS token. paho calls it on every connect
// and reconnect, so an expired token never outlives a session.
func (c *Client) credentials() (string, string) {
	creds, err := auth.GenerateMQTTCredentials(c.device, c.clock.Now(), c.config.Device.SASTTL)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to mint SAS token")
		return "", ""
	}
	c.logger.Debug().Time("expiry", creds.Expiry).Msg("Minted SAS token")
	return creds.Username, creds.Password
}

func (c *Client) options() (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.BrokerURL())

	if c.config.MQTT.UseTLS {
		tlsConfig, err := tlsutil.ClientConfig(c.device.BrokerHost(), c.config.TLS.CACert, c.config.TLS.SkipVerify)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetClientID(c.device.ClientID())
	opts.SetCredentialsProvider(c.credentials)
	opts.SetProtocolVersion(4)
	opts.SetKeepAlive(c.config.MQTT.KeepAlive)
	opts.SetConnectTimeout(c.config.MQTT.ConnectTimeout)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.SetConnectionLostHandler(c.connectionLostHandler)
	opts.SetOnConnectHandler(c.onConnectHandler)
	opts.SetReconnectingHandler(c.reconnectingHandler)
	return opts, nil
}

// Connect opens the MQTT session, blocking until the broker answers,
// the connect timeout passes or ctx is cancelled.
func (c *Client) Connect(ctx context.Context) error {
	opts, err := c.options()
	if err != nil {
		return errors.Wrap(errors.ErrConnect, err)
	}

	c.mqttClient = mqtt.NewClient(opts)

	token := c.mqttClient.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		c.mqttClient.Disconnect(0)
		return errors.Wrap(errors.ErrConnect, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return errors.Wrap(errors.ErrConnect, err)
	}

	c.mutex.Lock()
	c.connected = true
	c.mutex.Unlock()

	c.logger.Debug().Str("broker", c.BrokerURL()).Msg("MQTT session established")
	return nil
}

func (c *Client) Disconnect() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.mqttClient != nil && c.connected {
		c.mqttClient.Disconnect(disconnectQuiesce)
		c.connected = false
		c.logger.Debug().Msg("Disconnected from MQTT broker")
	}
}

func (c *Client) IsConnected() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.connected && c.mqttClient != nil && c.mqttClient.IsConnectionOpen()
}

// EventTopic returns the publish topic for one message, carrying its id
// and content properties in the property bag.
func (c *Client) EventTopic(messageID string) string {
	return fmt.Sprintf("%s$.mid=%s&$.ct=%s&$.ce=%s",
		c.topic, url.QueryEscape(messageID), url.QueryEscape(contentType), contentEncoding)
}

// SendEvent publishes payload at QoS 1 without waiting for the PUBACK.
// The returned token completes when the broker acknowledges the message
// or the send fails.
func (c *Client) SendEvent(payload []byte) Token {
	if !c.IsConnected() {
		return failedToken(errors.New(errors.ErrNotOpen))
	}
	return c.mqttClient.Publish(c.EventTopic(uuid.NewString()), eventQoS, false, payload)
}

func (c *Client) connectionLostHandler(client mqtt.Client, err error) {
	c.logger.Warn().Err(err).Msg("Connection lost")
}

func (c *Client) onConnectHandler(client mqtt.Client) {
	c.logger.Debug().Msg("Connected to MQTT broker")
}

func (c *Client) reconnectingHandler(client mqtt.Client, opts *mqtt.ClientOptions) {
	c.logger.Info().Msg("Attempting to reconnect to MQTT broker...")
}

type doneToken struct {
	done chan struct{}
	err  error
}

func failedToken(err error) Token {
	t := &doneToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *doneToken) Done() <-chan struct{} { return t.done }
func (t *doneToken) Error() error          { return t.err }
