// internal/writer/mqtt/publisher.go
package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tamzrod/opcua-replicator/internal/poller"
)

type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Format      string
	QoS         byte
	Retained    bool
}

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 2 * time.Second
	disconnectMs   = 250
)

// client is the subset of paho.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher mirrors every cache entry to <prefix><logical_name>.
type Publisher struct {
	cfg   Config
	codec Codec
	cli   client
	log   zerolog.Logger

	// waits on a publish token; replaced in tests
	wait func(paho.Token) error
}

// Connect dials the broker and returns a ready publisher.
func Connect(cfg Config, log zerolog.Logger) (*Publisher, error) {
	codec, err := NewCodec(cfg.Format)
	if err != nil {
		return nil, err
	}

	id := cfg.ClientID
	if id == "" {
		id = "opcua-replicator-" + uuid.NewString()[:8]
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(id).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost")
	})

	c := paho.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt: connect %s: timeout", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", cfg.Broker, err)
	}

	log.Info().Str("broker", cfg.Broker).Str("client_id", id).Msg("connected to mqtt broker")

	return newPublisher(cfg, codec, c, log), nil
}

func newPublisher(cfg Config, codec Codec, c client, log zerolog.Logger) *Publisher {
	return &Publisher{
		cfg:   cfg,
		codec: codec,
		cli:   c,
		log:   log,
		wait:  waitToken,
	}
}

func waitToken(t paho.Token) error {
	if !t.WaitTimeout(publishTimeout) {
		return errors.New("publish timeout")
	}
	return t.Error()
}

func (p *Publisher) Name() string { return "mqtt" }

// Topic returns the topic for a logical tag name.
func (p *Publisher) Topic(tag string) string {
	return p.cfg.TopicPrefix + tag
}

// Write publishes every entry of the cycle, stale ones included, so
// subscribers see freshness transitions.
func (p *Publisher) Write(r poller.CycleReport) error {
	var errs []string

	for _, e := range r.Entries {
		payload, err := p.codec.Marshal(FromEntry(e))
		if err != nil {
			errs = append(errs, fmt.Sprintf("mqtt: encode %s: %v", e.Name, err))
			continue
		}

		topic := p.Topic(e.Name)
		if err := p.wait(p.cli.Publish(topic, p.cfg.QoS, p.cfg.Retained, payload)); err != nil {
			errs = append(errs, fmt.Sprintf("mqtt: publish %s: %v", topic, err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.cli.Disconnect(disconnectMs)
	return nil
}
