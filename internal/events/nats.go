package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// StreamConfig describes the JetStream stream events are stored in.
type StreamConfig struct {
	Name     string
	Subjects []string
	MaxAge   time.Duration
}

// NATSConfig configures a NATSPublisher.
type NATSConfig struct {
	URL            string
	Name           string
	Stream         StreamConfig
	ConnectTimeout time.Duration
	Logger         zerolog.Logger
}

// NATSPublisher publishes events to a JetStream stream. The subject of each
// message is the event type.
type NATSPublisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger zerolog.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to cfg.URL and makes sure the stream exists.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if strings.TrimSpace(cfg.Stream.Name) == "" {
		return nil, fmt.Errorf("stream name is required")
	}
	if len(cfg.Stream.Subjects) == 0 {
		cfg.Stream.Subjects = []string{SubjectPrefix + ".>"}
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	logger := cfg.Logger.With().Str("component", "events").Logger()

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("disconnected from nats")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("reconnected to nats")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	if err := ensureStream(js, cfg.Stream); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info().Str("stream", cfg.Stream.Name).Strs("subjects", cfg.Stream.Subjects).Msg("event publisher ready")
	return &NATSPublisher{conn: conn, js: js, logger: logger}, nil
}

func ensureStream(js nats.JetStreamContext, cfg StreamConfig) error {
	streamCfg := &nats.StreamConfig{
		Name:     cfg.Name,
		Subjects: cfg.Subjects,
		Storage:  nats.FileStorage,
		MaxAge:   cfg.MaxAge,
	}

	_, err := js.StreamInfo(cfg.Name)
	switch {
	case err == nil:
		if _, err := js.UpdateStream(streamCfg); err != nil {
			return fmt.Errorf("updating stream %s: %w", cfg.Name, err)
		}
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, err := js.AddStream(streamCfg); err != nil {
			return fmt.Errorf("creating stream %s: %w", cfg.Name, err)
		}
	default:
		return fmt.Errorf("looking up stream %s: %w", cfg.Name, err)
	}
	return nil
}

// Publish sends event and waits for the stream acknowledgement. The event
// ID doubles as the JetStream message ID for duplicate suppression.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if strings.TrimSpace(event.Type) == "" {
		return fmt.Errorf("event type is required")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.ID, err)
	}

	if _, err := p.js.Publish(event.Type, data, nats.Context(ctx), nats.MsgId(event.ID)); err != nil {
		return fmt.Errorf("publishing event %s: %w", event.ID, err)
	}

	p.logger.Debug().Str("event_id", event.ID).Str("type", event.Type).Str("subject", event.Subject).Msg("event published")
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		return fmt.Errorf("draining nats connection: %w", err)
	}
	return nil
}
