package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/events"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

func DefaultNATSConfig(url, prefix string) NATSConfig {
	return NATSConfig{
		URL:           url,
		SubjectPrefix: prefix,
		MaxReconnects: -1, // бесконечно
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSPublisher публикует события в subject "<prefix>.events.<type>"
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	nodeID string
}

func NewNATSPublisher(cfg NATSConfig, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("interview-scheduler"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATSPublisher{conn: conn, prefix: cfg.SubjectPrefix, nodeID: nodeID()}, nil
}

func natsSubject(prefix string, eventType events.EventType) string {
	return fmt.Sprintf("%s.events.%s", prefix, eventType)
}

func (p *NATSPublisher) Publish(_ context.Context, event events.Event) error {
	data, err := marshalMessage(event, p.nodeID)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(natsSubject(p.prefix, event.Type), data); err != nil {
		return fmt.Errorf("publish to nats: %w", err)
	}
	return nil
}

// Close дожидается отправки буфера и закрывает соединение
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
