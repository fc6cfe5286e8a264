// Package broker пересылает доменные события из внутренней шины во внешний брокер.
package broker

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/events"
)

// Publisher внешний брокер сообщений
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
	Close() error
}

// message формат сообщения в брокере
type message struct {
	MessageID string           `json:"message_id"`
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
}

func marshalMessage(event events.Event, nodeID string) ([]byte, error) {
	return json.Marshal(message{
		MessageID: event.ID.String(),
		EventType: event.Type,
		Payload:   event.Payload,
		Timestamp: event.OccurredAt,
		NodeID:    nodeID,
	})
}

func nodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
