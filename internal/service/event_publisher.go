package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event is the envelope fanned out to subscribers when something notable
// happens (assignment published, submission received, review completed).
type Event struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	At      time.Time              `json:"at"`
	Payload map[string]interface{} `json:"payload"`
}

// EventPublisher fans events out over NATS and a Redis pub/sub channel.
// Either backend may be absent; publishing is always best-effort and never
// fails the triggering operation.
type EventPublisher struct {
	nats      *nats.Conn
	redis     *redis.Client
	channel   string
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEventPublisher wires the available backends. Pass nil for any backend
// that is not configured.
func NewEventPublisher(natsConn *nats.Conn, redisClient *redis.Client, channel string, logger zerolog.Logger) *EventPublisher {
	if channel == "" {
		channel = "classhive:events"
	}

	return &EventPublisher{
		nats:      natsConn,
		redis:     redisClient,
		channel:   channel,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "event_publisher").Logger(),
		now:       time.Now,
	}
}

// Publish emits one event to every configured backend. String payload values
// are stripped of markup before leaving the process.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if p == nil {
		return
	}

	event := Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		At:      p.now().UTC(),
		Payload: p.sanitizePayload(payload),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("type", eventType).Msg("failed to encode event")
		return
	}

	if p.nats != nil {
		if err := p.nats.Publish("classhive.events."+eventType, data); err != nil {
			p.logger.Warn().Err(err).Str("type", eventType).Msg("nats publish failed")
		}
	}

	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.channel, data).Err(); err != nil {
			p.logger.Warn().Err(err).Str("type", eventType).Msg("redis publish failed")
		}
	}
}

func (p *EventPublisher) sanitizePayload(payload map[string]interface{}) map[string]interface{} {
	if payload == nil {
		return map[string]interface{}{}
	}

	clean := make(map[string]interface{}, len(payload))
	for key, value := range payload {
		if text, ok := value.(string); ok {
			clean[key] = p.sanitizer.Sanitize(text)
			continue
		}
		clean[key] = value
	}
	return clean
}
