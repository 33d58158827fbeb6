package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cardlink/apiserver/internal/mq"
	"github.com/cardlink/apiserver/types"
	"go.uber.org/zap"
)

// Card lifecycle event names as published on the broker.
const (
	EventCardCreated     = "card.created"
	EventCardUpdated     = "card.updated"
	EventCardDeleted     = "card.deleted"
	EventCardQRGenerated = "card.qr_generated"
)

// CardEvents publishes card lifecycle events for downstream consumers.
// Publishing is best-effort: the database row is the source of truth,
// so a broker failure is logged and the request still succeeds.
type CardEvents struct {
	mq    *mq.MQ
	topic string
	log   *zap.SugaredLogger
}

func NewCardEvents(m *mq.MQ, topic string, log *zap.SugaredLogger) *CardEvents {
	return &CardEvents{mq: m, topic: topic, log: log}
}

type cardEvent struct {
	Event     string    `json:"event"`
	CardID    int64     `json:"card_id"`
	UserID    int64     `json:"user_id"`
	UniqueURL string    `json:"unique_url,omitempty"`
	At        time.Time `json:"at"`
}

// Publish emits one event for the given card. Safe on a nil receiver,
// which is how the service runs when no broker is configured.
func (e *CardEvents) Publish(ctx context.Context, event string, card types.Card) {
	if e == nil {
		return
	}

	payload, err := json.Marshal(cardEvent{
		Event:     event,
		CardID:    card.ID,
		UserID:    card.UserID,
		UniqueURL: card.UniqueURL,
		At:        time.Now(),
	})
	if err != nil {
		e.log.Warnw("marshal card event", "event", event, "card_id", card.ID, "error", err)
		return
	}

	attrs := map[string]string{"event": event}
	if _, err := e.mq.Publish(ctx, e.topic, payload, attrs); err != nil {
		e.log.Warnw("publish card event", "event", event, "card_id", card.ID, "error", err)
	}
}
