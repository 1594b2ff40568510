package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/events"
	kafkax "github.com/recordly/record-store/internal/kafka"
	"github.com/recordly/record-store/internal/redisx"
)

// Service consumes the order event stream and writes one audit line per
// event, deduplicated by event id so redeliveries stay silent.
type Service struct {
	RDB  *redis.Client
	Log  *zap.Logger
	Name string // dedup namespace
}

func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	switch env.EventType {
	case events.EventOrderCreated, events.EventOrderCancelled, events.EventOrderCompleted:
	default:
		return nil // ignore
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.Name, env.EventID)
	created, err := redisx.SetNX(ctx, s.RDB, dkey, redisx.TTLDedup)
	if err != nil {
		// Dedup store down: log anyway rather than lose the event.
		s.Log.Warn("dedup check failed", zap.Error(err))
	} else if !created {
		return nil
	}

	p, err := kafkax.UnwrapPayload[events.OrderEventPayload](env.Payload)
	if err != nil {
		return err
	}

	s.Log.Info("order event",
		zap.String("event", env.EventType),
		zap.String("order_id", p.OrderID),
		zap.String("record_id", p.RecordID),
		zap.Int("quantity", p.Quantity),
		zap.String("status", p.Status),
		zap.Time("occurred_at", env.OccurredAt),
		zap.String("producer", env.Producer),
	)
	return nil
}
