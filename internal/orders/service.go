package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/events"
	kafkax "github.com/recordly/record-store/internal/kafka"
	"github.com/recordly/record-store/internal/records"
)

// Txer provides one atomic scope; everything done through the handle commits
// together or not at all.
type Txer interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// StockLedger is the transactional view of record quantities. Both methods
// require an active transaction handle; reads taken elsewhere are advisory
// and must never authorize a mutation.
type StockLedger interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*records.Record, error)
	AdjustQuantity(ctx context.Context, tx pgx.Tx, id string, delta int) error
}

type OrderRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, o *Order) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Order, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id string, st Status, at time.Time) error
	List(ctx context.Context, f Filter, p records.Page) (*PageResult, error)
}

type PageCache interface {
	Get(ctx context.Context, key string, out any) bool
	Set(ctx context.Context, key string, v any)
	InvalidateAll(ctx context.Context)
}

type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Txer     Txer
	Ledger   StockLedger
	Repo     OrderRepo
	Cache    PageCache
	Events   EventPublisher // optional
	Producer string
	Log      *zap.Logger
}

// Create places an order: the stock check, the deduction and the order row
// share one transaction, so no partial state is ever visible and two
// concurrent creates cannot both deduct past zero.
func (s *Service) Create(ctx context.Context, recordID string, quantity int) (*Order, error) {
	var out *Order
	err := s.Txer.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rec, err := s.Ledger.GetForUpdate(ctx, tx, recordID)
		if err != nil {
			return err
		}
		if rec.Qty < quantity {
			return &records.InsufficientStockError{
				Album:     rec.Album,
				Available: rec.Qty,
				Requested: quantity,
			}
		}
		if err := s.Ledger.AdjustQuantity(ctx, tx, recordID, -quantity); err != nil {
			return err
		}

		now := time.Now().UTC()
		o := &Order{
			ID:        uuid.NewString(),
			RecordID:  recordID,
			Quantity:  quantity,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.Repo.CreateTx(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, s.fail("order creation", err)
	}

	s.Cache.InvalidateAll(ctx)
	s.publish(events.EventOrderCreated, out)
	return out, nil
}

// Cancel returns a PENDING order's quantity to the ledger and marks it
// CANCELLED. The restore is exactly the amount deducted at creation.
func (s *Service) Cancel(ctx context.Context, orderID string) (*Order, error) {
	var out *Order
	err := s.Txer.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		o, err := s.Repo.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, StatusCancelled) {
			return &InvalidTransitionError{OrderID: o.ID, Status: o.Status}
		}

		// Integrity guard: the referenced record must still exist.
		if _, err := s.Ledger.GetForUpdate(ctx, tx, o.RecordID); err != nil {
			return err
		}
		if err := s.Ledger.AdjustQuantity(ctx, tx, o.RecordID, o.Quantity); err != nil {
			return err
		}

		o.Status = StatusCancelled
		o.UpdatedAt = time.Now().UTC()
		if err := s.Repo.UpdateStatusTx(ctx, tx, o.ID, o.Status, o.UpdatedAt); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, s.fail("order cancellation", err)
	}

	s.Cache.InvalidateAll(ctx)
	s.publish(events.EventOrderCancelled, out)
	return out, nil
}

// Approve completes a PENDING order. Stock is untouched: the deduction
// already happened at creation time.
func (s *Service) Approve(ctx context.Context, orderID string) (*Order, error) {
	var out *Order
	err := s.Txer.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		o, err := s.Repo.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, StatusCompleted) {
			return &InvalidTransitionError{OrderID: o.ID, Status: o.Status}
		}
		if _, err := s.Ledger.GetForUpdate(ctx, tx, o.RecordID); err != nil {
			return err
		}

		o.Status = StatusCompleted
		o.UpdatedAt = time.Now().UTC()
		if err := s.Repo.UpdateStatusTx(ctx, tx, o.ID, o.Status, o.UpdatedAt); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, s.fail("order approval", err)
	}

	s.Cache.InvalidateAll(ctx)
	s.publish(events.EventOrderCompleted, out)
	return out, nil
}

func (s *Service) List(ctx context.Context, f Filter, p records.Page) (*PageResult, error) {
	key := f.CacheKey(p)

	var cached PageResult
	if s.Cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	res, err := s.Repo.List(ctx, f, p)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, key, res)
	return res, nil
}

// fail lets business-rule errors cross the transaction boundary unwrapped;
// anything else is logged and replaced by an operation-failed error so raw
// infrastructure causes do not leak to callers.
func (s *Service) fail(op string, err error) error {
	if errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, records.ErrNotFound) ||
		errors.Is(err, records.ErrInsufficientStock) {
		return err
	}
	s.Log.Error(op+" failed", zap.Error(err))
	return fmt.Errorf("%s: %w", op, ErrOperationFailed)
}

func (s *Service) publish(eventType string, o *Order) {
	if s.Events == nil {
		return
	}
	env := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Producer,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(events.OrderEventPayload{
			OrderID:  o.ID,
			RecordID: o.RecordID,
			Quantity: o.Quantity,
			Status:   string(o.Status),
		}),
	}
	s.Events.Publish(events.PartitionKey(o.ID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
