package orders

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/records"
)

// memStore backs the ledger and order repo mocks with one shared state so a
// transaction can be rolled back as a unit.
type memStore struct {
	mu     sync.Mutex
	recs   map[string]records.Record
	orders map[string]Order
}

func newMemStore(recs ...records.Record) *memStore {
	s := &memStore{
		recs:   make(map[string]records.Record),
		orders: make(map[string]Order),
	}
	for _, r := range recs {
		s.recs[r.ID] = r
	}
	return s
}

// memTxer serializes transactions with the store mutex and restores a
// snapshot when the callback fails, mirroring row locks plus rollback.
type memTxer struct{ store *memStore }

func (t *memTxer) InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	recSnap := make(map[string]records.Record, len(t.store.recs))
	for k, v := range t.store.recs {
		recSnap[k] = v
	}
	ordSnap := make(map[string]Order, len(t.store.orders))
	for k, v := range t.store.orders {
		ordSnap[k] = v
	}

	if err := fn(ctx, nil); err != nil {
		t.store.recs = recSnap
		t.store.orders = ordSnap
		return err
	}
	return nil
}

type memLedger struct{ store *memStore }

func (l *memLedger) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*records.Record, error) {
	r, ok := l.store.recs[id]
	if !ok {
		return nil, records.ErrNotFound
	}
	return &r, nil
}

func (l *memLedger) AdjustQuantity(ctx context.Context, tx pgx.Tx, id string, delta int) error {
	r, ok := l.store.recs[id]
	if !ok {
		return records.ErrNotFound
	}
	if r.Qty+delta < 0 {
		return records.ErrInsufficientStock
	}
	r.Qty += delta
	l.store.recs[id] = r
	return nil
}

type memOrderRepo struct {
	store     *memStore
	createErr error
}

func (r *memOrderRepo) CreateTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.store.orders[o.ID] = *o
	return nil
}

func (r *memOrderRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Order, error) {
	o, ok := r.store.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (r *memOrderRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id string, st Status, at time.Time) error {
	o, ok := r.store.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = st
	o.UpdatedAt = at
	r.store.orders[id] = o
	return nil
}

func (r *memOrderRepo) List(ctx context.Context, f Filter, p records.Page) (*PageResult, error) {
	var items []Order
	for _, o := range r.store.orders {
		if f.Status == "" || o.Status == f.Status {
			items = append(items, o)
		}
	}
	return &PageResult{Items: items, Total: len(items)}, nil
}

type noopCache struct{ invalidations atomic.Int32 }

func (c *noopCache) Get(ctx context.Context, key string, out any) bool { return false }
func (c *noopCache) Set(ctx context.Context, key string, v any)        {}
func (c *noopCache) InvalidateAll(ctx context.Context)                 { c.invalidations.Add(1) }

func newTestService(store *memStore) (*Service, *noopCache) {
	cache := &noopCache{}
	svc := &Service{
		Txer:   &memTxer{store: store},
		Ledger: &memLedger{store: store},
		Repo:   &memOrderRepo{store: store},
		Cache:  cache,
		Log:    zap.NewNop(),
	}
	return svc, cache
}

func vinyl(id string, qty int) records.Record {
	return records.Record{ID: id, Artist: "Burial", Album: "Untrue", Qty: qty, Format: records.FormatVinyl}
}

func TestCreate_Success(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 5))
	svc, cache := newTestService(store)

	o, err := svc.Create(context.Background(), "rec-1", 2)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if o.Status != StatusPending {
		t.Errorf("expected PENDING, got %s", o.Status)
	}
	if o.RecordID != "rec-1" || o.Quantity != 2 {
		t.Errorf("unexpected order: %+v", o)
	}
	if got := store.recs["rec-1"].Qty; got != 3 {
		t.Errorf("expected qty 3, got %d", got)
	}
	if _, ok := store.orders[o.ID]; !ok {
		t.Error("order not persisted")
	}
	if cache.invalidations.Load() != 1 {
		t.Errorf("expected 1 cache invalidation, got %d", cache.invalidations.Load())
	}
}

func TestCreate_InsufficientStock(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 1))
	svc, _ := newTestService(store)

	_, err := svc.Create(context.Background(), "rec-1", 2)
	if !errors.Is(err, records.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}
	if got := store.recs["rec-1"].Qty; got != 1 {
		t.Errorf("qty changed on failed create: %d", got)
	}
	if len(store.orders) != 0 {
		t.Error("order persisted despite failure")
	}
}

func TestCreate_InsufficientStockMessage(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 1))
	svc, _ := newTestService(store)

	_, err := svc.Create(context.Background(), "rec-1", 3)
	want := "insufficient stock for record Untrue: 1 available, 3 requested"
	if err == nil || err.Error() != want {
		t.Errorf("expected %q, got %v", want, err)
	}
}

func TestCreate_RecordNotFound(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	_, err := svc.Create(context.Background(), "missing", 1)
	if !errors.Is(err, records.ErrNotFound) {
		t.Errorf("expected records.ErrNotFound, got: %v", err)
	}
}

func TestCreate_DepletesToZero(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 3))
	svc, _ := newTestService(store)

	if _, err := svc.Create(context.Background(), "rec-1", 3); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if got := store.recs["rec-1"].Qty; got != 0 {
		t.Fatalf("expected qty 0, got %d", got)
	}

	_, err := svc.Create(context.Background(), "rec-1", 1)
	if !errors.Is(err, records.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock at zero stock, got: %v", err)
	}
}

func TestCreate_RollbackOnRepoFailure(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 5))
	svc, _ := newTestService(store)
	svc.Repo = &memOrderRepo{store: store, createErr: errors.New("connection reset")}

	_, err := svc.Create(context.Background(), "rec-1", 2)
	if !errors.Is(err, ErrOperationFailed) {
		t.Fatalf("expected ErrOperationFailed, got: %v", err)
	}
	if got := store.recs["rec-1"].Qty; got != 5 {
		t.Errorf("deduction survived rollback: qty %d", got)
	}
}

func TestCancel_RestoresStock(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 5))
	svc, _ := newTestService(store)

	o, err := svc.Create(context.Background(), "rec-1", 2)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}
	if got := store.recs["rec-1"].Qty; got != 5 {
		t.Errorf("expected qty restored to 5, got %d", got)
	}
}

func TestCancel_OnlyFromPending(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 5))
	svc, _ := newTestService(store)

	o, _ := svc.Create(context.Background(), "rec-1", 2)
	if _, err := svc.Cancel(context.Background(), o.ID); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}

	_, err := svc.Cancel(context.Background(), o.ID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got: %v", err)
	}
	// A rejected second cancel must not restore stock again.
	if got := store.recs["rec-1"].Qty; got != 5 {
		t.Errorf("expected qty 5, got %d", got)
	}
}

func TestApprove_LeavesStockAlone(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 5))
	svc, _ := newTestService(store)

	o, _ := svc.Create(context.Background(), "rec-1", 2)
	approved, err := svc.Approve(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", approved.Status)
	}
	if got := store.recs["rec-1"].Qty; got != 3 {
		t.Errorf("approve changed stock: qty %d", got)
	}
}

func TestApprove_ThenCancelRejected(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 5))
	svc, _ := newTestService(store)

	o, _ := svc.Create(context.Background(), "rec-1", 2)
	if _, err := svc.Approve(context.Background(), o.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if _, err := svc.Cancel(context.Background(), o.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel after approve: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Approve(context.Background(), o.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second approve: expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransition_UnknownOrder(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 5))
	svc, _ := newTestService(store)

	if _, err := svc.Cancel(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cancel: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Approve(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("approve: expected ErrNotFound, got %v", err)
	}
}

func TestCreate_Concurrent(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	store := newMemStore(vinyl("rec-1", initialStock))
	svc, _ := newTestService(store)

	var successCount atomic.Int32
	var insufficientCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), "rec-1", 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, records.ErrInsufficientStock):
				insufficientCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	if got := store.recs["rec-1"].Qty; got != 0 {
		t.Errorf("expected qty 0, got %d", got)
	}
	if len(store.orders) != initialStock {
		t.Errorf("expected %d orders, got %d", initialStock, len(store.orders))
	}
}

func TestCreate_ConcurrentSingleUnit(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 1))
	svc, _ := newTestService(store)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Create(context.Background(), "rec-1", 1); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}
	if got := store.recs["rec-1"].Qty; got != 0 {
		t.Errorf("expected qty 0, got %d", got)
	}
}

func TestList_StatusFilter(t *testing.T) {
	store := newMemStore(vinyl("rec-1", 10))
	svc, _ := newTestService(store)

	o1, _ := svc.Create(context.Background(), "rec-1", 1)
	o2, _ := svc.Create(context.Background(), "rec-1", 1)
	if _, err := svc.Cancel(context.Background(), o2.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	res, err := svc.List(context.Background(), Filter{Status: StatusPending}, records.Page{Skip: 0, Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if res.Total != 1 || len(res.Items) != 1 || res.Items[0].ID != o1.ID {
		t.Errorf("unexpected pending page: %+v", res)
	}
}
