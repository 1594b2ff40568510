package records

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/events"
	kafkax "github.com/recordly/record-store/internal/kafka"
)

// ReleaseInfo is what a metadata lookup returns for an MBID.
type ReleaseInfo struct {
	Album       string  `json:"album"`
	TrackList   []Track `json:"trackList"`
	ReleaseYear int     `json:"releaseYear"`
	Country     string  `json:"country"`
}

// MetadataClient resolves an external release identifier. Lookups are
// best-effort: a failure never fails the record write.
type MetadataClient interface {
	Lookup(ctx context.Context, mbid string) (*ReleaseInfo, error)
}

type RecordRepo interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Record, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, rec *Record) error
	List(ctx context.Context, f Filter, p Page) (*PageResult, error)
}

// Txer provides one atomic scope for read-merge-write updates.
type Txer interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

type PageCache interface {
	Get(ctx context.Context, key string, out any) bool
	Set(ctx context.Context, key string, v any)
	InvalidateAll(ctx context.Context)
}

type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type CreateInput struct {
	Artist      string
	Album       string
	Price       float64
	Qty         int
	Format      Format
	Category    Category
	MBID        string
	TrackList   []Track
	ReleaseYear int
	Country     string
}

// UpdateInput carries only the fields the caller wants to change.
type UpdateInput struct {
	Artist      *string
	Album       *string
	Price       *float64
	Qty         *int
	Format      *Format
	Category    *Category
	MBID        *string
	TrackList   []Track
	ReleaseYear *int
	Country     *string
}

type Service struct {
	Txer     Txer
	Repo     RecordRepo
	Metadata MetadataClient // optional
	Cache    PageCache
	Events   EventPublisher // optional
	Producer string
	Log      *zap.Logger
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Record, error) {
	now := time.Now().UTC()
	rec := &Record{
		ID:          uuid.NewString(),
		Artist:      in.Artist,
		Album:       in.Album,
		Price:       in.Price,
		Qty:         in.Qty,
		Format:      in.Format,
		Category:    in.Category,
		MBID:        in.MBID,
		TrackList:   in.TrackList,
		ReleaseYear: in.ReleaseYear,
		Country:     in.Country,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if in.MBID != "" {
		s.enrich(ctx, rec)
	}

	if err := s.Repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.Cache.InvalidateAll(ctx)
	s.publish(events.EventRecordCreated, rec)
	return rec, nil
}

// Update merges the supplied fields into the stored record. The read, the
// merge and the write share one transaction under the record's row lock, so
// a concurrent order cannot deduct stock between them and have the stale
// quantity written back.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Record, error) {
	// Re-enrichment needs a network lookup; resolve it before taking the
	// row lock. The advisory read only decides whether the MBID changed.
	var rel *ReleaseInfo
	if in.MBID != nil && *in.MBID != "" {
		cur, err := s.Repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if *in.MBID != cur.MBID {
			rel = s.lookup(ctx, *in.MBID)
		}
	}

	var rec *Record
	err := s.Txer.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		cur, err := s.Repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		mbidChanged := in.MBID != nil && *in.MBID != cur.MBID

		if in.Artist != nil {
			cur.Artist = *in.Artist
		}
		if in.Album != nil {
			cur.Album = *in.Album
		}
		if in.Price != nil {
			cur.Price = *in.Price
		}
		if in.Qty != nil {
			cur.Qty = *in.Qty
		}
		if in.Format != nil {
			cur.Format = *in.Format
		}
		if in.Category != nil {
			cur.Category = *in.Category
		}
		if in.MBID != nil {
			cur.MBID = *in.MBID
		}
		if in.TrackList != nil {
			cur.TrackList = in.TrackList
		}
		if in.ReleaseYear != nil {
			cur.ReleaseYear = *in.ReleaseYear
		}
		if in.Country != nil {
			cur.Country = *in.Country
		}

		if mbidChanged && rel != nil {
			// Derived metadata for the new release. Fields the caller set
			// explicitly in this update stay as given.
			if in.TrackList == nil && len(rel.TrackList) > 0 {
				cur.TrackList = rel.TrackList
			}
			if in.ReleaseYear == nil && rel.ReleaseYear != 0 {
				cur.ReleaseYear = rel.ReleaseYear
			}
			if in.Country == nil && rel.Country != "" {
				cur.Country = rel.Country
			}
		}

		cur.UpdatedAt = time.Now().UTC()
		if err := s.Repo.UpdateTx(ctx, tx, cur); err != nil {
			return err
		}
		rec = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Cache.InvalidateAll(ctx)
	s.publish(events.EventRecordUpdated, rec)
	return rec, nil
}

func (s *Service) List(ctx context.Context, f Filter, p Page) (*PageResult, error) {
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

// enrich fills optional metadata the caller left empty. Explicit input always
// wins over lookup-derived values.
func (s *Service) enrich(ctx context.Context, rec *Record) {
	rel := s.lookup(ctx, rec.MBID)
	if rel == nil {
		return
	}
	if len(rec.TrackList) == 0 {
		rec.TrackList = rel.TrackList
	}
	if rec.ReleaseYear == 0 {
		rec.ReleaseYear = rel.ReleaseYear
	}
	if rec.Country == "" {
		rec.Country = rel.Country
	}
}

func (s *Service) lookup(ctx context.Context, mbid string) *ReleaseInfo {
	if s.Metadata == nil {
		return nil
	}
	rel, err := s.Metadata.Lookup(ctx, mbid)
	if err != nil {
		s.Log.Warn("metadata lookup failed", zap.String("mbid", mbid), zap.Error(err))
		return nil
	}
	return rel
}

func (s *Service) publish(eventType string, rec *Record) {
	if s.Events == nil {
		return
	}
	env := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Producer,
		CorrelationID: rec.ID,
		Payload: kafkax.MustMarshal(events.RecordEventPayload{
			RecordID: rec.ID,
			Artist:   rec.Artist,
			Album:    rec.Album,
			Format:   string(rec.Format),
			Qty:      rec.Qty,
		}),
	}
	s.Events.Publish(events.PartitionKey(rec.ID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
