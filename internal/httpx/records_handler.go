package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/auth"
	"github.com/recordly/record-store/internal/records"
	"github.com/recordly/record-store/internal/users"
)

type RecordsHandler struct {
	Svc *records.Service
	Log *zap.Logger
}

type createRecordRequest struct {
	Artist      string           `json:"artist"`
	Album       string           `json:"album"`
	Price       float64          `json:"price"`
	Qty         int              `json:"qty"`
	Format      records.Format   `json:"format"`
	Category    records.Category `json:"category"`
	MBID        string           `json:"mbid"`
	TrackList   []records.Track  `json:"trackList"`
	ReleaseYear int              `json:"releaseYear"`
	Country     string           `json:"country"`
}

type updateRecordRequest struct {
	Artist      *string           `json:"artist"`
	Album       *string           `json:"album"`
	Price       *float64          `json:"price"`
	Qty         *int              `json:"qty"`
	Format      *records.Format   `json:"format"`
	Category    *records.Category `json:"category"`
	MBID        *string           `json:"mbid"`
	TrackList   []records.Track   `json:"trackList"`
	ReleaseYear *int              `json:"releaseYear"`
	Country     *string           `json:"country"`
}

func (h *RecordsHandler) Register(r *chi.Mux, tokens *auth.Manager) {
	r.Get("/records", h.list)
	r.Group(func(g chi.Router) {
		g.Use(tokens.Middleware, auth.RequireRole(users.RoleCreator))
		g.Post("/records", h.create)
		g.Put("/records/{id}", h.update)
	})
}

func (req *createRecordRequest) validate() string {
	req.Artist = strings.TrimSpace(req.Artist)
	req.Album = strings.TrimSpace(req.Album)
	req.MBID = strings.TrimSpace(req.MBID)
	switch {
	case req.Artist == "":
		return "artist is required"
	case req.Album == "":
		return "album is required"
	case req.Price < 0 || req.Price > 10000:
		return "price must be between 0 and 10000"
	case req.Qty < 0 || req.Qty > 100:
		return "qty must be between 0 and 100"
	case !req.Format.Valid():
		return "unknown format"
	case !req.Category.Valid():
		return "unknown category"
	}
	return ""
}

func (h *RecordsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if msg := req.validate(); msg != "" {
		writeFail(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	rec, err := h.Svc.Create(ctx, records.CreateInput{
		Artist:      req.Artist,
		Album:       req.Album,
		Price:       req.Price,
		Qty:         req.Qty,
		Format:      req.Format,
		Category:    req.Category,
		MBID:        req.MBID,
		TrackList:   req.TrackList,
		ReleaseYear: req.ReleaseYear,
		Country:     req.Country,
	})
	if err != nil {
		writeError(h.Log, w, err)
		return
	}
	writeOK(w, http.StatusCreated, "Record successfully created.", rec)
}

func (h *RecordsHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validUUID(id) {
		writeFail(w, http.StatusBadRequest, "invalid record id")
		return
	}

	var req updateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Price != nil && (*req.Price < 0 || *req.Price > 10000) {
		writeFail(w, http.StatusBadRequest, "price must be between 0 and 10000")
		return
	}
	if req.Qty != nil && (*req.Qty < 0 || *req.Qty > 100) {
		writeFail(w, http.StatusBadRequest, "qty must be between 0 and 100")
		return
	}
	if req.Format != nil && !req.Format.Valid() {
		writeFail(w, http.StatusBadRequest, "unknown format")
		return
	}
	if req.Category != nil && !req.Category.Valid() {
		writeFail(w, http.StatusBadRequest, "unknown category")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	rec, err := h.Svc.Update(ctx, id, records.UpdateInput{
		Artist:      req.Artist,
		Album:       req.Album,
		Price:       req.Price,
		Qty:         req.Qty,
		Format:      req.Format,
		Category:    req.Category,
		MBID:        req.MBID,
		TrackList:   req.TrackList,
		ReleaseYear: req.ReleaseYear,
		Country:     req.Country,
	})
	if err != nil {
		writeError(h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, "Record successfully updated.", rec)
}

func (h *RecordsHandler) list(w http.ResponseWriter, r *http.Request) {
	page, current, err := parsePage(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	f := records.Filter{
		Query:  q.Get("q"),
		Artist: q.Get("artist"),
		Album:  q.Get("album"),
	}
	if v := q.Get("format"); v != "" {
		f.Format = records.Format(v)
		if !f.Format.Valid() {
			writeFail(w, http.StatusBadRequest, "unknown format")
			return
		}
	}
	if v := q.Get("category"); v != "" {
		f.Category = records.Category(v)
		if !f.Category.Valid() {
			writeFail(w, http.StatusBadRequest, "unknown category")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.List(ctx, f, page)
	if err != nil {
		writeError(h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, "Records successfully fetched.",
		buildPage(res.Total, current, page.Limit, r.URL.Path, res.Items))
}
