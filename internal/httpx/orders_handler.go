package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/auth"
	"github.com/recordly/record-store/internal/orders"
	"github.com/recordly/record-store/internal/users"
)

type OrdersHandler struct {
	Svc *orders.Service
	Log *zap.Logger
}

type createOrderRequest struct {
	RecordID string `json:"recordId"`
	Quantity int    `json:"quantity"`
}

func (h *OrdersHandler) Register(r *chi.Mux, tokens *auth.Manager) {
	r.Get("/orders", h.list)
	r.Group(func(g chi.Router) {
		g.Use(tokens.Middleware, auth.RequireRole(users.RoleCustomer))
		g.Post("/orders", h.create)
	})
	r.Group(func(g chi.Router) {
		g.Use(tokens.Middleware, auth.RequireRole(users.RoleCreator))
		g.Patch("/orders/{id}/cancel", h.cancel)
		g.Patch("/orders/{id}/approve", h.approve)
	})
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !validUUID(req.RecordID) {
		writeFail(w, http.StatusBadRequest, "invalid record id")
		return
	}
	if req.Quantity < 1 {
		writeFail(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Svc.Create(ctx, req.RecordID, req.Quantity)
	if err != nil {
		writeError(h.Log, w, err)
		return
	}
	writeOK(w, http.StatusCreated, "Order successfully created.", order)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Cancel, "Order successfully cancelled.")
}

func (h *OrdersHandler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Svc.Approve, "Order successfully approved.")
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request,
	op func(context.Context, string) (*orders.Order, error), okMsg string) {

	id := chi.URLParam(r, "id")
	if !validUUID(id) {
		writeFail(w, http.StatusBadRequest, "invalid order id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := op(ctx, id)
	if err != nil {
		writeError(h.Log, w, err)
		return
	}
	writeOK(w, http.StatusOK, okMsg, order)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	page, current, err := parsePage(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	var f orders.Filter
	if v := r.URL.Query().Get("status"); v != "" {
		f.Status = orders.Status(v)
		if !f.Status.Valid() {
			writeFail(w, http.StatusBadRequest, "unknown status")
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
	writeOK(w, http.StatusOK, "Orders successfully fetched.",
		buildPage(res.Total, current, page.Limit, r.URL.Path, res.Items))
}

func validUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
