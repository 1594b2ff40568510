package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/orders"
	"github.com/recordly/record-store/internal/records"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// pageData is the list envelope: total ignores the page window so clients
// can derive page counts.
type pageData struct {
	Total       int    `json:"total"`
	CurrentPage int    `json:"currentPage"`
	Limit       int    `json:"limit"`
	TotalPages  int    `json:"totalPages"`
	HasNext     bool   `json:"hasNext"`
	HasPrevious bool   `json:"hasPrevious"`
	Path        string `json:"path"`
	Items       any    `json:"items"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, code int, msg string, data any) {
	writeJSON(w, code, response{Success: true, Message: msg, Data: data})
}

func writeFail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, response{Success: false, Message: msg})
}

// writeError maps the error taxonomy onto status codes. Business-rule errors
// carry their own safe messages; anything unexpected becomes a generic 500
// with the cause logged server-side only.
func writeError(log *zap.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, records.ErrNotFound), errors.Is(err, orders.ErrNotFound):
		writeFail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, records.ErrInsufficientStock), errors.Is(err, orders.ErrInvalidTransition):
		writeFail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, records.ErrConflict):
		writeFail(w, http.StatusConflict, err.Error())
	case errors.Is(err, orders.ErrOperationFailed):
		writeFail(w, http.StatusInternalServerError, err.Error())
	default:
		log.Error("request failed", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal error")
	}
}

// parsePage reads page/limit query params (1-based page, default 1/10) and
// converts them to a skip/limit window.
func parsePage(r *http.Request) (records.Page, int, error) {
	page, limit := 1, 10
	var err error
	if v := r.URL.Query().Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			return records.Page{}, 0, errors.New("page must be an integer")
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return records.Page{}, 0, errors.New("limit must be an integer")
		}
	}
	if page < 1 || limit < 1 {
		return records.Page{}, 0, errors.New("page and limit must be positive integers")
	}
	return records.Page{Skip: (page - 1) * limit, Limit: limit}, page, nil
}

func buildPage(total, page, limit int, path string, items any) pageData {
	totalPages := (total + limit - 1) / limit
	return pageData{
		Total:       total,
		CurrentPage: page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
		Path:        path,
		Items:       items,
	}
}
