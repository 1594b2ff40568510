package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestCreateOrder_Validation(t *testing.T) {
	h := &OrdersHandler{Log: zap.NewNop()}

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing record id", `{"quantity":1}`},
		{"malformed record id", `{"recordId":"not-a-uuid","quantity":1}`},
		{"zero quantity", `{"recordId":"0b4c5e9a-9ac7-4a06-92a4-12f3f4a00001","quantity":0}`},
		{"negative quantity", `{"recordId":"0b4c5e9a-9ac7-4a06-92a4-12f3f4a00001","quantity":-3}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(c.body))
			rr := httptest.NewRecorder()
			h.create(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestListOrders_RejectsUnknownStatus(t *testing.T) {
	h := &OrdersHandler{Log: zap.NewNop()}

	req := httptest.NewRequest(http.MethodGet, "/orders?status=SHIPPED", nil)
	rr := httptest.NewRecorder()
	h.list(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}
