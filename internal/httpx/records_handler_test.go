package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestCreateRecord_Validation(t *testing.T) {
	h := &RecordsHandler{Log: zap.NewNop()}

	cases := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing artist", `{"album":"Untrue","price":20,"qty":5,"format":"Vinyl","category":"Indie"}`},
		{"missing album", `{"artist":"Burial","price":20,"qty":5,"format":"Vinyl","category":"Indie"}`},
		{"blank artist", `{"artist":"   ","album":"Untrue","price":20,"qty":5,"format":"Vinyl","category":"Indie"}`},
		{"negative price", `{"artist":"Burial","album":"Untrue","price":-1,"qty":5,"format":"Vinyl","category":"Indie"}`},
		{"price too high", `{"artist":"Burial","album":"Untrue","price":10001,"qty":5,"format":"Vinyl","category":"Indie"}`},
		{"qty too high", `{"artist":"Burial","album":"Untrue","price":20,"qty":101,"format":"Vinyl","category":"Indie"}`},
		{"bad format", `{"artist":"Burial","album":"Untrue","price":20,"qty":5,"format":"8-Track","category":"Indie"}`},
		{"bad category", `{"artist":"Burial","album":"Untrue","price":20,"qty":5,"format":"Vinyl","category":"Metal"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(c.body))
			rr := httptest.NewRecorder()
			h.create(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestListRecords_RejectsUnknownEnums(t *testing.T) {
	h := &RecordsHandler{Log: zap.NewNop()}

	for _, q := range []string{"format=8-Track", "category=Metal", "page=0", "limit=-5"} {
		req := httptest.NewRequest(http.MethodGet, "/records?"+q, nil)
		rr := httptest.NewRecorder()
		h.list(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", q, rr.Code)
		}
	}
}
