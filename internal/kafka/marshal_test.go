package kafka

import (
	"testing"

	"github.com/recordly/record-store/internal/events"
)

func TestUnwrapPayload(t *testing.T) {
	b := MustMarshal(events.OrderEventPayload{
		OrderID: "ord-1", RecordID: "rec-1", Quantity: 3, Status: "PENDING",
	})

	p, err := UnwrapPayload[events.OrderEventPayload](b)
	if err != nil {
		t.Fatalf("unwrap failed: %v", err)
	}
	if p.OrderID != "ord-1" || p.Quantity != 3 || p.Status != "PENDING" {
		t.Errorf("unexpected payload: %+v", p)
	}

	if _, err := UnwrapPayload[events.OrderEventPayload]([]byte("{")); err == nil {
		t.Error("expected error for truncated payload")
	}
}
