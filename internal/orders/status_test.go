package orders

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, true},
		{StatusCancelled, StatusCompleted, false},
		{StatusCancelled, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusPending, false},
		{StatusPending, StatusPending, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusCancelled, StatusCompleted} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("SHIPPED").Valid() {
		t.Error("SHIPPED should not be valid")
	}
}
