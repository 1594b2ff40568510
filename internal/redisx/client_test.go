package redisx

import (
	"testing"
	"time"
)

func TestNew_AppliesTimeouts(t *testing.T) {
	c := New("localhost:6379")
	defer c.Close()

	opts := c.Options()
	if opts.ReadTimeout != 2*time.Second {
		t.Errorf("read timeout = %v, want 2s", opts.ReadTimeout)
	}
	if opts.WriteTimeout != 2*time.Second {
		t.Errorf("write timeout = %v, want 2s", opts.WriteTimeout)
	}
	if opts.Addr != "localhost:6379" {
		t.Errorf("addr = %q", opts.Addr)
	}
}
