package http

import (
	"testing"
	"time"

	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

func TestServerHasDeadlines(t *testing.T) {
	s := NewServer(":0", RouterConfig{Log: logger.Nop()})
	for name, got := range map[string]time.Duration{
		"ReadHeaderTimeout": s.srv.ReadHeaderTimeout,
		"ReadTimeout":       s.srv.ReadTimeout,
		"WriteTimeout":      s.srv.WriteTimeout,
		"IdleTimeout":       s.srv.IdleTimeout,
	} {
		if got <= 0 {
			t.Fatalf("%s is unset", name)
		}
	}
	if s.srv.WriteTimeout < 3*45*time.Second {
		t.Fatalf("WriteTimeout=%v is shorter than a chained material quiz", s.srv.WriteTimeout)
	}
}
