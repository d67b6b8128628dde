package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystemIsIdempotent(t *testing.T) {
	once := ApplySystem("Write quiz questions.", "json")
	twice := ApplySystem(once, "json")
	if once != twice {
		t.Fatalf("ApplySystem not idempotent:\n%s\n---\n%s", once, twice)
	}
	if !strings.HasSuffix(once, "Write quiz questions.") {
		t.Fatalf("base prompt not kept at the end: %q", once)
	}
	if !strings.Contains(once, "single JSON object") {
		t.Fatalf("json mode guidance missing: %q", once)
	}
}

func TestApplySystemTextMode(t *testing.T) {
	out := ApplySystem("", "text")
	if strings.Contains(out, "JSON") || !strings.HasPrefix(out, marker) {
		t.Fatalf("unexpected text-mode prompt: %q", out)
	}
}
