package envutil

import (
	"testing"
	"time"
)

func TestReaders(t *testing.T) {
	t.Setenv("FYNIX_INT", "12")
	t.Setenv("FYNIX_BAD_INT", "twelve")
	t.Setenv("FYNIX_BOOL", "on")
	t.Setenv("FYNIX_SECS", "3")
	t.Setenv("FYNIX_LIST", " a, ,b ")

	if got := Int("FYNIX_INT", 1); got != 12 {
		t.Fatalf("Int=%d, want 12", got)
	}
	if got := Int("FYNIX_BAD_INT", 7); got != 7 {
		t.Fatalf("Int(bad)=%d, want default 7", got)
	}
	if !Bool("FYNIX_BOOL", false) {
		t.Fatalf("Bool(on)=false")
	}
	if got := Seconds("FYNIX_SECS", time.Minute); got != 3*time.Second {
		t.Fatalf("Seconds=%v", got)
	}
	if got := List("FYNIX_LIST", nil); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List=%v", got)
	}
	if got := String("FYNIX_UNSET", "dflt"); got != "dflt" {
		t.Fatalf("String=%q", got)
	}
}
