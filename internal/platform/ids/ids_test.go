package ids

import (
	"testing"
	"time"
)

func TestNewULID_SortsByTime(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	a := NewULID(t0)
	b := NewULID(t0.Add(time.Millisecond))
	c := NewULID(t0.Add(time.Millisecond))
	if !(a < b && b < c) {
		t.Fatalf("expected monotonic ids, got %s %s %s", a, b, c)
	}
	if len(a) != 26 {
		t.Fatalf("unexpected ulid length %d", len(a))
	}
}
