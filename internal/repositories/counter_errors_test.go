package repositories

import (
	"errors"
	"testing"
)

func TestAdvanceCounter(t *testing.T) {
	next, step, err := AdvanceCounter("c", 0, 0, nil, 0)
	if err != nil || next != 1 || step != 1 {
		t.Fatalf("expected 1/1, got %d/%d err=%v", next, step, err)
	}

	next, step, err = AdvanceCounter("c", 10, 5, nil, 0)
	if err != nil || next != 15 || step != 5 {
		t.Fatalf("expected stored step to apply, got %d/%d err=%v", next, step, err)
	}

	max := int64(2)
	_, _, err = AdvanceCounter("c", 2, 1, &max, 1)
	var counterErr *CounterError
	if !errors.As(err, &counterErr) || counterErr.Code != CounterErrorExhausted {
		t.Fatalf("expected exhausted error, got %v", err)
	}
}

func TestNormalizeCounterID(t *testing.T) {
	if _, err := NormalizeCounterID("  ", 1); err == nil {
		t.Fatal("expected error for blank id")
	}
	if _, err := NormalizeCounterID("id", -1); err == nil {
		t.Fatal("expected error for negative step")
	}
	id, err := NormalizeCounterID(" invoice:202610 ", 0)
	if err != nil || id != "invoice:202610" {
		t.Fatalf("unexpected id %q err=%v", id, err)
	}
}
