package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/editor"
	"github.com/hanko-field/bizdoc/internal/repositories/memory"
)

func TestSessionStore_EvictsLeastRecentlyUsed(t *testing.T) {
	factory := newTestFactory(t, memory.NewRegistry())
	clock := testNow
	store := NewSessionStore(2, func() time.Time { return clock })

	newSession := func() *editor.Session {
		s, err := factory(domain.KindInvoice)
		if err != nil {
			t.Fatalf("factory: %v", err)
		}
		return s
	}
	a, b, c := newSession(), newSession(), newSession()

	store.Add(a)
	clock = clock.Add(time.Second)
	store.Add(b)
	clock = clock.Add(time.Second)
	if err := store.With(a.ID(), func(*editor.Session) error { return nil }); err != nil {
		t.Fatalf("With: %v", err)
	}
	clock = clock.Add(time.Second)

	if evicted := store.Add(c); evicted != b.ID() {
		t.Fatalf("expected %s to be evicted, got %q", b.ID(), evicted)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", store.Len())
	}
	if err := store.With(b.ID(), func(*editor.Session) error { return nil }); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStore_WithPropagatesErrors(t *testing.T) {
	factory := newTestFactory(t, memory.NewRegistry())
	store := NewSessionStore(0, nil)
	s, err := factory(domain.KindQuote)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	store.Add(s)

	sentinel := errors.New("boom")
	if err := store.With(s.ID(), func(*editor.Session) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if !store.Remove(s.ID()) || store.Remove(s.ID()) {
		t.Fatalf("expected first remove to succeed and second to fail")
	}
}
