package testserver

import (
	"errors"
	"testing"
)

func TestMemoryStore_SeedOnce(t *testing.T) {
	s := NewMemoryStore()

	if n := s.Seed(10); n != 10 {
		t.Errorf("expected 10 created, got %d", n)
	}
	if n := s.Seed(10); n != 0 {
		t.Errorf("expected second seed to create nothing, got %d", n)
	}

	ticket, err := s.Get(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.SeatNumber != "Seat-10" || ticket.Status != StatusAvailable || ticket.Version != 0 {
		t.Errorf("unexpected seeded ticket %+v", ticket)
	}
}

func TestMemoryStore_CompareAndSwap(t *testing.T) {
	s := NewMemoryStore()
	s.Seed(1)

	t1, _ := s.Get(1)
	t2, _ := s.Get(1)

	user := int64(1000)
	t1.Status, t1.UserID = StatusSold, &user
	stored, err := s.CompareAndSwap(t1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Version != 1 {
		t.Errorf("expected version 1, got %d", stored.Version)
	}

	// t2 was read before the first write and must lose.
	t2.Status = StatusSold
	if _, err := s.CompareAndSwap(t2); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}

	if _, err := s.CompareAndSwap(Ticket{ID: 99}); !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestMemoryStore_OverwriteIgnoresVersion(t *testing.T) {
	s := NewMemoryStore()
	s.Seed(1)

	stale, _ := s.Get(1)
	s.Overwrite(stale)

	stored, err := s.Overwrite(stale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Version != 2 {
		t.Errorf("expected version 2, got %d", stored.Version)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(1); !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("expected ErrTicketNotFound, got %v", err)
	}
}
