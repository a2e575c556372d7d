package testserver

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

const (
	StatusAvailable = "AVAILABLE"
	StatusSold      = "SOLD"
)

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrSoldOut         = errors.New("ticket sold out")
	ErrVersionConflict = errors.New("ticket version changed")
)

// Ticket is one seat. UserID is nil until the seat is sold.
type Ticket struct {
	ID         int64  `json:"id"`
	SeatNumber string `json:"seatNumber"`
	Status     string `json:"status"`
	UserID     *int64 `json:"userId"`
	Version    int64  `json:"version"`
}

// MemoryStore keeps tickets in memory with optimistic versioning: every
// successful write bumps Version.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[int64]Ticket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[int64]Ticket)}
}

// Seed creates seats 1..n if the store is empty and returns how many were
// created.
func (s *MemoryStore) Seed(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tickets) > 0 {
		return 0
	}
	for i := 1; i <= n; i++ {
		s.tickets[int64(i)] = Ticket{
			ID:         int64(i),
			SeatNumber: fmt.Sprintf("Seat-%d", i),
			Status:     StatusAvailable,
		}
	}
	return n
}

func (s *MemoryStore) Get(id int64) (Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return Ticket{}, ErrTicketNotFound
	}
	return t, nil
}

// List returns all tickets ordered by id.
func (s *MemoryStore) List() []Ticket {
	s.mu.RLock()
	out := make([]Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}

// CompareAndSwap stores t only if the stored version still equals
// t.Version, and returns the stored ticket with its new version.
func (s *MemoryStore) CompareAndSwap(t Ticket) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tickets[t.ID]
	if !ok {
		return Ticket{}, ErrTicketNotFound
	}
	if current.Version != t.Version {
		return Ticket{}, ErrVersionConflict
	}
	t.Version++
	s.tickets[t.ID] = t
	return t, nil
}

// Overwrite stores t without a version check: last writer wins.
func (s *MemoryStore) Overwrite(t Ticket) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tickets[t.ID]
	if !ok {
		return Ticket{}, ErrTicketNotFound
	}
	t.Version = current.Version + 1
	s.tickets[t.ID] = t
	return t, nil
}
