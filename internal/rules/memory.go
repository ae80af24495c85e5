package rules

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps rules in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[string]Rule
	newID func() string
}

func NewMemoryStore(seed ...Rule) (*MemoryStore, error) {
	s := &MemoryStore{
		rules: make(map[string]Rule, len(seed)),
		newID: uuid.NewString,
	}
	for i, r := range seed {
		ch, err := ParseChannel(string(r.Channel))
		if err != nil {
			return nil, fmt.Errorf("seed rule %d: %w", i, err)
		}
		if err := r.payload().Validate(); err != nil {
			return nil, fmt.Errorf("seed rule %d (%s): %w", i, r.Name, err)
		}
		r.Channel = ch
		if r.ID == "" {
			r.ID = s.newID()
		}
		if _, dup := s.rules[r.ID]; dup {
			return nil, fmt.Errorf("seed rule %d: %w: duplicate id %s", i, ErrInvalid, r.ID)
		}
		s.rules[r.ID] = r
	}
	return s, nil
}

// List returns the channel's rules ordered by priority, then name.
func (s *MemoryStore) List(_ context.Context, ch Channel) ([]Rule, error) {
	s.mu.RLock()
	out := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Channel == ch {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Rule) int {
		return cmp.Or(
			cmp.Compare(a.Priority.rank(), b.Priority.rank()),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, ch Channel, p Payload) (Rule, error) {
	if _, err := ParseChannel(string(ch)); err != nil {
		return Rule{}, err
	}
	if err := p.Validate(); err != nil {
		return Rule{}, err
	}
	r := Rule{ID: s.newID(), Channel: ch, IsActive: true}
	r.apply(p)

	s.mu.Lock()
	s.rules[r.ID] = r
	s.mu.Unlock()
	return r, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, p Payload) (Rule, error) {
	if err := p.Validate(); err != nil {
		return Rule{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.apply(p)
	s.rules[id] = r
	return r, nil
}

func (s *MemoryStore) SetActive(_ context.Context, id string, active bool) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.IsActive = active
	s.rules[id] = r
	return r, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.rules, id)
	return nil
}
