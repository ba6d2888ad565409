package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// State is an immutable snapshot of a cart.
type State struct {
	Lines       []domain.CartLine `json:"lines"`
	Country     string            `json:"country"`
	ShippingFee decimal.Decimal   `json:"shippingFee"`
}

// TotalPrice is derived from the lines on every call so it cannot drift.
func (s State) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Total())
	}
	return total
}

func (s State) Quantity() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}

func (s State) Empty() bool {
	return len(s.Lines) == 0
}

// Store holds the cart of one browsing session. Observers registered with
// Subscribe are called with the new state after every mutation.
type Store struct {
	mu          sync.Mutex
	lines       []domain.CartLine
	country     string
	shippingFee decimal.Decimal

	subs    map[int]func(State)
	nextSub int
}

func NewStore(initial State) *Store {
	s := &Store{
		country:     initial.Country,
		shippingFee: initial.ShippingFee,
		subs:        make(map[int]func(State)),
	}
	for _, l := range initial.Lines {
		if l.Quantity < 1 {
			continue
		}
		s.lines = append(s.lines, l)
	}
	return s
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	lines := make([]domain.CartLine, len(s.lines))
	copy(lines, s.lines)
	return State{Lines: lines, Country: s.country, ShippingFee: s.shippingFee}
}

// Subscribe registers fn and returns a func that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// AddLine merges quantity into the line with the same identity key or appends
// a new line. A product offering sizes or colors needs a selection.
func (s *Store) AddLine(p domain.Product, quantity int, size, color string) error {
	if quantity < 1 {
		return &InvalidQuantityError{Quantity: quantity}
	}
	if len(p.Sizes) > 0 && size == "" {
		return &VariantRequiredError{Variant: "size"}
	}
	if len(p.Colors) > 0 && color == "" {
		return &VariantRequiredError{Variant: "color"}
	}

	line := domain.CartLine{
		ProductID:     p.ID,
		Name:          p.Name,
		UnitPriceBase: p.SellingPrice(),
		Quantity:      quantity,
		Image:         p.FirstImage(),
		SelectedSize:  size,
		SelectedColor: color,
	}

	s.mutate(func() {
		if i := s.indexLocked(line.Key()); i >= 0 {
			s.lines[i].Quantity += quantity
			return
		}
		s.lines = append(s.lines, line)
	})
	return nil
}

// RemoveLine deletes the line with key. Removing a missing line is a no-op.
func (s *Store) RemoveLine(key domain.LineKey) {
	s.mutate(func() {
		s.removeLocked(key)
	})
}

// ChangeQuantity applies delta (+1 or -1). A line reaching zero is removed.
func (s *Store) ChangeQuantity(key domain.LineKey, delta int) error {
	if delta != 1 && delta != -1 {
		return &InvalidDeltaError{Delta: delta}
	}

	s.mutate(func() {
		i := s.indexLocked(key)
		if i < 0 {
			return
		}
		s.lines[i].Quantity += delta
		if s.lines[i].Quantity < 1 {
			s.removeLocked(key)
		}
	})
	return nil
}

// Clear empties the cart. The shipping destination is kept.
func (s *Store) Clear() {
	s.mutate(func() {
		s.lines = nil
	})
}

func (s *Store) SetDestination(country string, shippingFee decimal.Decimal) {
	s.mutate(func() {
		s.country = country
		s.shippingFee = shippingFee
	})
}

func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	state := s.snapshotLocked()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(state)
	}
}

func (s *Store) indexLocked(key domain.LineKey) int {
	for i, l := range s.lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(key domain.LineKey) {
	if i := s.indexLocked(key); i >= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	}
}
