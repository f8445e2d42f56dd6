// Package memory is a process-local store implementing the same contracts as the
// MySQL repositories. Transactions are serialised by one mutex and rolled back by
// restoring a snapshot.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pharmacart/internal/domain"
)

type txKey struct{}

type Store struct {
	mu sync.Mutex

	users     map[int]domain.User
	medicines map[int]domain.Medicine
	orders    map[uint]domain.Order

	nextUserID     int
	nextMedicineID int
	nextOrderID    uint
	nextItemID     uint
}

func NewStore() *Store {
	return &Store{
		users:     make(map[int]domain.User),
		medicines: make(map[int]domain.Medicine),
		orders:    make(map[uint]domain.Order),
	}
}

// WithinTx runs fn with exclusive access to the store. Returning an error, or a context
// that expired while fn ran, discards every change fn made. Nested calls join the
// outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}

	if err := ctx.Err(); err != nil {
		s.restore(snap)
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// AddUser seeds a user and returns its id.
func (s *Store) AddUser(fullName, role string, balance decimal.Decimal) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	ts := now()
	s.users[s.nextUserID] = domain.User{
		ID:            s.nextUserID,
		FullName:      fullName,
		Email:         fmt.Sprintf("user%d@pharmacart.local", s.nextUserID),
		Role:          role,
		WalletBalance: balance,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	return s.nextUserID
}

// AddMedicine seeds a catalog entry and returns its id.
func (s *Store) AddMedicine(name string, price decimal.Decimal, active bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMedicineID++
	ts := now()
	s.medicines[s.nextMedicineID] = domain.Medicine{
		ID:        s.nextMedicineID,
		Name:      name,
		Price:     price,
		IsActive:  active,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	return s.nextMedicineID
}

func (s *Store) Ledger() *Ledger {
	return &Ledger{s: s}
}

func (s *Store) Orders() *Orders {
	return &Orders{s: s}
}

func (s *Store) Medicines() *Medicines {
	return &Medicines{s: s}
}

type snapshot struct {
	users       map[int]domain.User
	orders      map[uint]domain.Order
	nextOrderID uint
	nextItemID  uint
}

// Medicines are read-only once seeded and are left out of the snapshot.
func (s *Store) snapshot() snapshot {
	users := make(map[int]domain.User, len(s.users))
	for id, u := range s.users {
		users[id] = u
	}
	orders := make(map[uint]domain.Order, len(s.orders))
	for id, o := range s.orders {
		orders[id] = cloneOrder(o)
	}
	return snapshot{
		users:       users,
		orders:      orders,
		nextOrderID: s.nextOrderID,
		nextItemID:  s.nextItemID,
	}
}

func (s *Store) restore(snap snapshot) {
	s.users = snap.users
	s.orders = snap.orders
	s.nextOrderID = snap.nextOrderID
	s.nextItemID = snap.nextItemID
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
