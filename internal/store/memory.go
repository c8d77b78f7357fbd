package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/martynasv/shopcore/internal/catalog"
	"github.com/martynasv/shopcore/internal/order"
	"github.com/martynasv/shopcore/internal/payment"
)

// Memory implements every persistence contract in memory behind one mutex.
// Run holds the mutex for the whole unit of work, which gives settlements
// the same serialization the row locks give them on Postgres.
type Memory struct {
	mu       sync.Mutex
	items    map[string]*catalog.Item // keyed by manufacturing id
	orders   map[string]*order.Order
	numbers  map[string]struct{}
	sessions map[string]*payment.Session
}

func NewMemory() *Memory {
	return &Memory{
		items:    make(map[string]*catalog.Item),
		orders:   make(map[string]*order.Order),
		numbers:  make(map[string]struct{}),
		sessions: make(map[string]*payment.Session),
	}
}

// ---- catalog.Repository ----

func (m *Memory) Create(ctx context.Context, it *catalog.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[it.ManufacturingID]; ok {
		return fmt.Errorf("item %s already exists", it.ManufacturingID)
	}
	cp := *it
	now := time.Now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.items[cp.ManufacturingID] = &cp
	return nil
}

func (m *Memory) GetByID(ctx context.Context, id string) (*catalog.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.ID == id {
			cp := *it
			return &cp, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (m *Memory) GetByManufacturingID(ctx context.Context, mid string) (*catalog.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[mid]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *Memory) List(ctx context.Context, q catalog.Query) ([]catalog.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]catalog.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ManufacturingID < out[j].ManufacturingID })
	return out, nil
}

// Stock reports current committed stock, for tests.
func (m *Memory) Stock(mid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[mid]; ok {
		return it.Stock
	}
	return 0
}

// ---- order.Repository ----

// Orders returns a view that implements order.Repository. Method sets of
// catalog and order repositories overlap (Create, GetByID, List), so the
// order side lives on a separate receiver.
func (m *Memory) Orders() *MemoryOrders { return &MemoryOrders{m: m} }

type MemoryOrders struct{ m *Memory }

func (r *MemoryOrders) Create(ctx context.Context, o *order.Order) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.numbers[o.Number]; ok {
		return order.ErrNumberTaken
	}
	cp := *o
	cp.Items = append([]order.Line(nil), o.Items...)
	now := time.Now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	r.m.orders[cp.ID] = &cp
	r.m.numbers[cp.Number] = struct{}{}
	o.CreatedAt, o.UpdatedAt = now, now
	return nil
}

func (r *MemoryOrders) GetByID(ctx context.Context, id string) (*order.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.orderCopy(id)
}

func (r *MemoryOrders) List(ctx context.Context, limit, offset int) ([]order.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]order.Order, 0, len(r.m.orders))
	for _, o := range r.m.orders {
		cp := *o
		cp.Items = append([]order.Line(nil), o.Items...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryOrders) UpdateStatus(ctx context.Context, id string, st order.Status) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = st
	o.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) orderCopy(id string) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	cp.Items = append([]order.Line(nil), o.Items...)
	return &cp, nil
}

// ---- payment.SessionStore ----

func (m *Memory) Sessions() *MemorySessions { return &MemorySessions{m: m} }

type MemorySessions struct{ m *Memory }

func (r *MemorySessions) Create(ctx context.Context, s *payment.Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	cp := *s
	r.m.sessions[cp.ID] = &cp
	return nil
}

func (r *MemorySessions) Get(ctx context.Context, id string) (*payment.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemorySessions) UpdateStatus(ctx context.Context, id string, st payment.SessionStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return payment.ErrSessionNotFound
	}
	s.Status = st
	s.UpdatedAt = time.Now()
	return nil
}

// ---- payment.UnitOfWork ----

// Run executes fn under the store mutex. Mutations are staged on the tx and
// applied only when fn returns nil, so an abort leaves nothing behind.
func (m *Memory) Run(ctx context.Context, fn func(ctx context.Context, tx payment.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		m:        m,
		stock:    make(map[string]int),
		orders:   make(map[string]order.Status),
		sessions: make(map[string]payment.SessionStatus),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

type memTx struct {
	m        *Memory
	stock    map[string]int // staged deltas, negative = reserved
	orders   map[string]order.Status
	sessions map[string]payment.SessionStatus
}

func (t *memTx) OrderByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := t.m.orderCopy(id)
	if err != nil {
		return nil, err
	}
	if st, ok := t.orders[id]; ok {
		o.Status = st
	}
	return o, nil
}

func (t *memTx) UpdateOrderStatus(ctx context.Context, id string, st order.Status) error {
	if _, ok := t.m.orders[id]; !ok {
		return order.ErrNotFound
	}
	t.orders[id] = st
	return nil
}

func (t *memTx) ReserveStock(ctx context.Context, manufacturingID string, quantity int) error {
	it, ok := t.m.items[manufacturingID]
	if !ok || it.Stock+t.stock[manufacturingID] < quantity {
		return &payment.InsufficientStockError{ManufacturingID: manufacturingID}
	}
	t.stock[manufacturingID] -= quantity
	return nil
}

func (t *memTx) UpdateSessionStatus(ctx context.Context, id string, st payment.SessionStatus) error {
	if _, ok := t.m.sessions[id]; !ok {
		return payment.ErrSessionNotFound
	}
	t.sessions[id] = st
	return nil
}

func (t *memTx) apply() {
	now := time.Now()
	for mid, d := range t.stock {
		it := t.m.items[mid]
		it.Stock += d
		it.UpdatedAt = now
	}
	for id, st := range t.orders {
		o := t.m.orders[id]
		o.Status = st
		o.UpdatedAt = now
	}
	for id, st := range t.sessions {
		s := t.m.sessions[id]
		s.Status = st
		s.UpdatedAt = now
	}
}
