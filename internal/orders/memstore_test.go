package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-order-processing/internal/promos"
	"github.com/ariefcatur/go-order-processing/internal/users"
)

// memStore is an in-memory Store; InTx works on a copy and only keeps it when fn succeeds.
type memStore struct {
	mu       sync.Mutex
	products map[int64]LockedProduct
	orders   map[int64]Order
	users    map[int64]users.User
	codes    map[int64]string
	nextID   int64
	nextItem int64
}

func newMemStore() *memStore {
	return &memStore{
		products: map[int64]LockedProduct{},
		orders:   map[int64]Order{},
		users:    map[int64]users.User{},
		codes:    map[int64]string{},
	}
}

func (m *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range m.products {
		c.products[k] = v
	}
	for k, v := range m.orders {
		v.Items = append([]Item(nil), v.Items...)
		c.orders[k] = v
	}
	for k, v := range m.users {
		c.users[k] = v
	}
	for k, v := range m.codes {
		c.codes[k] = v
	}
	c.nextID, c.nextItem = m.nextID, m.nextItem
	return c
}

func (m *memStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.clone()
	if err := fn(work); err != nil {
		return err
	}
	m.products, m.orders, m.nextID, m.nextItem = work.products, work.orders, work.nextID, work.nextItem
	return nil
}

func (m *memStore) hydrate(o Order) Order {
	o.User = m.users[o.UserID]
	if o.PromoCodeID != nil {
		o.CouponCode = m.codes[*o.PromoCodeID]
	}
	items := make([]Item, len(o.Items))
	for i, it := range o.Items {
		it.ProductName = m.products[it.ProductID].Name
		items[i] = it
	}
	o.Items = items
	return o
}

func (m *memStore) Get(_ context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o = m.hydrate(o)
	return &o, nil
}

func (m *memStore) List(_ context.Context, f Filter) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Order{}
	for _, o := range m.orders {
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, m.hydrate(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Tx methods; only called on the clone inside InTx.

func (m *memStore) LockProducts(_ context.Context, ids []int64) (map[int64]LockedProduct, error) {
	out := map[int64]LockedProduct{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memStore) AdjustStock(_ context.Context, productID int64, delta int) error {
	p := m.products[productID]
	p.Stock += delta
	m.products[productID] = p
	return nil
}

func (m *memStore) LockOrder(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Items = append([]Item(nil), o.Items...)
	return &o, nil
}

func (m *memStore) PromoUsed(_ context.Context, userID, promoID, excludeOrderID int64) (bool, error) {
	for _, o := range m.orders {
		if o.ID != excludeOrderID && o.UserID == userID && o.PromoCodeID != nil && *o.PromoCodeID == promoID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) InsertOrder(_ context.Context, o *Order) error {
	m.nextID++
	o.ID = m.nextID
	o.CreatedAt, o.UpdatedAt = time.Now(), time.Now()
	m.setItems(o.ID, o.Items)
	m.orders[o.ID] = *o
	return nil
}

func (m *memStore) setItems(orderID int64, items []Item) {
	for i := range items {
		m.nextItem++
		items[i].ID = m.nextItem
		items[i].OrderID = orderID
	}
}

func (m *memStore) UpdateOrder(_ context.Context, o *Order) error {
	if _, ok := m.orders[o.ID]; !ok {
		return ErrNotFound
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *memStore) ReplaceItems(_ context.Context, orderID int64, items []Item) error {
	m.setItems(orderID, items)
	o := m.orders[orderID]
	o.Items = items
	m.orders[orderID] = o
	return nil
}

func (m *memStore) DeleteOrder(_ context.Context, id int64) error {
	delete(m.orders, id)
	return nil
}

type fakePromos struct{ byID map[int64]*promos.PromoCode }

func (f *fakePromos) GetByCode(_ context.Context, code string) (*promos.PromoCode, error) {
	for _, p := range f.byID {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, promos.ErrNotFound
}

func (f *fakePromos) Get(_ context.Context, id int64, _ bool) (*promos.PromoCode, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, promos.ErrNotFound
	}
	return p, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	placed []int64
	err    error
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, o *Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, o.ID)
	return n.err
}

type countingObserver struct{ calls int }

func (c *countingObserver) Invalidate(context.Context) { c.calls++ }
