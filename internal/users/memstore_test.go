package users

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memStore struct {
	mu    sync.Mutex
	next  int64
	users map[int64]User
}

func newMemStore() *memStore { return &memStore{users: map[int64]User{}} }

func (m *memStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if strings.EqualFold(x.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	m.next++
	u.ID = m.next
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) List(_ context.Context, f Filter) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, u := range m.users {
		if f.IsStaff != nil && u.IsStaff != *f.IsStaff {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}
