package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-order-processing/internal/auth"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrForbidden          = errors.New("you can only update your own account")
)

type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context, f Filter) ([]User, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if in.Password1 != in.Password2 {
		return nil, ErrPasswordMismatch
	}
	hash, err := auth.HashPassword(in.Password1)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		DateOfBirth:  in.DateOfBirth,
		IsActive:     true,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate returns the active user matching the credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.store.GetByID(ctx, id)
}

// Update applies a partial update. Users may only update themselves.
func (s *Service) Update(ctx context.Context, actorID, id int64, in UpdateInput) (*User, error) {
	if actorID != id {
		return nil, ErrForbidden
	}
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p1, p2 := deref(in.Password1), deref(in.Password2)
	if (p1 != "" || p2 != "") && p1 != p2 {
		return nil, ErrPasswordMismatch
	}
	if p1 != "" {
		hash, err := auth.HashPassword(p1)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}

	if in.Email != nil {
		u.Email = NormalizeEmail(*in.Email)
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		u.PhoneNumber = *in.PhoneNumber
	}
	if in.DateOfBirth != nil {
		u.DateOfBirth = in.DateOfBirth
	}

	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]User, error) {
	return s.store.List(ctx, f)
}

// EnsureAdmin creates a superuser with the given credentials unless the email is already registered.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = NormalizeEmail(email)
	_, err := s.store.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	u := &User{Email: email, PasswordHash: hash, IsStaff: true, IsSuperuser: true, IsActive: true}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
