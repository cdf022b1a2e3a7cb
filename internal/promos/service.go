package promos

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("promo code not found")
	ErrCodeTaken = errors.New("promo code with this coupon code already exists")
)

type Store interface {
	List(ctx context.Context, f Filter) ([]PromoCode, error)
	Get(ctx context.Context, id int64) (*PromoCode, error)
	GetByCode(ctx context.Context, code string) (*PromoCode, error)
	Create(ctx context.Context, p *PromoCode) error
	Update(ctx context.Context, p *PromoCode) error
	Delete(ctx context.Context, id int64) error
	DeactivateEnded(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns all matching codes for admins; everyone else only sees codes valid right now.
func (s *Service) List(ctx context.Context, f Filter, admin bool) ([]PromoCode, error) {
	if !admin {
		now := s.now()
		f.ValidAt = &now
	}
	return s.store.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id int64, admin bool) (*PromoCode, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && !p.ActiveAt(s.now()) {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*PromoCode, error) {
	return s.store.GetByCode(ctx, strings.TrimSpace(code))
}

func (s *Service) Create(ctx context.Context, in Input) (*PromoCode, error) {
	p := &PromoCode{
		Code:               strings.TrimSpace(in.Code),
		Name:               in.Name,
		Type:               in.Type,
		StartAt:            in.StartAt,
		EndedAt:            in.EndedAt,
		FixedAmount:        in.FixedAmount,
		DiscountPercentage: in.DiscountPercentage,
		MaxDiscountAmount:  in.MaxDiscountAmount,
		IsActive:           true,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.dropUnused()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Patch) (*PromoCode, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Code != nil {
		p.Code = strings.TrimSpace(*in.Code)
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Type != nil {
		p.Type = *in.Type
	}
	if in.StartAt != nil {
		p.StartAt = *in.StartAt
	}
	if in.EndedAt != nil {
		p.EndedAt = *in.EndedAt
	}
	if in.FixedAmount.Set {
		p.FixedAmount = in.FixedAmount.Value
	}
	if in.DiscountPercentage.Set {
		p.DiscountPercentage = in.DiscountPercentage.Value
	}
	if in.MaxDiscountAmount.Set {
		p.MaxDiscountAmount = in.MaxDiscountAmount.Value
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.dropUnused()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// ExpireEnded deactivates every code whose window has closed.
func (s *Service) ExpireEnded(ctx context.Context) (int64, error) {
	return s.store.DeactivateEnded(ctx, s.now())
}
