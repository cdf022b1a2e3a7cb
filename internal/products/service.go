package products

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

var (
	ErrNotFound = errors.New("product not found")
	ErrInUse    = errors.New("product is referenced by existing orders")
)

type Store interface {
	ListInStock(ctx context.Context, f Filter, p Page) ([]Product, int, error)
	Get(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
}

// Cache stores serialized listing pages. Implemented by redisx.ListCache.
// Get returns the slot the page lives in; Set must be given that same slot.
type Cache interface {
	Get(ctx context.Context, key string) (slot string, value []byte, ok bool, err error)
	Set(ctx context.Context, slot string, value []byte) error
	Invalidate(ctx context.Context) error
}

type Service struct {
	store Store
	cache Cache
	log   *slog.Logger
}

func NewService(store Store, cache Cache, log *slog.Logger) *Service {
	return &Service{store: store, cache: cache, log: log.With("component", "products")}
}

// List returns in-stock products. Pages are served from the cache when possible;
// cache failures fall through to the store.
func (s *Service) List(ctx context.Context, f Filter, p Page) (*ListResult, error) {
	p = p.Normalize()
	key := CacheKey(f, p)

	var slot string
	if s.cache != nil {
		var (
			b   []byte
			ok  bool
			err error
		)
		slot, b, ok, err = s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("product cache read failed", "error", err)
		} else if ok {
			var res ListResult
			if err := json.Unmarshal(b, &res); err == nil {
				return &res, nil
			}
		}
	}

	items, count, err := s.store.ListInStock(ctx, f, p)
	if err != nil {
		return nil, err
	}
	res := &ListResult{Count: count, Items: items}

	if slot != "" {
		if b, err := json.Marshal(res); err == nil {
			if err := s.cache.Set(ctx, slot, b); err != nil {
				s.log.Warn("product cache write failed", "error", err)
			}
		}
	}
	return res, nil
}

// Get returns a product; non-admin callers only see products in stock.
func (s *Service) Get(ctx context.Context, id int64, includeOutOfStock bool) (*Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Stock <= 0 && !includeOutOfStock {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Product, error) {
	p := &Product{Name: in.Name, Price: in.Price.Round(2), Stock: in.Stock}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Price != nil {
		p.Price = in.Price.Round(2)
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Invalidate drops cached listings; orders call it after stock changes.
func (s *Service) Invalidate(ctx context.Context) { s.invalidate(ctx) }

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("product cache invalidation failed", "error", err)
	}
}
