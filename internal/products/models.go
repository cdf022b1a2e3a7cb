package products

import (
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Filter struct {
	Name     string
	PriceGTE *decimal.Decimal
	PriceLTE *decimal.Decimal
	StockGTE *int
	StockLTE *int
}

type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

type ListResult struct {
	Count int       `json:"count"`
	Items []Product `json:"items"`
}

// CacheKey is a canonical form of the query; equal filters give equal keys.
func CacheKey(f Filter, p Page) string {
	v := url.Values{}
	if f.Name != "" {
		v.Set("name", f.Name)
	}
	if f.PriceGTE != nil {
		v.Set("price__gte", f.PriceGTE.String())
	}
	if f.PriceLTE != nil {
		v.Set("price__lte", f.PriceLTE.String())
	}
	if f.StockGTE != nil {
		v.Set("stock__gte", strconv.Itoa(*f.StockGTE))
	}
	if f.StockLTE != nil {
		v.Set("stock__lte", strconv.Itoa(*f.StockLTE))
	}
	v.Set("page", strconv.Itoa(p.Number))
	v.Set("page_size", strconv.Itoa(p.Size))
	return v.Encode()
}

type CreateInput struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

type UpdateInput struct {
	Name  *string
	Price *decimal.Decimal
	Stock *int
}
