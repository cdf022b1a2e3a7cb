package orders

import (
	"time"

	"github.com/ariefcatur/go-order-processing/internal/users"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID          int64
	UserID      int64
	User        users.User // diisi saat read (join users)
	Status      Status
	TotalPrice  decimal.Decimal
	Discount    decimal.Decimal
	PromoCodeID *int64
	CouponCode  string
	Items       []Item
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Item struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal // unit price * quantity at order time
}

type ItemInput struct {
	ProductID int64
	Quantity  int
}

type CreateInput struct {
	Items      []ItemInput
	CouponCode string
}

// UpdateInput: Items == nil keeps the current items; an empty CouponCode keeps the current code.
type UpdateInput struct {
	Items      []ItemInput
	CouponCode string
	Status     *Status
}

// LockedProduct is a product row held FOR UPDATE inside an order transaction.
type LockedProduct struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int
}

type Filter struct {
	TotalGTE    *decimal.Decimal
	TotalLTE    *decimal.Decimal
	DiscountGTE *decimal.Decimal
	DiscountLTE *decimal.Decimal
	CreatedGTE  *time.Time
	CreatedLTE  *time.Time
	CouponCode  string
	UserEmail   string
	UserID      *int64
	Status      Status
}
