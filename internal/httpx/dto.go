package httpx

import (
	"time"

	"github.com/ariefcatur/go-order-processing/internal/orders"
	"github.com/ariefcatur/go-order-processing/internal/products"
	"github.com/ariefcatur/go-order-processing/internal/promos"
	"github.com/ariefcatur/go-order-processing/internal/users"
	"github.com/shopspring/decimal"
)

// Money is always rendered with two decimals, as a string.

const maxAmountMessage = "Ensure that there are no more than 8 digits before the decimal point."

// tooLargeAmount reports whether d does not fit a NUMERIC(10,2) column once rounded.
func tooLargeAmount(d decimal.Decimal) bool {
	return d.Round(2).Abs().GreaterThanOrEqual(orders.MaxAmount)
}

type productResp struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProduct(p *products.Product) productResp {
	return productResp{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price.StringFixed(2),
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type pageResp struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []productResp `json:"results"`
}

type promoResp struct {
	ID                 int64     `json:"id"`
	Code               string    `json:"coupon_code"`
	Name               string    `json:"coupon_name"`
	Type               string    `json:"type"`
	StartAt            time.Time `json:"start_at"`
	EndedAt            time.Time `json:"ended_at"`
	FixedAmount        *string   `json:"fixed_amount"`
	DiscountPercentage *string   `json:"discount_percentage"`
	MaxDiscountAmount  *string   `json:"max_discount_amount"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toPromo(p *promos.PromoCode) promoResp {
	return promoResp{
		ID:                 p.ID,
		Code:               p.Code,
		Name:               p.Name,
		Type:               string(p.Type),
		StartAt:            p.StartAt,
		EndedAt:            p.EndedAt,
		FixedAmount:        fixed(p.FixedAmount),
		DiscountPercentage: fixed(p.DiscountPercentage),
		MaxDiscountAmount:  fixed(p.MaxDiscountAmount),
		IsActive:           p.IsActive,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func fixed(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

type orderUserResp struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber string  `json:"phone_number"`
	DateOfBirth *string `json:"date_of_birth"`
}

type orderItemResp struct {
	ID          int64  `json:"id"`
	Product     int64  `json:"product"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
}

type orderResp struct {
	ID         int64           `json:"id"`
	User       orderUserResp   `json:"user"`
	Items      []orderItemResp `json:"items"`
	Status     string          `json:"status"`
	CouponCode *string         `json:"coupon_code"`
	TotalPrice string          `json:"total_price"`
	Discount   string          `json:"discount"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toOrder(o *orders.Order) orderResp {
	u := o.User
	var dob *string
	if u.DateOfBirth != nil {
		s := u.DateOfBirth.Format(users.DateLayout)
		dob = &s
	}
	items := make([]orderItemResp, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResp{
			ID:          it.ID,
			Product:     it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price.StringFixed(2),
		})
	}
	var coupon *string
	if o.CouponCode != "" {
		c := o.CouponCode
		coupon = &c
	}
	return orderResp{
		ID: o.ID,
		User: orderUserResp{
			ID:          u.ID,
			Email:       u.Email,
			FirstName:   u.FirstName,
			LastName:    u.LastName,
			PhoneNumber: u.PhoneNumber,
			DateOfBirth: dob,
		},
		Items:      items,
		Status:     string(o.Status),
		CouponCode: coupon,
		TotalPrice: o.TotalPrice.StringFixed(2),
		Discount:   o.Discount.StringFixed(2),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}
