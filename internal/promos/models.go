package promos

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeFixed      Type = "FIXED"
	TypePercentage Type = "PERCENTAGE"
)

func (t Type) Valid() bool { return t == TypeFixed || t == TypePercentage }

type PromoCode struct {
	ID                 int64
	Code               string
	Name               string
	Type               Type
	StartAt            time.Time
	EndedAt            time.Time
	FixedAmount        *decimal.Decimal
	DiscountPercentage *decimal.Decimal
	MaxDiscountAmount  *decimal.Decimal
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

var (
	hundred = decimal.NewFromInt(100)
	// exclusive bound of the NUMERIC(10,2) amount columns
	maxAmount = decimal.New(1, 8)
)

// ActiveAt reports whether the code is switched on and now lies inside its window (inclusive).
func (p *PromoCode) ActiveAt(now time.Time) bool {
	return p.IsActive && !now.Before(p.StartAt) && !now.After(p.EndedAt)
}

// Discount returns the discount for amount, rounded half-even to cents.
// FIXED gives the fixed amount; PERCENTAGE gives amount*pct/100 capped by MaxDiscountAmount when set.
func (p *PromoCode) Discount(amount decimal.Decimal) decimal.Decimal {
	switch p.Type {
	case TypeFixed:
		if p.FixedAmount == nil {
			return decimal.Zero
		}
		return p.FixedAmount.RoundBank(2)
	case TypePercentage:
		if p.DiscountPercentage == nil {
			return decimal.Zero
		}
		d := amount.Mul(*p.DiscountPercentage).Div(hundred)
		if p.MaxDiscountAmount != nil && d.GreaterThan(*p.MaxDiscountAmount) {
			d = *p.MaxDiscountAmount
		}
		return d.RoundBank(2)
	}
	return decimal.Zero
}

// FieldError is a validation failure tied to one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// dropUnused clears the amounts the code's type never reads.
func (p *PromoCode) dropUnused() {
	switch p.Type {
	case TypeFixed:
		p.DiscountPercentage, p.MaxDiscountAmount = nil, nil
	case TypePercentage:
		p.FixedAmount = nil
	}
}

// Validate checks the kind-specific fields and the validity window.
func (p *PromoCode) Validate() error {
	if !p.Type.Valid() {
		return &FieldError{Field: "type", Message: fmt.Sprintf("%q is not a valid choice", p.Type)}
	}
	if p.Type == TypeFixed && p.FixedAmount == nil {
		return &FieldError{Field: "fixed_amount", Message: "This field is required for FIXED promo codes"}
	}
	if p.Type == TypePercentage && p.DiscountPercentage == nil {
		return &FieldError{Field: "discount_percentage", Message: "This field is required for PERCENTAGE promo codes"}
	}
	if p.DiscountPercentage != nil && (p.DiscountPercentage.IsNegative() || p.DiscountPercentage.GreaterThan(hundred)) {
		return &FieldError{Field: "discount_percentage", Message: "Must be between 0 and 100"}
	}
	for field, v := range map[string]*decimal.Decimal{"fixed_amount": p.FixedAmount, "max_discount_amount": p.MaxDiscountAmount} {
		if v == nil {
			continue
		}
		if v.IsNegative() {
			return &FieldError{Field: field, Message: "Must not be negative"}
		}
		if v.Round(2).GreaterThanOrEqual(maxAmount) {
			return &FieldError{Field: field, Message: "Ensure that there are no more than 8 digits before the decimal point"}
		}
	}
	if p.StartAt.After(p.EndedAt) {
		return &FieldError{Field: "ended_at", Message: "End date must be after start date"}
	}
	return nil
}

type Filter struct {
	Code           string
	Name           string
	Type           Type
	FixedAmountGTE *decimal.Decimal
	FixedAmountLTE *decimal.Decimal
	StartAtGTE     *time.Time
	StartAtLTE     *time.Time
	EndedAtGTE     *time.Time
	EndedAtLTE     *time.Time
	IsActive       *bool

	// ValidAt restricts the result to codes active at that instant.
	ValidAt *time.Time
}

type Input struct {
	Code               string
	Name               string
	Type               Type
	StartAt            time.Time
	EndedAt            time.Time
	FixedAmount        *decimal.Decimal
	DiscountPercentage *decimal.Decimal
	MaxDiscountAmount  *decimal.Decimal
	IsActive           *bool
}

// NullableAmount is a patch value for a nullable amount column. Set=false leaves the
// column unchanged; Set with a nil Value clears it.
type NullableAmount struct {
	Set   bool
	Value *decimal.Decimal
}

// SetAmount returns a NullableAmount that writes d (nil clears).
func SetAmount(d *decimal.Decimal) NullableAmount { return NullableAmount{Set: true, Value: d} }

// Patch is a partial update; nil fields stay unchanged.
type Patch struct {
	Code               *string
	Name               *string
	Type               *Type
	StartAt            *time.Time
	EndedAt            *time.Time
	FixedAmount        NullableAmount
	DiscountPercentage NullableAmount
	MaxDiscountAmount  NullableAmount
	IsActive           *bool
}
