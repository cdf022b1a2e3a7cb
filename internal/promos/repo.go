package promos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-order-processing/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const promoColumns = `id, coupon_code, coupon_name, type, start_at, ended_at, fixed_amount,
	discount_percentage, max_discount_amount, is_active, created_at, updated_at`

func scanPromo(row pgx.Row) (*PromoCode, error) {
	var p PromoCode
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Type, &p.StartAt, &p.EndedAt, &p.FixedAmount,
		&p.DiscountPercentage, &p.MaxDiscountAmount, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) List(ctx context.Context, f Filter) ([]PromoCode, error) {
	var w postgres.Where
	if f.Code != "" {
		w.Add("coupon_code ILIKE ?", postgres.Like(f.Code))
	}
	if f.Name != "" {
		w.Add("coupon_name ILIKE ?", postgres.Like(f.Name))
	}
	if f.Type != "" {
		w.Add("type = ?", string(f.Type))
	}
	if f.FixedAmountGTE != nil {
		w.Add("fixed_amount >= ?", *f.FixedAmountGTE)
	}
	if f.FixedAmountLTE != nil {
		w.Add("fixed_amount <= ?", *f.FixedAmountLTE)
	}
	if f.StartAtGTE != nil {
		w.Add("start_at >= ?", *f.StartAtGTE)
	}
	if f.StartAtLTE != nil {
		w.Add("start_at <= ?", *f.StartAtLTE)
	}
	if f.EndedAtGTE != nil {
		w.Add("ended_at >= ?", *f.EndedAtGTE)
	}
	if f.EndedAtLTE != nil {
		w.Add("ended_at <= ?", *f.EndedAtLTE)
	}
	if f.IsActive != nil {
		w.Add("is_active = ?", *f.IsActive)
	}
	if f.ValidAt != nil {
		w.Raw("is_active")
		w.Add("start_at <= ?", *f.ValidAt)
		w.Add("ended_at >= ?", *f.ValidAt)
	}

	rows, err := r.DB.Query(ctx, `SELECT `+promoColumns+` FROM promo_codes`+w.SQL()+` ORDER BY start_at DESC, id DESC`, w.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PromoCode{}
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id int64) (*PromoCode, error) {
	return scanPromo(r.DB.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE id=$1`, id))
}

func (r *Repo) GetByCode(ctx context.Context, code string) (*PromoCode, error) {
	return scanPromo(r.DB.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE coupon_code=$1`, code))
}

func (r *Repo) Create(ctx context.Context, p *PromoCode) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO promo_codes (coupon_code, coupon_name, type, start_at, ended_at, fixed_amount,
		                         discount_percentage, max_discount_amount, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		p.Code, p.Name, string(p.Type), p.StartAt, p.EndedAt, p.FixedAmount,
		p.DiscountPercentage, p.MaxDiscountAmount, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrCodeTaken
	}
	if err != nil {
		return fmt.Errorf("insert promo code: %w", err)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, p *PromoCode) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE promo_codes SET coupon_code=$2, coupon_name=$3, type=$4, start_at=$5, ended_at=$6,
		       fixed_amount=$7, discount_percentage=$8, max_discount_amount=$9, is_active=$10,
		       updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		p.ID, p.Code, p.Name, string(p.Type), p.StartAt, p.EndedAt, p.FixedAmount,
		p.DiscountPercentage, p.MaxDiscountAmount, p.IsActive,
	).Scan(&p.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case postgres.IsUniqueViolation(err):
		return ErrCodeTaken
	case err != nil:
		return fmt.Errorf("update promo code %d: %w", p.ID, err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM promo_codes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete promo code %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateEnded switches off active codes whose window closed before now.
func (r *Repo) DeactivateEnded(ctx context.Context, now time.Time) (int64, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE promo_codes SET is_active = FALSE, updated_at = now()
		WHERE is_active AND ended_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("deactivate ended promo codes: %w", err)
	}
	return ct.RowsAffected(), nil
}
