package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-order-processing/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		return fn(&txRepo{tx: tx})
	})
}

const orderSelect = `
	SELECT o.id, o.user_id, o.status, o.total_price, o.discount, o.promo_code_id,
	       COALESCE(pc.coupon_code, ''), o.created_at, o.updated_at,
	       u.id, u.email, u.first_name, u.last_name, u.phone_number, u.date_of_birth,
	       u.is_staff, u.is_superuser, u.is_active, u.created_at, u.updated_at
	FROM orders o
	JOIN users u ON u.id = o.user_id
	LEFT JOIN promo_codes pc ON pc.id = o.promo_code_id`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	u := &o.User
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalPrice, &o.Discount, &o.PromoCodeID,
		&o.CouponCode, &o.CreatedAt, &o.UpdatedAt,
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.DateOfBirth,
		&u.IsStaff, &u.IsSuperuser, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, orderIDs []int64) (map[int64][]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, orderSelect+` WHERE o.id=$1`, id))
	if err != nil {
		return nil, err
	}
	items, err := loadItems(ctx, r.DB, []int64{o.ID})
	if err != nil {
		return nil, fmt.Errorf("load items for order %d: %w", o.ID, err)
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Order, error) {
	var w postgres.Where
	if f.TotalGTE != nil {
		w.Add("o.total_price >= ?", *f.TotalGTE)
	}
	if f.TotalLTE != nil {
		w.Add("o.total_price <= ?", *f.TotalLTE)
	}
	if f.DiscountGTE != nil {
		w.Add("o.discount >= ?", *f.DiscountGTE)
	}
	if f.DiscountLTE != nil {
		w.Add("o.discount <= ?", *f.DiscountLTE)
	}
	if f.CreatedGTE != nil {
		w.Add("o.created_at >= ?", *f.CreatedGTE)
	}
	if f.CreatedLTE != nil {
		w.Add("o.created_at <= ?", *f.CreatedLTE)
	}
	if f.CouponCode != "" {
		w.Add("pc.coupon_code = ?", f.CouponCode)
	}
	if f.UserEmail != "" {
		w.Add("u.email ILIKE ?", postgres.Like(f.UserEmail))
	}
	if f.UserID != nil {
		w.Add("o.user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		w.Add("o.status = ?", string(f.Status))
	}

	rows, err := r.DB.Query(ctx, orderSelect+w.SQL()+` ORDER BY o.created_at DESC, o.id DESC`, w.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	ids := []int64{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := loadItems(ctx, r.DB, ids)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

type txRepo struct{ tx pgx.Tx }

func (t *txRepo) LockProducts(ctx context.Context, ids []int64) (map[int64]LockedProduct, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, name, price, stock FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]LockedProduct, len(ids))
	for rows.Next() {
		var p LockedProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (t *txRepo) AdjustStock(ctx context.Context, productID int64, delta int) error {
	_, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`, productID, delta)
	if err != nil {
		return fmt.Errorf("adjust stock of product %d: %w", productID, err)
	}
	return nil
}

func (t *txRepo) LockOrder(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, orderSelect+` WHERE o.id=$1 FOR UPDATE OF o`, id))
	if err != nil {
		return nil, err
	}
	items, err := loadItems(ctx, t.tx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (t *txRepo) PromoUsed(ctx context.Context, userID, promoID, excludeOrderID int64) (bool, error) {
	var used bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE user_id=$1 AND promo_code_id=$2 AND id<>$3)`,
		userID, promoID, excludeOrderID).Scan(&used)
	return used, err
}

func (t *txRepo) InsertOrder(ctx context.Context, o *Order) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, status, total_price, discount, promo_code_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		o.UserID, string(o.Status), o.TotalPrice, o.Discount, o.PromoCodeID,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrPromoNotApplicable
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return t.insertItems(ctx, o.ID, o.Items)
}

func (t *txRepo) insertItems(ctx context.Context, orderID int64, items []Item) error {
	for i := range items {
		it := &items[i]
		it.OrderID = orderID
		err := t.tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price)
			VALUES ($1,$2,$3,$4) RETURNING id`,
			orderID, it.ProductID, it.Quantity, it.Price,
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (t *txRepo) UpdateOrder(ctx context.Context, o *Order) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, total_price=$3, discount=$4, promo_code_id=$5, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		o.ID, string(o.Status), o.TotalPrice, o.Discount, o.PromoCodeID,
	).Scan(&o.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case postgres.IsUniqueViolation(err):
		return ErrPromoNotApplicable
	case err != nil:
		return fmt.Errorf("update order %d: %w", o.ID, err)
	}
	return nil
}

func (t *txRepo) ReplaceItems(ctx context.Context, orderID int64, items []Item) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	return t.insertItems(ctx, orderID, items)
}

func (t *txRepo) DeleteOrder(ctx context.Context, id int64) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
