package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-order-processing/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `id, name, price, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListInStock returns one page of products with stock > 0 plus the total match count.
func (r *Repo) ListInStock(ctx context.Context, f Filter, p Page) ([]Product, int, error) {
	var w postgres.Where
	w.Raw("stock > 0")
	if f.Name != "" {
		w.Add("name ILIKE ?", postgres.Like(f.Name))
	}
	if f.PriceGTE != nil {
		w.Add("price >= ?", *f.PriceGTE)
	}
	if f.PriceLTE != nil {
		w.Add("price <= ?", *f.PriceLTE)
	}
	if f.StockGTE != nil {
		w.Add("stock >= ?", *f.StockGTE)
	}
	if f.StockLTE != nil {
		w.Add("stock <= ?", *f.StockLTE)
	}

	var count int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+w.SQL(), w.Args()...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	q := `SELECT ` + productColumns + ` FROM products` + w.SQL() +
		` ORDER BY id LIMIT ` + w.Arg(p.Size) + ` OFFSET ` + w.Arg(p.Offset())
	rows, err := r.DB.Query(ctx, q, w.Args()...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *prod)
	}
	return out, count, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id int64) (*Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (r *Repo) Create(ctx context.Context, p *Product) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products (name, price, stock) VALUES ($1,$2,$3)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Price, p.Stock,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, p *Product) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE products SET name=$2, price=$3, stock=$4, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		p.ID, p.Name, p.Price, p.Stock,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if postgres.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
