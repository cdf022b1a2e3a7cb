package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-order-processing/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const userColumns = `id, email, password_hash, first_name, last_name, phone_number, date_of_birth,
	is_staff, is_superuser, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.PhoneNumber,
		&u.DateOfBirth, &u.IsStaff, &u.IsSuperuser, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Create(ctx context.Context, u *User) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, phone_number, date_of_birth,
		                   is_staff, is_superuser, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber, u.DateOfBirth,
		u.IsStaff, u.IsSuperuser, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email))
}

func (r *Repo) Update(ctx context.Context, u *User) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE users SET email=$2, password_hash=$3, first_name=$4, last_name=$5, phone_number=$6,
		       date_of_birth=$7, is_staff=$8, is_superuser=$9, is_active=$10, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber, u.DateOfBirth,
		u.IsStaff, u.IsSuperuser, u.IsActive,
	).Scan(&u.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case postgres.IsUniqueViolation(err):
		return ErrEmailTaken
	case err != nil:
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return nil
}

func (r *Repo) List(ctx context.Context, f Filter) ([]User, error) {
	var w postgres.Where
	if f.Email != "" {
		w.Add("email ILIKE ?", postgres.Like(f.Email))
	}
	if f.FirstName != "" {
		w.Add("first_name ILIKE ?", postgres.Like(f.FirstName))
	}
	if f.LastName != "" {
		w.Add("last_name ILIKE ?", postgres.Like(f.LastName))
	}
	if f.IsStaff != nil {
		w.Add("is_staff = ?", *f.IsStaff)
	}
	if f.IsActive != nil {
		w.Add("is_active = ?", *f.IsActive)
	}

	rows, err := r.DB.Query(ctx, `SELECT `+userColumns+` FROM users`+w.SQL()+` ORDER BY id`, w.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
