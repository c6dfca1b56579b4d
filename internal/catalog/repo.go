// Package catalog provides the repository interface and PostgreSQL
// implementation for products, grooming/vet services and courses.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("catalog entry not found")
)

type Query struct {
	Q             string
	OnlyPublished bool
	Limit         int
	Offset        int
}

type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, q Query) ([]Product, error)
	UpdateProduct(ctx context.Context, p *Product, updatePrice bool) error

	GetService(ctx context.Context, id string) (*Service, error)
	ListServices(ctx context.Context) ([]Service, error)

	GetCourse(ctx context.Context, id string) (*Course, error)
	ListCourses(ctx context.Context, onlyPublished bool) ([]Course, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) CreateProduct(ctx context.Context, p *Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO products (id, name, description, price, stock, category, state, featured, image_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
	`, p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.State, p.Featured, p.ImageURL)
	return err
}

func (r *PGRepo) GetProduct(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var p Product
	err := r.db.QueryRow(ctx, `
		SELECT id, name, COALESCE(description,''), price::text, stock, COALESCE(category,''), state, featured, COALESCE(image_url,''), created_at, updated_at
		FROM products WHERE id=$1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.State, &p.Featured, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *PGRepo) ListProducts(ctx context.Context, q Query) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	search := strings.TrimSpace(q.Q)

	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(description,''), price::text, stock, COALESCE(category,''), state, featured, COALESCE(image_url,''), created_at, updated_at
		FROM products
		WHERE ($1 = '' OR name ILIKE '%'||$1||'%' OR description ILIKE '%'||$1||'%')
		  AND (NOT $2 OR state = 'published')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, search, q.OnlyPublished, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.State, &p.Featured, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateProduct(ctx context.Context, p *Product, updatePrice bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if updatePrice {
		_, err := r.db.Exec(ctx, `
			UPDATE products
			SET name = COALESCE(NULLIF($2,''), name),
			    description = COALESCE(NULLIF($3,''), description),
			    price = $4,
			    stock = $5,
			    state = COALESCE(NULLIF($6,''), state),
			    image_url = COALESCE(NULLIF($7,''), image_url),
			    updated_at = NOW()
			WHERE id = $1
		`, p.ID, p.Name, p.Description, p.Price, p.Stock, p.State, p.ImageURL)
		return err
	}

	_, err := r.db.Exec(ctx, `
		UPDATE products
		SET name = COALESCE(NULLIF($2,''), name),
		    description = COALESCE(NULLIF($3,''), description),
		    stock = $4,
		    state = COALESCE(NULLIF($5,''), state),
		    image_url = COALESCE(NULLIF($6,''), image_url),
		    updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Stock, p.State, p.ImageURL)
	return err
}

func (r *PGRepo) GetService(ctx context.Context, id string) (*Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s Service
	err := r.db.QueryRow(ctx, `
		SELECT id, name, type, COALESCE(description,''), base_price::text, duration_minutes, COALESCE(image_url,'')
		FROM services WHERE id=$1
	`, id).Scan(&s.ID, &s.Name, &s.Type, &s.Description, &s.BasePrice, &s.DurationMinutes, &s.ImageURL)
	if err != nil {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *PGRepo) ListServices(ctx context.Context) ([]Service, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, name, type, COALESCE(description,''), base_price::text, duration_minutes, COALESCE(image_url,'')
		FROM services ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Type, &s.Description, &s.BasePrice, &s.DurationMinutes, &s.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetCourse(ctx context.Context, id string) (*Course, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c Course
	err := r.db.QueryRow(ctx, `
		SELECT id, title, COALESCE(description,''), state, COALESCE(price,0)::text, COALESCE(cover_url,''), created_at
		FROM courses WHERE id=$1
	`, id).Scan(&c.ID, &c.Title, &c.Description, &c.State, &c.Price, &c.CoverURL, &c.CreatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *PGRepo) ListCourses(ctx context.Context, onlyPublished bool) ([]Course, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, title, COALESCE(description,''), state, COALESCE(price,0)::text, COALESCE(cover_url,''), created_at
		FROM courses
		WHERE NOT $1 OR state = 'published'
		ORDER BY created_at DESC
	`, onlyPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.State, &c.Price, &c.CoverURL, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
