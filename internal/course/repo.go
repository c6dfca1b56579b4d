package course

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Upsert(ctx context.Context, e *Enrollment) error
	ListByUser(ctx context.Context, userID string) ([]Enrollment, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Upsert(ctx context.Context, e *Enrollment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO enrollments (id, user_id, course_id, title_snapshot, price_snapshot, progress, created_at)
		VALUES ($1,$2,$3,$4,$5,0,NOW())
		ON CONFLICT (user_id, course_id) DO NOTHING
	`, e.ID, e.UserID, e.CourseID, e.TitleSnapshot, e.PriceSnapshot)
	return err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Enrollment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.user_id, e.course_id, e.title_snapshot, COALESCE(e.price_snapshot,0)::text, e.progress,
		       COALESCE(c.cover_url,''), e.created_at
		FROM enrollments e
		LEFT JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = $1
		ORDER BY e.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.TitleSnapshot, &e.PriceSnapshot, &e.Progress, &e.CoverURL, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
