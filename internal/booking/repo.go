package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	ListByUser(ctx context.Context, userID string) ([]Appointment, error)
	ListByServiceTypes(ctx context.Context, types []string) ([]Appointment, error)
	UpdateStatus(ctx context.Context, id, status string) (*Appointment, error)
	ListOnDate(ctx context.Context, date string) ([]Slot, error)
	AdminSummary(ctx context.Context) (*Summary, error)
	ListUpcoming(ctx context.Context, date string) ([]Appointment, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const selectCols = `
    SELECT a.id, a.user_id, a.pet_id, a.service_id, a.employee_id,
           a.modality, a.status, a.date::text, a.time, COALESCE(a.comments,''),
           a.order_id, a.address_ref, a.lat, a.lng,
           COALESCE(s.name,''), COALESCE(s.type,''), COALESCE(m.name,''),
           a.created_at
    FROM appointments a
    LEFT JOIN services s ON s.id = a.service_id
    LEFT JOIN pets m ON m.id = a.pet_id
`

func scanAppointment(row interface{ Scan(...any) error }) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.UserID, &a.PetID, &a.ServiceID, &a.EmployeeID,
		&a.Modality, &a.Status, &a.Date, &a.Time, &a.Comments,
		&a.OrderID, &a.AddressRef, &a.Lat, &a.Lng,
		&a.ServiceName, &a.ServiceType, &a.PetName,
		&a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PGRepo) Create(ctx context.Context, a *Appointment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments
		  (id, user_id, pet_id, service_id, employee_id, modality, status, date, time, comments, order_id, address_ref, lat, lng, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''),$11,$12,$13,$14,NOW())
	`, a.ID, a.UserID, a.PetID, a.ServiceID, a.EmployeeID, a.Modality, a.Status, a.Date, a.Time, a.Comments, a.OrderID, a.AddressRef, a.Lat, a.Lng)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, selectCols+` WHERE a.id=$1`, id))
	if err != nil {
		return nil, ErrNotFound
	}
	return a, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, selectCols+` WHERE a.user_id=$1 ORDER BY a.date DESC, a.time DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByServiceTypes returns all appointments for staff roles; an empty types
// slice means no filter (admin view).
func (r *PGRepo) ListByServiceTypes(ctx context.Context, types []string) ([]Appointment, error) {
	q := selectCols
	args := []any{}
	if len(types) > 0 {
		q += ` WHERE s.type = ANY($1)`
		args = append(args, types)
	}
	q += ` ORDER BY a.date DESC, a.time DESC`
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id, status string) (*Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, status) {
		return nil, ErrInvalidTransition
	}
	tag, err := r.db.Exec(ctx, `UPDATE appointments SET status=$2 WHERE id=$1 AND status=$3`, id, status, cur.Status)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Lost a race with a concurrent transition.
		return nil, ErrInvalidTransition
	}
	cur.Status = status
	return cur, nil
}

// Slot is the occupied-time view used by the availability computation.
type Slot struct {
	Time            string
	DurationMinutes int
}

func (r *PGRepo) ListOnDate(ctx context.Context, date string) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.time, s.duration_minutes
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.date = $1 AND a.status IN ('pending','confirmed')
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.Time, &s.DurationMinutes); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepo) AdminSummary(ctx context.Context) (*Summary, error) {
	var s Summary
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'confirmed'),
		       COUNT(*) FILTER (WHERE status = 'completed')
		FROM appointments
	`).Scan(&s.Total, &s.Pending, &s.Confirmed, &s.Completed); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, selectCols+` ORDER BY a.date DESC, a.time DESC LIMIT 5`)
	if err != nil {
		return nil, err
	}
	recent, err := collect(rows)
	if err != nil {
		return nil, err
	}
	s.Recent = recent
	return &s, nil
}

// ListUpcoming returns pending/confirmed appointments on the given date, used
// by the reminder scheduler.
func (r *PGRepo) ListUpcoming(ctx context.Context, date string) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, selectCols+` WHERE a.date=$1 AND a.status IN ('pending','confirmed') ORDER BY a.time`, date)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

type rowsLike interface {
	Next() bool
	Scan(...any) error
	Close()
	Err() error
}

func collect(rows rowsLike) ([]Appointment, error) {
	defer rows.Close()
	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
