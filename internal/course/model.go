package course

import "time"

// Enrollment snapshots the course title and price at purchase time. The
// (user, course) pair is unique: enrolling twice is a no-op, never an error
// and never a duplicate row, and progress is preserved.
type Enrollment struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	CourseID      string    `json:"course_id"`
	TitleSnapshot string    `json:"title_snapshot"`
	PriceSnapshot string    `json:"price_snapshot"`
	Progress      int       `json:"progress"`
	CoverURL      string    `json:"cover_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
