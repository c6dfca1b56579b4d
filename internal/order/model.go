package order

import "time"

// Order statuses. An order is created pending and moves to paid exactly once,
// on settlement.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

type Order struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	// We store total as a string to avoid rounding errors (NUMERIC in Postgres)
	Total           string    `json:"total"`
	Status          string    `json:"status"`
	ShippingAddress string    `json:"shipping_address,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Line is an immutable snapshot of one priced entry within an order. At most
// one of ProductID/CourseID is set; a service line carries neither, only its
// free-text name. Snapshots are never updated after creation.
type Line struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"order_id"`
	ProductID *string `json:"product_id,omitempty"`
	CourseID  *string `json:"course_id,omitempty"`
	Name      string  `json:"name"`
	UnitPrice string  `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// Summary is the admin dashboard aggregate.
type Summary struct {
	TotalOrders int     `json:"total_orders"`
	PaidOrders  int     `json:"paid_orders"`
	Revenue     string  `json:"revenue"`
	Recent      []Order `json:"recent"`
}
