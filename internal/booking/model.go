package booking

import "time"

// Appointment statuses. Direct bookings enter as pending; appointments spawned
// by the inventory-validated checkout enter as confirmed.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Modalities.
const (
	ModalityOnSite    = "on-site"
	ModalityHomeVisit = "home-visit"
	ModalityDropOff   = "drop-off"
)

type Appointment struct {
	ID         string   `json:"id"`
	UserID     string   `json:"user_id"`
	PetID      *string  `json:"pet_id,omitempty"`
	ServiceID  string   `json:"service_id"`
	EmployeeID *string  `json:"employee_id,omitempty"`
	Modality   string   `json:"modality"`
	Status     string   `json:"status"`
	Date       string   `json:"date"` // YYYY-MM-DD
	Time       string   `json:"time"` // HH:MM
	Comments   string   `json:"comments,omitempty"`
	OrderID    *string  `json:"order_id,omitempty"`
	AddressRef *string  `json:"address_ref,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`

	// Joined display fields, populated on reads.
	ServiceName string `json:"service_name,omitempty"`
	ServiceType string `json:"service_type,omitempty"`
	PetName     string `json:"pet_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ValidStatus reports whether s is one of the known appointment statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition encodes the staff-driven status machine: pending appointments
// get confirmed or cancelled, confirmed ones completed or cancelled. Terminal
// states never move.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

// NormalizeModality maps the legacy wire values onto the canonical ones.
func NormalizeModality(m string) string {
	switch m {
	case "local", ModalityOnSite, "":
		return ModalityOnSite
	case "domicilio", ModalityHomeVisit:
		return ModalityHomeVisit
	case "retiro_entrega", ModalityDropOff:
		return ModalityDropOff
	}
	return ModalityOnSite
}

// Summary is the admin dashboard aggregate.
type Summary struct {
	Total     int           `json:"total"`
	Pending   int           `json:"pending"`
	Confirmed int           `json:"confirmed"`
	Completed int           `json:"completed"`
	Recent    []Appointment `json:"recent"`
}
