package catalog

import "time"

// Publication states for products and courses. Only published entries are
// purchasable.
const (
	StateDraft     = "draft"
	StatePublished = "published"
)

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// We store price as a string to avoid rounding errors (NUMERIC in Postgres)
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	Category  string    `json:"category,omitempty"`
	State     string    `json:"state"`
	Featured  bool      `json:"featured"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	Description     string `json:"description,omitempty"`
	BasePrice       string `json:"base_price"`
	DurationMinutes int    `json:"duration_minutes"`
	ImageURL        string `json:"image_url,omitempty"`
}

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	State       string    `json:"state"`
	Price       string    `json:"price"`
	CoverURL    string    `json:"cover_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateProductRequest payload of creation.
// swagger:model CreateProductRequest
type CreateProductRequest struct {
	Name        string `json:"name"        example:"Royal Canin Medium Adult"`
	Description string `json:"description" example:"Alimento seco 15kg"`
	Price       string `json:"price"       example:"389.90"`
	Stock       int    `json:"stock"       example:"10"`
	Category    string `json:"category"    example:"alimento"`
	State       string `json:"state"       example:"published"`
	ImageURL    string `json:"image_url"`
}

// UpdateProductRequest payload of partial update.
// swagger:model UpdateProductRequest
type UpdateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       *int   `json:"stock"`
	State       string `json:"state"`
	ImageURL    string `json:"image_url"`
}
