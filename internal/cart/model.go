package cart

// Item types stored on cart rows (legacy wire values).
const (
	TypeProduct = "producto"
	TypeCourse  = "curso"
)

type Item struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id,omitempty"`
	CourseID  string `json:"course_id,omitempty"`
	ItemType  string `json:"item_type"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type Cart struct {
	Items []Item `json:"items"`
	Total string `json:"total"`
}
