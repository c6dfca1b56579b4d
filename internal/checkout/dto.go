package checkout

import "encoding/json"

// Item types on the wire (legacy values, with English aliases accepted).
const (
	TipoProduct = "producto"
	TipoService = "servicio"
	TipoCourse  = "curso"
)

// AddressInput is the optional location attached to a service detail.
type AddressInput struct {
	Reference string   `json:"reference"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
}

type PetInput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ServiceDetail carries the booking data of a service-type line item.
type ServiceDetail struct {
	ServiceID string        `json:"serviceId"`
	Modality  string        `json:"modality"`
	Date      string        `json:"date"` // YYYY-MM-DD
	Time      string        `json:"time"` // HH:MM
	Comments  string        `json:"comments"`
	Address   *AddressInput `json:"address"`
	Pets      []PetInput    `json:"pets"`
}

// ItemInput is one cart entry as submitted by the client. Price is only
// trusted for service items; products and courses are re-priced server-side.
// swagger:model CheckoutItem
type ItemInput struct {
	Tipo          string         `json:"tipo" example:"producto"`
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Price         json.Number    `json:"price"`
	Qty           int            `json:"qty" example:"2"`
	ServiceDetail *ServiceDetail `json:"serviceDetail,omitempty"`
}

// OrderRequest is the POST /orders payload.
// swagger:model CreateOrderRequest
type OrderRequest struct {
	Items           []ItemInput `json:"items"`
	Shipping        json.Number `json:"shipping"`
	PaymentMethod   string      `json:"paymentMethod" example:"saldo"`
	ShippingAddress string      `json:"shippingAddress"`
}

// Result is what checkout returns to the client.
// swagger:model OrderResult
type Result struct {
	ID     string `json:"id"`
	Total  string `json:"total"`
	Status string `json:"status"`
}

func normalizeTipo(t string) (string, bool) {
	switch t {
	case TipoProduct, "product", "":
		return TipoProduct, true
	case TipoService, "service":
		return TipoService, true
	case TipoCourse, "course":
		return TipoCourse, true
	}
	return "", false
}
