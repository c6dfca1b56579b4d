package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// line is the tagged union the builder dispatches on. Exactly one concrete
// type per item kind; the duck-typed `tipo` field from the wire is resolved
// here, once, instead of being string-switched all over the core.
type line interface {
	isLine()
}

type productLine struct {
	ProductID string
	Qty       int
}

type courseLine struct {
	CourseID string
}

type serviceLine struct {
	Name   string
	Price  decimal.Decimal // trusted client price (front-end modifiers)
	Qty    int
	Detail ServiceDetail
}

func (productLine) isLine() {}
func (courseLine) isLine()  {}
func (serviceLine) isLine() {}

// parseLines validates and converts the wire items. Any malformed item fails
// the whole request: a checkout never silently drops what the client paid for.
func parseLines(items []ItemInput) ([]line, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items in order", ErrValidation)
	}

	out := make([]line, 0, len(items))
	for i, it := range items {
		tipo, ok := normalizeTipo(it.Tipo)
		if !ok {
			return nil, fmt.Errorf("%w: item %d has unknown tipo %q", ErrValidation, i, it.Tipo)
		}
		qty := it.Qty
		if qty < 1 {
			qty = 1
		}

		switch tipo {
		case TipoProduct:
			if it.ID == "" {
				return nil, fmt.Errorf("%w: item %d is missing product id", ErrValidation, i)
			}
			out = append(out, productLine{ProductID: it.ID, Qty: qty})

		case TipoCourse:
			if it.ID == "" {
				return nil, fmt.Errorf("%w: item %d is missing course id", ErrValidation, i)
			}
			out = append(out, courseLine{CourseID: it.ID})

		case TipoService:
			price, err := parseAmount(it.Price)
			if err != nil || price.IsNegative() {
				return nil, fmt.Errorf("%w: item %d has invalid service price", ErrValidation, i)
			}
			det, err := validateDetail(it.ServiceDetail, i)
			if err != nil {
				return nil, err
			}
			name := it.Name
			if name == "" {
				name = "Servicio"
			}
			out = append(out, serviceLine{Name: name, Price: price, Qty: qty, Detail: *det})
		}
	}
	return out, nil
}

// validateDetail enforces the fields an appointment cannot be created
// without. A missing or incomplete detail fails the order rather than
// silently dropping the appointment.
func validateDetail(det *ServiceDetail, idx int) (*ServiceDetail, error) {
	if det == nil {
		return nil, fmt.Errorf("%w: service item %d is missing serviceDetail", ErrValidation, idx)
	}
	if det.ServiceID == "" {
		return nil, fmt.Errorf("%w: service item %d is missing serviceId", ErrValidation, idx)
	}
	if det.Date == "" || det.Time == "" {
		return nil, fmt.Errorf("%w: service item %d is missing date/time", ErrValidation, idx)
	}
	withID := 0
	for _, p := range det.Pets {
		if p.ID != "" {
			withID++
		}
	}
	if withID == 0 {
		return nil, fmt.Errorf("%w: service item %d has no pets", ErrValidation, idx)
	}
	return det, nil
}
