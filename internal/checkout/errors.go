package checkout

import "errors"

// Error taxonomy for the checkout/settlement core. Handlers map these onto
// HTTP codes; details are attached by wrapping with fmt.Errorf("%w: ...").
var (
	// ErrValidation covers malformed or missing input (400).
	ErrValidation = errors.New("validation error")
	// ErrNotFound means a referenced product/course/order does not exist (404).
	ErrNotFound = errors.New("not found")
	// ErrNotAvailable means the entity exists but is not purchasable (400).
	ErrNotAvailable = errors.New("not available for purchase")
	// ErrInsufficientStock carries requested/available in its message (400).
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInsufficientBalance carries balance/total in its message (400).
	ErrInsufficientBalance = errors.New("insufficient balance")
)
