package payment

import "time"

// Methods. Legacy Spanish aliases are normalized at the API boundary.
const (
	MethodCash   = "cash"
	MethodCard   = "card"
	MethodQR     = "qr"
	MethodCrypto = "crypto"
	MethodWallet = "wallet"
)

// Statuses.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

type Payment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	// We store amount as a string to avoid rounding errors (NUMERIC in Postgres)
	Amount      string     `json:"amount"`
	Method      string     `json:"method"`
	Status      string     `json:"status"`
	ExternalRef string     `json:"external_ref,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NormalizeMethod maps wire values (including the legacy Spanish ones) onto
// the canonical method constants. ok is false for unknown methods.
func NormalizeMethod(m string) (string, bool) {
	switch m {
	case MethodCash, "efectivo", "":
		return MethodCash, true
	case MethodCard, "tarjeta":
		return MethodCard, true
	case MethodQR:
		return MethodQR, true
	case MethodCrypto:
		return MethodCrypto, true
	case MethodWallet, "saldo":
		return MethodWallet, true
	}
	return "", false
}
