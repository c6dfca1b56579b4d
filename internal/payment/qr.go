package payment

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// QRGenerator renders local bank-transfer QR codes. The payload is a plain
// JSON document the mobile banking apps scan; the reference is what the bank
// confirmation later carries back.
type QRGenerator struct {
	Merchant string
	Currency string
}

// QRCode is the generated artifact handed to the client.
type QRCode struct {
	Reference string `json:"reference"`
	ImageData string `json:"image_data"` // data:image/png;base64,...
	Payload   string `json:"payload"`
}

type qrPayload struct {
	Referencia string `json:"referencia"`
	PedidoID   string `json:"pedido_id"`
	Monto      string `json:"monto"`
	Moneda     string `json:"moneda"`
	Comercio   string `json:"comercio"`
}

// Generate builds the payload and the PNG for an order. The reference embeds
// the order id and a timestamp so retries produce distinct references.
func (g *QRGenerator) Generate(orderID, amount string, now time.Time) (*QRCode, error) {
	ref := fmt.Sprintf("QR-%s-%d", orderID, now.Unix())
	return g.ForReference(ref, orderID, amount)
}

// ForReference re-renders the QR for an already-issued reference, so an open
// payment keeps showing the exact code the bank will confirm.
func (g *QRGenerator) ForReference(ref, orderID, amount string) (*QRCode, error) {
	payload, err := json.Marshal(qrPayload{
		Referencia: ref,
		PedidoID:   orderID,
		Monto:      amount,
		Moneda:     g.Currency,
		Comercio:   g.Merchant,
	})
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}
	return &QRCode{
		Reference: ref,
		ImageData: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Payload:   string(payload),
	}, nil
}
