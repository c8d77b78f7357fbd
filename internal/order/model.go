package order

import "time"

type Order struct {
	ID           string    `json:"id"`
	Number       string    `json:"order_number"`
	EnteredEmail string    `json:"entered_email"`
	Delivery     bool      `json:"delivery"`
	Address      string    `json:"address,omitempty"`
	Items        []Line    `json:"items"`
	Total        string    `json:"total"` // NUMERIC -> string
	Status       Status    `json:"status"`
	Locale       string    `json:"locale"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Line is one order position. UnitPrice is the catalog price snapshotted at
// creation time; the client never supplies it.
type Line struct {
	ManufacturingID string `json:"manufacturing_id"`
	Quantity        int    `json:"quantity"`
	UnitPrice       string `json:"unit_price"`
}
