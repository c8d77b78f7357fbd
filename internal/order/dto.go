package order

// CreateOrderLine is one requested position. Price fields submitted by the
// client are not part of this shape and are ignored on decode: unit prices
// and the total are always taken from the catalog.
// swagger:model CreateOrderLine
type CreateOrderLine struct {
	ManufacturingID string `json:"manufacturing_id" example:"AMB-0142"`
	Quantity        int    `json:"quantity"         example:"2"`
}

// CreateOrderRequest payload of order creation.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	Email    string            `json:"email"    example:"ona@example.com"`
	Delivery bool              `json:"delivery" example:"true"`
	Address  string            `json:"address"  example:"Gedimino pr. 1, Vilnius"`
	Items    []CreateOrderLine `json:"items"`
	Locale   string            `json:"locale"   example:"lt"`
}

// UpdateStatusRequest payload of the admin status override.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status string `json:"status" example:"packing"`
}
