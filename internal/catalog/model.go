package catalog

import "time"

type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// ManufacturingID is the stable business-facing identifier. Order lines
	// join against it, never against the internal id.
	ManufacturingID string `json:"manufacturing_id"`
	Description     string `json:"description,omitempty"`
	// We store price as a string to avoid rounding errors (NUMERIC in Postgres)
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateItemRequest payload of creation.
// swagger:model CreateItemRequest
type CreateItemRequest struct {
	Name            string `json:"name"             example:"Amber pendant"`
	ManufacturingID string `json:"manufacturing_id" example:"AMB-0142"`
	Description     string `json:"description"      example:"Baltic amber, silver chain"`
	Price           string `json:"price"            example:"49.90"`
	Stock           int    `json:"stock"            example:"10"`
}
