package overrides

import "time"

type CreateOverrideRequest struct {
	ClientID        string     `json:"client_id" validate:"required"`
	ProductID       *string    `json:"product_id,omitempty" validate:"omitempty,min=1"`
	CategoryName    *string    `json:"category_name,omitempty" validate:"omitempty,min=1"`
	DiscountPercent *float64   `json:"discount_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	FixedPrice      *float64   `json:"fixed_price,omitempty" validate:"omitempty,gte=0"`
	MinimumQuantity int        `json:"minimum_quantity" validate:"gte=0"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

// UpdateOverrideRequest patches an existing record. Nil fields are left
// untouched; RemoveValidUntil clears the expiry to make the window unbounded.
type UpdateOverrideRequest struct {
	ProductID        *string    `json:"product_id,omitempty" validate:"omitempty,min=1"`
	CategoryName     *string    `json:"category_name,omitempty" validate:"omitempty,min=1"`
	DiscountPercent  *float64   `json:"discount_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	FixedPrice       *float64   `json:"fixed_price,omitempty" validate:"omitempty,gte=0"`
	MinimumQuantity  *int       `json:"minimum_quantity,omitempty" validate:"omitempty,gte=1"`
	ValidFrom        *time.Time `json:"valid_from,omitempty"`
	ValidUntil       *time.Time `json:"valid_until,omitempty"`
	RemoveValidUntil bool       `json:"remove_valid_until,omitempty"`
	IsActive         *bool      `json:"is_active,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
}

type ListOverridesRequest struct {
	ClientID     string  `json:"client_id" validate:"required"`
	ProductID    *string `json:"product_id,omitempty"`
	CategoryName *string `json:"category_name,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
	Limit        int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset       int     `json:"offset" validate:"gte=0"`
}
