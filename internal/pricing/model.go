// Package pricing computes the effective unit price for one line item by
// selecting the highest-precedence applicable override.
package pricing

import (
	"errors"
	"time"
)

// ErrInvalidQuantity indicates a non-positive quantity, which is a caller error.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// Reasons explaining why no override applied, surfaced so quoting UIs can
// explain pricing to staff.
const (
	ReasonNoRule          = "no rule applied"
	ReasonMinimumQuantity = "minimum quantity not met"
	ReasonOutsideWindow   = "outside validity window"
)

type ResolveRequest struct {
	ClientID     string     `json:"client_id" validate:"required"`
	ProductID    string     `json:"product_id" validate:"required"`
	CategoryName string     `json:"category_name,omitempty"`
	BasePrice    float64    `json:"base_price" validate:"gte=0"`
	Quantity     int        `json:"quantity"`
	AsOf         *time.Time `json:"as_of,omitempty"`
}

// PriceResolution is the priced result for one line item.
type PriceResolution struct {
	FinalPrice      float64 `json:"final_price"`
	BasePrice       float64 `json:"base_price"`
	DiscountApplied bool    `json:"discount_applied"`
	DiscountAmount  float64 `json:"discount_amount"`
	AppliedRuleID   *string `json:"applied_rule_id,omitempty"`
	Reason          string  `json:"reason,omitempty"`
}
