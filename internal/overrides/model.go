// Package overrides owns the set of client-specific pricing rules: validated
// writes with conflict detection, and the candidate query the resolver reads.
package overrides

import (
	"fmt"
	"time"
)

// OverrideRecord is a stored pricing rule for one client, scoped to a single
// product or an entire category, gated by order quantity and a validity
// window.
type OverrideRecord struct {
	ID              string     `json:"id" db:"id"`
	ClientID        string     `json:"client_id" db:"client_id"`
	ProductID       *string    `json:"product_id,omitempty" db:"product_id"`
	CategoryName    *string    `json:"category_name,omitempty" db:"category_name"`
	DiscountPercent *float64   `json:"discount_percent,omitempty" db:"discount_percent"`
	FixedPrice      *float64   `json:"fixed_price,omitempty" db:"fixed_price"`
	MinimumQuantity int        `json:"minimum_quantity" db:"minimum_quantity"`
	ValidFrom       time.Time  `json:"valid_from" db:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until,omitempty" db:"valid_until"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	Notes           *string    `json:"notes,omitempty" db:"notes"`
	CreatedBy       string     `json:"created_by" db:"created_by"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// PricingModeKind discriminates the two pricing mechanisms.
type PricingModeKind int

const (
	ModeFixedPrice PricingModeKind = iota
	ModePercentageDiscount
)

// PricingMode is the tagged form of a record's pricing mechanism. The stored
// schema keeps two nullable columns; validation guarantees exactly one is set,
// so Mode never has to guess which one wins.
type PricingMode struct {
	Kind            PricingModeKind
	FixedPrice      float64
	DiscountPercent float64
}

// FixedPrice constructs a flat-price mode.
func FixedPrice(amount float64) PricingMode {
	return PricingMode{Kind: ModeFixedPrice, FixedPrice: amount}
}

// PercentageDiscount constructs a percentage-discount mode.
func PercentageDiscount(percent float64) PricingMode {
	return PricingMode{Kind: ModePercentageDiscount, DiscountPercent: percent}
}

// Mode returns the record's pricing mechanism. Callers must only invoke this
// on records that passed Validate.
func (r *OverrideRecord) Mode() PricingMode {
	if r.FixedPrice != nil {
		return FixedPrice(*r.FixedPrice)
	}
	var percent float64
	if r.DiscountPercent != nil {
		percent = *r.DiscountPercent
	}
	return PercentageDiscount(percent)
}

// TargetsProduct reports whether the record is scoped to a single product.
func (r *OverrideRecord) TargetsProduct() bool {
	return r.ProductID != nil && *r.ProductID != ""
}

// Target returns the scope key of the record for conflict checks: the product
// id for product rules, the category name otherwise.
func (r *OverrideRecord) Target() string {
	if r.TargetsProduct() {
		return "product:" + *r.ProductID
	}
	if r.CategoryName != nil {
		return "category:" + *r.CategoryName
	}
	return ""
}

// AppliesAt reports whether asOf falls within the half-open validity window
// [ValidFrom, ValidUntil). A nil ValidUntil means no expiry.
func (r *OverrideRecord) AppliesAt(asOf time.Time) bool {
	if asOf.Before(r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && !asOf.Before(*r.ValidUntil) {
		return false
	}
	return true
}

// Validate enforces the per-record invariants. It returns an error wrapping
// ErrValidation so callers can map it uniformly.
func (r *OverrideRecord) Validate() error {
	if r.ClientID == "" {
		return fmt.Errorf("%w: client_id is required", ErrValidation)
	}

	hasProduct := r.ProductID != nil && *r.ProductID != ""
	hasCategory := r.CategoryName != nil && *r.CategoryName != ""
	if hasProduct == hasCategory {
		return fmt.Errorf("%w: exactly one of product_id or category_name must be set", ErrValidation)
	}

	hasDiscount := r.DiscountPercent != nil
	hasFixed := r.FixedPrice != nil
	if hasDiscount == hasFixed {
		return fmt.Errorf("%w: exactly one of discount_percent or fixed_price must be set", ErrValidation)
	}
	if hasDiscount && (*r.DiscountPercent < 0 || *r.DiscountPercent > 100) {
		return fmt.Errorf("%w: discount_percent must be within [0, 100]", ErrValidation)
	}
	if hasFixed && *r.FixedPrice < 0 {
		return fmt.Errorf("%w: fixed_price must not be negative", ErrValidation)
	}

	if r.MinimumQuantity < 1 {
		return fmt.Errorf("%w: minimum_quantity must be at least 1", ErrValidation)
	}

	if r.ValidUntil != nil && !r.ValidFrom.Before(*r.ValidUntil) {
		return fmt.Errorf("%w: valid_from must precede valid_until", ErrValidation)
	}

	return nil
}
