package types

import (
	"fmt"
	"strings"
)

// ShippingAddress is the address snapshot frozen into an order at checkout.
// It is stored as jsonb and never re-derived from the user's address book.
type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	Area       string `json:"area,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Landmark   string `json:"landmark,omitempty"`
}

// Validate checks the fields an order cannot be delivered without.
func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.FullName) == "" {
		return fmt.Errorf("shipping address: missing full_name")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return fmt.Errorf("shipping address: missing phone")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("shipping address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("shipping address: missing city")
	}
	return nil
}
