package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Address is a client delivery address as stored by the ordering backend.
type Address struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id,omitempty"`
	Label      string `json:"label,omitempty"`
	Street     string `json:"street" validate:"required"`
	Number     string `json:"number,omitempty"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district" validate:"required"`
	PostalCode string `json:"postal_code,omitempty"`
	IsDefault  bool   `json:"is_default"`
}

// AddressInput carries the fields a customer authors for a new address.
type AddressInput struct {
	Label      string `json:"label" validate:"max=40"`
	Street     string `json:"street" validate:"required,max=160"`
	Number     string `json:"number" validate:"max=20"`
	Complement string `json:"complement" validate:"max=120"`
	District   string `json:"district" validate:"required,max=120"`
	PostalCode string `json:"postal_code" validate:"max=12"`
}

// Normalize trims every field.
func (a AddressInput) Normalize() AddressInput {
	return AddressInput{
		Label:      strings.TrimSpace(a.Label),
		Street:     strings.TrimSpace(a.Street),
		Number:     strings.TrimSpace(a.Number),
		Complement: strings.TrimSpace(a.Complement),
		District:   strings.TrimSpace(a.District),
		PostalCode: strings.TrimSpace(a.PostalCode),
	}
}

// AddressPatch lists the mutable fields of an existing address; nil means unchanged.
type AddressPatch struct {
	Label      *string `json:"label,omitempty"`
	Street     *string `json:"street,omitempty"`
	Number     *string `json:"number,omitempty"`
	Complement *string `json:"complement,omitempty"`
	District   *string `json:"district,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	IsDefault  *bool   `json:"is_default,omitempty"`
}

// OneLine renders the address the way it is printed on a delivery ticket.
func (a Address) OneLine() string {
	var b strings.Builder
	b.WriteString(a.Street)
	if n := strings.TrimSpace(a.Number); n != "" {
		fmt.Fprintf(&b, ", %s", n)
	}
	if c := strings.TrimSpace(a.Complement); c != "" {
		fmt.Fprintf(&b, " - %s", c)
	}
	if d := strings.TrimSpace(a.District); d != "" {
		fmt.Fprintf(&b, ", %s", d)
	}
	if p := strings.TrimSpace(a.PostalCode); p != "" {
		fmt.Fprintf(&b, " (%s)", p)
	}
	return b.String()
}

// District is a delivery area with its configured fee.
type District struct {
	Name        string          `json:"name"`
	PostalCode  string          `json:"postal_code,omitempty"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

// Street is a search-as-you-type suggestion.
type Street struct {
	Name       string `json:"name"`
	District   string `json:"district,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}
