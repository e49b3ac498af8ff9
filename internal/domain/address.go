package domain

import (
	"fmt"
	"strings"
	"time"
)

// AddressType classifies a saved delivery address
type AddressType string

const (
	AddressHome  AddressType = "home"
	AddressWork  AddressType = "work"
	AddressOther AddressType = "other"
)

// Valid reports whether t is one of the known address types.
func (t AddressType) Valid() bool {
	switch t {
	case AddressHome, AddressWork, AddressOther:
		return true
	}
	return false
}

// Address is a delivery address owned by a user. At most one address per user is
// the default.
type Address struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Type      AddressType `json:"type"`
	Name      string      `json:"name"`
	Address   string      `json:"address"`
	City      string      `json:"city"`
	State     string      `json:"state"`
	Pincode   string      `json:"pincode"`
	Phone     string      `json:"phone"`
	IsDefault bool        `json:"is_default"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// DisplayString renders the address as the point-in-time text stored on orders.
func (a *Address) DisplayString() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Name, a.Address, a.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	region := strings.TrimSpace(a.State)
	if pin := strings.TrimSpace(a.Pincode); pin != "" {
		if region != "" {
			region += " - " + pin
		} else {
			region = pin
		}
	}
	if region != "" {
		parts = append(parts, region)
	}
	s := strings.Join(parts, ", ")
	if phone := strings.TrimSpace(a.Phone); phone != "" {
		s += fmt.Sprintf(" (Phone: %s)", phone)
	}
	return s
}
