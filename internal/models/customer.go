package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer represents a billable account.
type Customer struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	ContactName string    `json:"contact_name,omitempty" db:"contact_name"`
	Email       string    `json:"email,omitempty" db:"email"`
	Phone       string    `json:"phone,omitempty" db:"phone"`
	Address     string    `json:"address,omitempty" db:"address"`
	City        string    `json:"city,omitempty" db:"city"`
	State       string    `json:"state,omitempty" db:"state"`
	Zip         string    `json:"zip,omitempty" db:"zip"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Attention returns the contact name, or the customer name when no contact
// is recorded.
func (c *Customer) Attention() string {
	if c.ContactName != "" {
		return c.ContactName
	}
	return c.Name
}

// User is a login identity, optionally attached to a customer as one of its
// contacts.
type User struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	CustomerID       *uuid.UUID `json:"customer_id,omitempty" db:"customer_id"`
	Name             string     `json:"name" db:"name"`
	Email            string     `json:"email" db:"email"`
	IsBillingContact bool       `json:"is_billing_contact" db:"is_billing_contact"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}
