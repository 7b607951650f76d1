package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice. Only pending is
// set by the billing engine; the rest are driven by admin operations.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusOpen    InvoiceStatus = "open"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusPastDue InvoiceStatus = "past_due"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

// Invoice is a billing document for one billing owner covering one calendar
// month. Total is computed once at creation as Subtotal + Tax.
type Invoice struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	InvoiceNumber string          `json:"invoice_number" db:"invoice_number"`
	BillingPeriod *string         `json:"billing_period,omitempty" db:"billing_period"`
	Status        InvoiceStatus   `json:"status" db:"status"`
	IssueDate     time.Time       `json:"issue_date" db:"issue_date"`
	DueDate       time.Time       `json:"due_date" db:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax           decimal.Decimal `json:"tax" db:"tax"`
	Total         decimal.Decimal `json:"total" db:"total"`
	PaidAt        *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// InvoiceItem is one line of an invoice: a price snapshot of a service at
// generation time.
type InvoiceItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id" db:"invoice_id"`
	ServiceID   *uuid.UUID      `json:"service_id,omitempty" db:"service_id"`
	Description string          `json:"description" db:"description"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Total       decimal.Decimal `json:"total" db:"total"`
}
