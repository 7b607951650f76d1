// Package repository provides data access layer implementations.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a write violates a unique constraint,
	// such as a reused invoice number.
	ErrDuplicate = errors.New("duplicate")

	// ErrPeriodBilled is returned when the owner already has an invoice for
	// the billing period.
	ErrPeriodBilled = errors.New("billing period already invoiced")
)

const (
	uniqueViolation = "23505"

	ownerPeriodConstraint = "uq_invoices_owner_period"
)

// classifyUnique maps a unique violation to ErrPeriodBilled or ErrDuplicate,
// and returns nil for anything else.
func classifyUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	if pgErr.ConstraintName == ownerPeriodConstraint {
		return ErrPeriodBilled
	}
	return ErrDuplicate
}

// Numeric columns travel as text so no precision is lost to float64.
func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
