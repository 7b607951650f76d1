package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceStatus represents the provisioning state of a service.
type ServiceStatus string

const (
	ServiceStatusActive       ServiceStatus = "active"
	ServiceStatusProvisioning ServiceStatus = "provisioning"
	ServiceStatusSuspended    ServiceStatus = "suspended"
)

// Service is a provisioned, billable item (colocation, connectivity,
// cross-connect, ...) owned by one user.
type Service struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       uuid.UUID       `json:"user_id" db:"user_id"`
	Name         string          `json:"name" db:"name"`
	Type         string          `json:"type" db:"type"`
	Status       ServiceStatus   `json:"status" db:"status"`
	Location     string          `json:"location" db:"location"`
	MonthlyPrice decimal.Decimal `json:"monthly_price" db:"monthly_price"`
	StartDate    time.Time       `json:"start_date" db:"start_date"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Billable reports whether the service is charged in a billing cycle.
func (s *Service) Billable() bool {
	return s.Status == ServiceStatusActive
}
