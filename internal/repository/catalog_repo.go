package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abelcubano/main-project/internal/models"
)

// CatalogRepository reads the customers, users and services a billing cycle
// charges for. It never writes.
type CatalogRepository interface {
	// ListActiveCustomers returns every active customer in creation order.
	ListActiveCustomers(ctx context.Context) ([]*models.Customer, error)

	// ListUsersForCustomer returns the users attached to a customer, oldest
	// first.
	ListUsersForCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.User, error)

	// ListActiveServicesForUsers returns the active services owned by any of
	// the given users, oldest first.
	ListActiveServicesForUsers(ctx context.Context, userIDs []uuid.UUID) ([]*models.Service, error)

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type catalogRepo struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepo{pool: pool}
}

const customerColumns = `
	id, name, COALESCE(contact_name, ''), COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(address, ''), COALESCE(city, ''), COALESCE(state, ''), COALESCE(zip, ''),
	active, created_at`

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.ContactName,
		&c.Email,
		&c.Phone,
		&c.Address,
		&c.City,
		&c.State,
		&c.Zip,
		&c.Active,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const userColumns = `id, customer_id, name, email, is_billing_contact, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.CustomerID,
		&u.Name,
		&u.Email,
		&u.IsBillingContact,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListActiveCustomers returns every active customer in creation order.
func (r *catalogRepo) ListActiveCustomers(ctx context.Context) ([]*models.Customer, error) {
	query := `SELECT ` + customerColumns + `
		FROM customers
		WHERE active = TRUE
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListActiveCustomers: %w", err)
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActiveCustomers: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// ListUsersForCustomer returns the users attached to a customer, oldest first.
func (r *catalogRepo) ListUsersForCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE customer_id = $1
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("ListUsersForCustomer: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ListUsersForCustomer: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListActiveServicesForUsers returns the active services owned by any of the
// given users.
func (r *catalogRepo) ListActiveServicesForUsers(ctx context.Context, userIDs []uuid.UUID) ([]*models.Service, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, user_id, name, type, status, location, monthly_price::text, start_date, created_at
		FROM services
		WHERE user_id = ANY($1) AND status = $2
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, userIDs, models.ServiceStatusActive)
	if err != nil {
		return nil, fmt.Errorf("ListActiveServicesForUsers: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		var s models.Service
		var price string
		if err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Name,
			&s.Type,
			&s.Status,
			&s.Location,
			&price,
			&s.StartDate,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ListActiveServicesForUsers: %w", err)
		}
		if s.MonthlyPrice, err = parseMoney(price); err != nil {
			return nil, fmt.Errorf("ListActiveServicesForUsers: service %s: %w", s.ID, err)
		}
		services = append(services, &s)
	}
	return services, rows.Err()
}

// GetUser retrieves a user by ID.
func (r *catalogRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetUser: %w", err)
	}
	return u, nil
}

// GetCustomer retrieves a customer by ID regardless of its active flag.
func (r *catalogRepo) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	c, err := scanCustomer(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetCustomer: %w", err)
	}
	return c, nil
}
