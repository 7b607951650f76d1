package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abelcubano/main-project/internal/config"
	"github.com/abelcubano/main-project/internal/database"
	"github.com/abelcubano/main-project/internal/handler"
	"github.com/abelcubano/main-project/internal/invoicepdf"
	"github.com/abelcubano/main-project/internal/notify"
	"github.com/abelcubano/main-project/internal/repository"
	"github.com/abelcubano/main-project/internal/service"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	loc     *time.Location
	db      *database.Postgres
	redis   *database.Redis
	billing service.BillingService
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	loc, err := cfg.Billing.Location()
	if err != nil {
		return nil, err
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, loc: loc, db: db}

	var options []service.Option
	if cfg.Redis.Enabled {
		a.redis, err = database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		options = append(options, service.WithCycleLock(service.NewRedisCycleLock(a.redis.Client(), cfg.Billing.LockTTL)))
	}

	sender := notify.NewSender(cfg.SMTP, logger)
	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	_ = notify.CheckConnection(verifyCtx, sender, logger)
	cancel()

	notifier, err := notify.New(logger, sender, notify.Branding{
		Company:      cfg.Document.CompanyName,
		Tagline:      cfg.Document.Tagline,
		Locality:     cfg.Document.Locality,
		BillingEmail: cfg.Document.BillingEmail,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create notifier: %w", err)
	}

	renderer := invoicepdf.NewRenderer(invoicepdf.Branding{
		Company:      cfg.Document.CompanyName,
		Tagline:      cfg.Document.Tagline,
		Address:      cfg.Document.Address,
		Locality:     cfg.Document.Locality,
		ContactLine:  cfg.Document.ContactLine,
		PaymentTerms: cfg.Document.PaymentTerms,
		BillingEmail: cfg.Document.BillingEmail,
	}, loc)

	a.billing = service.NewBillingService(
		repository.NewCatalogRepository(db.Pool()),
		repository.NewInvoiceRepository(db.Pool()),
		notifier,
		renderer,
		service.BillingOptions{
			Location:        loc,
			Workers:         cfg.Billing.Workers,
			IncompleteGrace: cfg.Billing.IncompleteGrace,
		},
		logger,
		options...,
	)
	return a, nil
}

// readinessChecks lists the dependencies /ready probes.
func (a *app) readinessChecks() []handler.Check {
	checks := []handler.Check{{Component: "database", Pinger: a.db}}
	if a.redis != nil {
		checks = append(checks, handler.Check{Component: "redis", Pinger: a.redis})
	}
	return checks
}

// Close releases connections.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
