package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/abelcubano/main-project/internal/database"
	"github.com/abelcubano/main-project/internal/handler"
	"github.com/abelcubano/main-project/internal/middleware"
	"github.com/abelcubano/main-project/internal/pkg/response"
	"github.com/abelcubano/main-project/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the billing HTTP API",
	Long: `Serve the billing API:

  POST /v1/billing/cycles             run one billing cycle
  GET  /v1/invoices/{id}/document     download an invoice PDF
  GET  /health, /ready, /metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("migrate", true, "apply pending migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stdout, cfg.Log.Level)
	slog.SetDefault(logger)

	if migrateFirst, _ := cmd.Flags().GetBool("migrate"); migrateFirst {
		if err := database.RunMigrations(cfg.Database); err != nil {
			return err
		}
		logger.Info("Migrations applied")
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	router, err := newRouter(routerConfig{
		Logger:  logger,
		Billing: a.billing,
		Loc:     a.loc,
		Origins: cfg.Server.AllowedOrigins,
		Timeout: cfg.Server.WriteTimeout,
		Checks:  a.readinessChecks(),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("Shutting down server", slog.String("signal", sig.String()))
	}

	// A running cycle finishes its in-flight customers before the handler
	// returns, so give shutdown the full write timeout.
	ctx, cancel := context.WithTimeout(context.Background(), max(cfg.Server.WriteTimeout, 30*time.Second))
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

type routerConfig struct {
	Logger  *slog.Logger
	Billing service.BillingService
	Loc     *time.Location
	Origins []string
	Timeout time.Duration
	Checks  []handler.Check
}

func newRouter(rc routerConfig) (http.Handler, error) {
	compress, err := middleware.Compress()
	if err != nil {
		return nil, fmt.Errorf("failed to create compression middleware: %w", err)
	}
	if rc.Timeout <= 0 {
		rc.Timeout = 5 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rc.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(rc.Origins...))
	r.Use(compress)

	health := handler.NewHealthHandler(rc.Checks...)
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	billingHandler := handler.NewBillingHandler(rc.Billing, rc.Loc)
	r.Route("/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(rc.Timeout))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			response.OK(w, map[string]string{
				"name":    "Billing API",
				"version": "1.0.0",
			})
		})
		r.Mount("/billing", billingHandler.CycleRoutes())
		r.Mount("/invoices", billingHandler.InvoiceRoutes())
	})

	return r, nil
}
