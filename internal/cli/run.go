package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelcubano/main-project/internal/billing"
	"github.com/abelcubano/main-project/internal/handler"
	"github.com/abelcubano/main-project/internal/service"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one billing cycle",
	Long: `Generate invoices for the calendar month containing the reference date
(today by default). Customers already billed for that month are skipped, so
running the command twice is safe.

The command exits non-zero only when the cycle itself aborts. Per-customer
failures are reported in the output.

Examples:
  billing run
  billing run --date 2026-03-01 --json`,
	RunE: runCycle,
}

func init() {
	runCmd.Flags().String("date", "", "reference date (YYYY-MM-DD) in the billing timezone")
	runCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(runCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var req service.CycleRequest
	if date, _ := cmd.Flags().GetString("date"); date != "" {
		ref, err := time.ParseInLocation("2006-01-02", date, a.loc)
		if err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
		}
		req.ReferenceDate = &ref
	}

	result, runErr := a.billing.RunCycle(ctx, req)
	if result != nil {
		asJSON, _ := cmd.Flags().GetBool("json")
		if err := printCycle(cmd.OutOrStdout(), result, asJSON); err != nil {
			return err
		}
	}
	return runErr
}

// printCycle writes a cycle result for an operator.
func printCycle(w io.Writer, result *service.CycleResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(handler.ToCycleResponse(result))
	}

	fmt.Fprintf(w, "Billing cycle %s (run %s)\n", result.Period, result.RunID)
	fmt.Fprintf(w, "Generated %d invoices, skipped %d customers\n", result.GeneratedCount, result.SkippedCount)
	for _, reason := range []service.SkipReason{
		service.SkipInactive,
		service.SkipNoUsers,
		service.SkipNoServices,
		service.SkipAlreadyBilled,
	} {
		if n := result.Skips[reason]; n > 0 {
			fmt.Fprintf(w, "  %-15s %d\n", reason, n)
		}
	}
	for _, inv := range result.Invoices {
		fmt.Fprintf(w, "  %s  %10s\n", inv.InvoiceNumber, billing.FormatAmount(inv.Total))
	}
	if result.Reconciled > 0 {
		fmt.Fprintf(w, "Removed %d incomplete invoices\n", result.Reconciled)
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "Errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return nil
}
