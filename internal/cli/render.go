package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <invoice-id>",
	Short: "Write an invoice PDF",
	Long: `Render the PDF document of one invoice.

The file is named after the invoice number unless --output is given.
Use --output - to write to stdout.

Examples:
  billing render 550e8400-e29b-41d4-a716-446655440000
  billing render 550e8400-e29b-41d4-a716-446655440000 -o march.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringP("output", "o", "", "output file name")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid invoice id %q: %w", args[0], err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Log.Level)

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var buf bytes.Buffer
	inv, err := a.billing.RenderDocument(cmd.Context(), id, &buf)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "-" {
		_, err := buf.WriteTo(cmd.OutOrStdout())
		return err
	}
	if output == "" {
		output = inv.InvoiceNumber + ".pdf"
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	logger.Info("invoice rendered",
		slog.String("invoice_number", inv.InvoiceNumber),
		slog.String("file", output),
		slog.Int("bytes", buf.Len()),
	)
	return nil
}
