package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"factures/internal/aggregate"
	"factures/internal/config"
	"factures/internal/core"
	"factures/internal/export"
	applog "factures/internal/log"
	"factures/internal/mirror/google"
	"factures/internal/stats"
	"factures/internal/store/sqlite"
)

var version = "1.0.0"

var (
	flagUser   string
	flagDomain string
	flagPeriod string
	flagFormat string
	flagOut    string
	flagDB     string
	flagMirror bool
)

var rootCmd = &cobra.Command{
	Use:   "factures-export",
	Short: "One-shot invoice and TVA exports from the local store",
	Long: `factures-export renders the reconciled invoice or TVA records of one
user into a downloadable artifact (CSV, HTML report, or archive line)
without running the server.

The data is read directly from the SQLite store; the optional mirror
flag appends tabular exports to the configured Google Sheets
spreadsheet.`,
	Version: version,
	RunE:    runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentExport)
	applog.SetDefault(logger)

	cfg := config.Load()
	if flagDB != "" {
		cfg.SQLiteDBPath = flagDB
	}
	if flagUser != "" {
		cfg.UserID = flagUser
	}

	domain, err := export.ParseDomain(flagDomain)
	if err != nil {
		return err
	}
	period, err := core.ParseWindow(flagPeriod)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	req := export.Request{Domain: domain, Period: period, Format: format}

	repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer repo.Close()

	ctx := cmd.Context()
	now := time.Now()

	var (
		art     export.Artifact
		tabular export.Tabular
	)
	switch domain {
	case export.DomainInvoices:
		lines, err := repo.ListInvoiceLines(ctx, cfg.UserID)
		if err != nil {
			return fmt.Errorf("list invoice lines: %w", err)
		}
		aggregates := filterAggregates(now, period, aggregate.GroupRecords(lines))
		st := stats.WindowStats(now, period, aggregates)
		art, err = export.Invoices(now, req, aggregates, st)
		if err != nil {
			return err
		}
		tabular = export.InvoiceTabular(aggregates)
	case export.DomainTva:
		records, err := repo.ListTvaLines(ctx, cfg.UserID)
		if err != nil {
			return fmt.Errorf("list tva lines: %w", err)
		}
		records = filterTva(now, period, records)
		st := stats.TvaWindowStats(now, period, records)
		art, err = export.Tva(now, req, records, st)
		if err != nil {
			return err
		}
		tabular = export.TvaTabular(records, st)
	}

	out := flagOut
	if out == "" {
		out = art.Filename
	}
	if dir := filepath.Dir(out); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, art.Bytes, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	logger.Info("Export written", "path", out, "bytes", len(art.Bytes),
		"domain", flagDomain, "period", flagPeriod, "format", flagFormat)

	if flagMirror {
		if format != export.FormatTabular {
			logger.Warn("Mirror skipped - only tabular exports can be mirrored", "format", flagFormat)
			return nil
		}
		if !cfg.MirrorEnabled() {
			logger.Warn("Mirror skipped - no GOOGLE_SPREADSHEET_ID configured")
			return nil
		}
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			logger.Error("Mirror client init failed", "error", err)
			return nil
		}
		if err := client.Append(ctx, tabular); err != nil {
			logger.Error("Mirror append failed", "error", err)
		}
	}

	return nil
}

// filterAggregates keeps the aggregates inside the period window so the
// mirror sees the same rows as the written artifact.
func filterAggregates(now time.Time, period core.Window, aggregates []core.InvoiceAggregate) []core.InvoiceAggregate {
	out := make([]core.InvoiceAggregate, 0, len(aggregates))
	for _, agg := range aggregates {
		if period.Contains(now, agg.CreatedAt) {
			out = append(out, agg)
		}
	}
	return out
}

func filterTva(now time.Time, period core.Window, records []core.TvaRecord) []core.TvaRecord {
	out := make([]core.TvaRecord, 0, len(records))
	for _, rec := range records {
		if period.Contains(now, rec.CreatedAt) {
			out = append(out, rec)
		}
	}
	return out
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&flagUser, "user", "", "user whose records are exported (default from FACTURES_USER_ID)")
	rootCmd.Flags().StringVar(&flagDomain, "domain", "invoices", "export domain: invoices or tva")
	rootCmd.Flags().StringVar(&flagPeriod, "period", "thisMonth", "period window: today, thisWeek, or thisMonth")
	rootCmd.Flags().StringVar(&flagFormat, "format", "tabular", "artifact format: tabular, report, or archive")
	rootCmd.Flags().StringVar(&flagOut, "out", "", "output path (default: generated filename in the working directory)")
	rootCmd.Flags().StringVar(&flagDB, "db", "", "SQLite database path (default from SQLITE_DB_PATH)")
	rootCmd.Flags().BoolVar(&flagMirror, "mirror", false, "append tabular export to the configured Google Sheets spreadsheet")
}
