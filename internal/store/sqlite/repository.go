// Package sqlite is the durable record store. Rows land here from the
// extraction pipeline and are read back in bulk, newest first. Money is
// stored as integer cents, timestamps as RFC 3339 text.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"factures/internal/core"
	"factures/internal/store"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

var (
	_ store.InvoiceLister  = (*Repository)(nil)
	_ store.TvaLister      = (*Repository)(nil)
	_ store.InvoiceMutator = (*Repository)(nil)
	_ store.RecordWriter   = (*Repository)(nil)
)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const invoiceColumns = `id, user_id, image_ref, date, vendor, tva_total_cents,
	total_inc_tax_cents, payment_mode, category, invoice_number,
	item_description, item_quantity, item_line_total_cents, created_at`

// ListInvoiceLines implements store.InvoiceLister.
func (r *Repository) ListInvoiceLines(ctx context.Context, userID string) ([]core.RawLineRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoice_lines
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()

	var out []core.RawLineRecord
	for rows.Next() {
		var rec core.RawLineRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ImageRef, &rec.Date,
			&rec.Vendor, &rec.TvaTotal.Cents, &rec.TotalIncTax.Cents,
			&rec.PaymentMode, &rec.Category, &rec.InvoiceNumber,
			&rec.ItemDescription, &rec.ItemQuantity, &rec.ItemLineTotal.Cents,
			&createdAt); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		rec.CreatedAt = parseTimestamp(ctx, createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice lines: %w", err)
	}
	return out, nil
}

// ListTvaLines implements store.TvaLister.
func (r *Repository) ListTvaLines(ctx context.Context, userID string) ([]core.TvaRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, date, invoice_number, vendor, total_inc_tax_cents,
		        tva_20_cents, tva_10_cents, tva_5_5_cents, created_at
		 FROM tva_lines WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tva lines: %w", err)
	}
	defer rows.Close()

	var out []core.TvaRecord
	for rows.Next() {
		var rec core.TvaRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.InvoiceNumber,
			&rec.Vendor, &rec.TotalIncTax.Cents, &rec.Tva20.Cents,
			&rec.Tva10.Cents, &rec.Tva55.Cents, &createdAt); err != nil {
			return nil, fmt.Errorf("scan tva line: %w", err)
		}
		rec.CreatedAt = parseTimestamp(ctx, createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tva lines: %w", err)
	}
	return out, nil
}

// DeleteByImageRef removes every raw line of one logical invoice.
func (r *Repository) DeleteByImageRef(ctx context.Context, userID, imageRef string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invoice_lines WHERE user_id = ? AND image_ref = ?`,
		userID, imageRef)
	if err != nil {
		return fmt.Errorf("delete invoice lines: %w", err)
	}
	affected, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Invoice lines deleted",
		"user_id", userID, "image_ref", imageRef, "rows", affected)
	return nil
}

// UpdateHeaderFields patches the header columns of every raw line
// sharing the image ref. The aggregate view is rebuilt from a fresh
// fetch afterwards, so all lines must agree.
func (r *Repository) UpdateHeaderFields(ctx context.Context, userID, imageRef string, update core.HeaderUpdate) error {
	if update.IsZero() {
		return nil
	}

	var sets []string
	var args []any
	if update.Vendor != nil {
		sets = append(sets, "vendor = ?")
		args = append(args, *update.Vendor)
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *update.Category)
	}
	if update.PaymentMode != nil {
		sets = append(sets, "payment_mode = ?")
		args = append(args, *update.PaymentMode)
	}
	if update.TotalIncTax != nil {
		sets = append(sets, "total_inc_tax_cents = ?")
		args = append(args, update.TotalIncTax.Cents)
	}
	if update.TvaTotal != nil {
		sets = append(sets, "tva_total_cents = ?")
		args = append(args, update.TvaTotal.Cents)
	}
	args = append(args, userID, imageRef)

	_, err := r.db.ExecContext(ctx,
		`UPDATE invoice_lines SET `+strings.Join(sets, ", ")+
			` WHERE user_id = ? AND image_ref = ?`, args...)
	if err != nil {
		return fmt.Errorf("update header fields: %w", err)
	}
	slog.InfoContext(ctx, "Invoice header updated",
		"user_id", userID, "image_ref", imageRef)
	return nil
}

// InsertInvoiceLine implements store.RecordWriter.
func (r *Repository) InsertInvoiceLine(ctx context.Context, rec core.RawLineRecord) (int64, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO invoice_lines (user_id, image_ref, date, vendor,
		     tva_total_cents, total_inc_tax_cents, payment_mode, category,
		     invoice_number, item_description, item_quantity,
		     item_line_total_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.ImageRef, rec.Date, rec.Vendor,
		rec.TvaTotal.Cents, rec.TotalIncTax.Cents, rec.PaymentMode,
		rec.Category, rec.InvoiceNumber, rec.ItemDescription,
		rec.ItemQuantity, rec.ItemLineTotal.Cents,
		createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert invoice line: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("invoice line id: %w", err)
	}
	return id, nil
}

// InsertTvaLine implements store.RecordWriter.
func (r *Repository) InsertTvaLine(ctx context.Context, rec core.TvaRecord) (int64, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tva_lines (user_id, date, invoice_number, vendor,
		     total_inc_tax_cents, tva_20_cents, tva_10_cents, tva_5_5_cents,
		     created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.Date, rec.InvoiceNumber, rec.Vendor,
		rec.TotalIncTax.Cents, rec.Tva20.Cents, rec.Tva10.Cents,
		rec.Tva55.Cents, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert tva line: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("tva line id: %w", err)
	}
	return id, nil
}

// parseTimestamp tolerates rows written by other tools with a plain
// datetime format. An unreadable timestamp degrades to the zero time,
// which places the record outside every window instead of failing the
// whole fetch.
func parseTimestamp(ctx context.Context, s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	slog.WarnContext(ctx, "Unparseable created_at, using zero time", "value", s)
	return time.Time{}
}
