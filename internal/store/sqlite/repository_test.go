package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"factures/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "factures.db"))
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

func TestRepository_InsertAndListInvoiceLines(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)

	records := []core.RawLineRecord{
		{
			UserID:      "user-1",
			ImageRef:    "https://img/a.jpg",
			Date:        "2025-06-01",
			Vendor:      "Boulangerie Martin",
			Category:    "Alimentation",
			TotalIncTax: core.Money{Cents: 1200},
			TvaTotal:    core.Money{Cents: 200},
			CreatedAt:   base,
		},
		{
			UserID:          "user-1",
			ImageRef:        "https://img/a.jpg",
			ItemDescription: "Baguette",
			ItemQuantity:    2,
			ItemLineTotal:   core.Money{Cents: 240},
			CreatedAt:       base.Add(time.Minute),
		},
		{
			UserID:      "user-2",
			ImageRef:    "https://img/other.jpg",
			Vendor:      "Autre",
			TotalIncTax: core.Money{Cents: 500},
			CreatedAt:   base,
		},
	}
	for _, rec := range records {
		if _, err := repo.InsertInvoiceLine(ctx, rec); err != nil {
			t.Fatalf("InsertInvoiceLine() error = %v", err)
		}
	}

	got, err := repo.ListInvoiceLines(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListInvoiceLines() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records for user-1, want 2", len(got))
	}

	// Newest first
	if got[0].ItemDescription != "Baguette" {
		t.Errorf("first record = %+v, want the newer item row", got[0])
	}
	if got[1].Vendor != "Boulangerie Martin" {
		t.Errorf("second record vendor = %q", got[1].Vendor)
	}
	if got[1].TotalIncTax.Cents != 1200 {
		t.Errorf("total cents = %d, want 1200", got[1].TotalIncTax.Cents)
	}
	if !got[1].CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", got[1].CreatedAt, base)
	}
}

func TestRepository_InsertAndListTvaLines(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.InsertTvaLine(ctx, core.TvaRecord{
		UserID:        "user-1",
		Date:          "2025-06-01",
		InvoiceNumber: "F-0042",
		Vendor:        "Garage Dupont",
		TotalIncTax:   core.Money{Cents: 18000},
		Tva20:         core.Money{Cents: 3000},
		CreatedAt:     time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("InsertTvaLine() error = %v", err)
	}

	got, err := repo.ListTvaLines(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListTvaLines() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].InvoiceNumber != "F-0042" || got[0].Tva20.Cents != 3000 {
		t.Errorf("record = %+v", got[0])
	}

	other, err := repo.ListTvaLines(ctx, "user-2")
	if err != nil {
		t.Fatalf("ListTvaLines() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("user-2 must see no records, got %d", len(other))
	}
}

func TestRepository_DeleteByImageRef(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, rec := range []core.RawLineRecord{
		{UserID: "user-1", ImageRef: "https://img/a.jpg", Vendor: "A", CreatedAt: now},
		{UserID: "user-1", ImageRef: "https://img/a.jpg", ItemDescription: "Ligne", CreatedAt: now},
		{UserID: "user-1", ImageRef: "https://img/b.jpg", Vendor: "B", CreatedAt: now},
		{UserID: "user-2", ImageRef: "https://img/a.jpg", Vendor: "C", CreatedAt: now},
	} {
		if _, err := repo.InsertInvoiceLine(ctx, rec); err != nil {
			t.Fatalf("InsertInvoiceLine() error = %v", err)
		}
	}

	if err := repo.DeleteByImageRef(ctx, "user-1", "https://img/a.jpg"); err != nil {
		t.Fatalf("DeleteByImageRef() error = %v", err)
	}

	got, err := repo.ListInvoiceLines(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListInvoiceLines() error = %v", err)
	}
	if len(got) != 1 || got[0].ImageRef != "https://img/b.jpg" {
		t.Errorf("remaining records = %+v, want only image b", got)
	}

	// Other users' rows with the same ref are untouched
	other, err := repo.ListInvoiceLines(ctx, "user-2")
	if err != nil {
		t.Fatalf("ListInvoiceLines() error = %v", err)
	}
	if len(other) != 1 {
		t.Errorf("user-2 records = %d, want 1", len(other))
	}
}

func TestRepository_UpdateHeaderFields(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, rec := range []core.RawLineRecord{
		{UserID: "user-1", ImageRef: "https://img/a.jpg", Vendor: "Old", Category: "Autre", TotalIncTax: core.Money{Cents: 1000}, CreatedAt: now},
		{UserID: "user-1", ImageRef: "https://img/a.jpg", ItemDescription: "Ligne", CreatedAt: now},
	} {
		if _, err := repo.InsertInvoiceLine(ctx, rec); err != nil {
			t.Fatalf("InsertInvoiceLine() error = %v", err)
		}
	}

	vendor := "New"
	total := core.Money{Cents: 2500}
	err := repo.UpdateHeaderFields(ctx, "user-1", "https://img/a.jpg", core.HeaderUpdate{
		Vendor:      &vendor,
		TotalIncTax: &total,
	})
	if err != nil {
		t.Fatalf("UpdateHeaderFields() error = %v", err)
	}

	got, err := repo.ListInvoiceLines(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListInvoiceLines() error = %v", err)
	}
	for _, rec := range got {
		if rec.Vendor != "New" {
			t.Errorf("vendor = %q, want New", rec.Vendor)
		}
		if rec.TotalIncTax.Cents != 2500 {
			t.Errorf("total cents = %d, want 2500", rec.TotalIncTax.Cents)
		}
		if rec.ImageRef == "https://img/a.jpg" && rec.ItemDescription == "Ligne" && rec.Category != "" {
			t.Errorf("untouched field changed: %+v", rec)
		}
	}

	// Zero update is a no-op, not an error
	if err := repo.UpdateHeaderFields(ctx, "user-1", "https://img/a.jpg", core.HeaderUpdate{}); err != nil {
		t.Errorf("zero update error = %v", err)
	}
}
