package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"factures/internal/core"
	"factures/internal/export"
	"factures/internal/feed"
	"factures/internal/store/memory"
)

func seedSession(t *testing.T) (*Session, *memory.Store) {
	t.Helper()

	st := memory.New()
	ctx := context.Background()
	now := time.Now()

	records := []core.RawLineRecord{
		{
			UserID:      "user-1",
			ImageRef:    "https://img/a.jpg",
			Date:        "2025-06-01",
			Vendor:      "Boulangerie Martin",
			Category:    "Alimentation",
			TotalIncTax: core.Money{Cents: 1200},
			TvaTotal:    core.Money{Cents: 200},
			CreatedAt:   now,
		},
		{
			UserID:          "user-1",
			ImageRef:        "https://img/a.jpg",
			ItemDescription: "Baguette",
			ItemQuantity:    2,
			ItemLineTotal:   core.Money{Cents: 240},
			CreatedAt:       now.Add(-time.Minute),
		},
		{
			UserID:      "user-1",
			ImageRef:    "https://img/b.jpg",
			Vendor:      "Garage Dupont",
			TotalIncTax: core.Money{Cents: 9900},
			CreatedAt:   now.Add(-2 * time.Minute),
		},
		{
			UserID:      "user-2",
			ImageRef:    "https://img/other.jpg",
			Vendor:      "Autre",
			TotalIncTax: core.Money{Cents: 555},
			CreatedAt:   now,
		},
	}
	for _, rec := range records {
		if _, err := st.InsertInvoiceLine(ctx, rec); err != nil {
			t.Fatalf("InsertInvoiceLine() error = %v", err)
		}
	}

	if _, err := st.InsertTvaLine(ctx, core.TvaRecord{
		UserID:      "user-1",
		Vendor:      "Boulangerie Martin",
		TotalIncTax: core.Money{Cents: 1200},
		Tva20:       core.Money{Cents: 200},
		CreatedAt:   now,
	}); err != nil {
		t.Fatalf("InsertTvaLine() error = %v", err)
	}

	return New("user-1", st, st, st), st
}

func TestSession_RefreshBuildsSnapshot(t *testing.T) {
	s, _ := seedSession(t)
	ctx := context.Background()

	if got := s.Aggregates(); len(got) != 0 {
		t.Fatalf("expected empty snapshot before refresh, got %d aggregates", len(got))
	}

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	aggregates := s.Aggregates()
	if len(aggregates) != 2 {
		t.Fatalf("expected 2 aggregates for user-1, got %d", len(aggregates))
	}
	for _, agg := range aggregates {
		if agg.ImageRef == "https://img/other.jpg" {
			t.Error("snapshot leaked another user's records")
		}
	}

	if records := s.TvaRecords(); len(records) != 1 {
		t.Errorf("expected 1 tva record, got %d", len(records))
	}
}

func TestSession_ReadsReturnCopies(t *testing.T) {
	s, _ := seedSession(t)
	ctx := context.Background()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	first := s.Aggregates()
	first[0].Vendor = "mutated"

	second := s.Aggregates()
	if second[0].Vendor == "mutated" {
		t.Error("Aggregates() must return a copy, snapshot was mutated through the result")
	}
}

func TestSession_DeleteInvoice(t *testing.T) {
	s, _ := seedSession(t)
	ctx := context.Background()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	s.StartProcessing("https://img/a.jpg")

	if err := s.DeleteInvoice(ctx, "https://img/a.jpg"); err != nil {
		t.Fatalf("DeleteInvoice() error = %v", err)
	}

	aggregates := s.Aggregates()
	if len(aggregates) != 1 {
		t.Fatalf("expected 1 aggregate after delete, got %d", len(aggregates))
	}
	if aggregates[0].ImageRef != "https://img/b.jpg" {
		t.Errorf("wrong aggregate survived: %q", aggregates[0].ImageRef)
	}
	if len(s.Processing()) != 0 {
		t.Error("delete must clear the upload notice for the image ref")
	}

	if err := s.DeleteInvoice(ctx, ""); err == nil {
		t.Error("expected error for empty image ref")
	}
}

func TestSession_UpdateInvoice(t *testing.T) {
	s, _ := seedSession(t)
	ctx := context.Background()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	vendor := "Boulangerie Centrale"
	total := core.Money{Cents: 1500}
	err := s.UpdateInvoice(ctx, "https://img/a.jpg", core.HeaderUpdate{
		Vendor:      &vendor,
		TotalIncTax: &total,
	})
	if err != nil {
		t.Fatalf("UpdateInvoice() error = %v", err)
	}

	var found bool
	for _, agg := range s.Aggregates() {
		if agg.ImageRef == "https://img/a.jpg" {
			found = true
			if agg.Vendor != vendor {
				t.Errorf("vendor = %q, want %q", agg.Vendor, vendor)
			}
			if agg.TotalIncTax != total {
				t.Errorf("total = %v, want %v", agg.TotalIncTax, total)
			}
		}
	}
	if !found {
		t.Fatal("updated aggregate missing from refreshed snapshot")
	}
}

func TestSession_StatsAndOverview(t *testing.T) {
	s, _ := seedSession(t)
	ctx := context.Background()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	now := time.Now()

	windows := s.Stats(now)
	if windows[core.ThisMonth].Count != 2 {
		t.Errorf("thisMonth count = %d, want 2", windows[core.ThisMonth].Count)
	}

	overview := s.Overview(now)
	if overview.TotalCount != 2 {
		t.Errorf("overview total count = %d, want 2", overview.TotalCount)
	}
	if got := overview.TotalIncTax.Format(); got != "111.00" {
		t.Errorf("overview total = %s, want 111.00", got)
	}

	categories := s.Categories()
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
	if categories[0].Category != "Autre" || categories[0].TotalIncTax.Cents != 9900 {
		t.Errorf("largest category first, got %+v", categories[0])
	}
}

func TestSession_Export(t *testing.T) {
	s, _ := seedSession(t)
	ctx := context.Background()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	art, err := s.Export(time.Now(), export.Request{
		Domain: export.DomainInvoices,
		Period: core.ThisMonth,
		Format: export.FormatTabular,
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if art.MIMEType != "text/csv;charset=utf-8" {
		t.Errorf("mime = %q", art.MIMEType)
	}
	if len(art.Bytes) == 0 {
		t.Error("empty artifact body")
	}

	if _, err := s.Export(time.Now(), export.Request{Domain: "bogus"}); err == nil {
		t.Error("expected error for unknown domain")
	}
}

func TestSession_RefreshAfterClose(t *testing.T) {
	s, _ := seedSession(t)
	ctx := context.Background()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	s.Close()

	if err := s.Refresh(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Refresh() after Close() = %v, want ErrClosed", err)
	}
	if got := s.Aggregates(); len(got) != 2 {
		t.Errorf("reads must keep serving the last snapshot, got %d aggregates", len(got))
	}
}

func TestSession_RefreshKeepsSnapshotOnError(t *testing.T) {
	s, st := seedSession(t)
	ctx := context.Background()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	failing := New("user-1", failingLister{}, st, st)
	failing.mu.Lock()
	failing.current = snapshot{aggregates: s.Aggregates()}
	failing.mu.Unlock()

	if err := failing.Refresh(ctx); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := failing.Aggregates(); len(got) != 2 {
		t.Errorf("prior snapshot must survive a failed refresh, got %d aggregates", len(got))
	}
}

type failingLister struct{}

func (failingLister) ListInvoiceLines(context.Context, string) ([]core.RawLineRecord, error) {
	return nil, errors.New("store unavailable")
}

// stubConsumer replays canned events through the handler.
type stubConsumer struct {
	events []*feed.RecordEvent
}

func (c *stubConsumer) ConsumeRecordEvents(_ context.Context, handler func(*feed.RecordEvent) error) error {
	for _, ev := range c.events {
		if err := handler(ev); err != nil {
			return err
		}
	}
	return nil
}

func TestSession_RunConsumesEvents(t *testing.T) {
	s, st := seedSession(t)
	ctx := context.Background()

	s.StartProcessing("https://img/c.jpg")

	if _, err := st.InsertInvoiceLine(ctx, core.RawLineRecord{
		UserID:      "user-1",
		ImageRef:    "https://img/c.jpg",
		Vendor:      "Papeterie",
		TotalIncTax: core.Money{Cents: 700},
		CreatedAt:   time.Now(),
	}); err != nil {
		t.Fatalf("InsertInvoiceLine() error = %v", err)
	}

	consumer := &stubConsumer{events: []*feed.RecordEvent{
		feed.NewRecordEvent(feed.DomainInvoices, feed.EventInsert, "user-1", "https://img/c.jpg", 10),
		feed.NewRecordEvent(feed.DomainTva, feed.EventUpdate, "user-1", "", 3),
	}}

	if err := s.Run(ctx, consumer); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(s.Processing()) != 0 {
		t.Error("insert event must clear the matching upload notice")
	}
	if got := len(s.Aggregates()); got != 3 {
		t.Errorf("snapshot not refreshed by events, got %d aggregates", got)
	}
}

func TestSession_OnRefreshHook(t *testing.T) {
	s, _ := seedSession(t)
	ctx := context.Background()

	var calls int
	s.OnRefresh(func() { calls++ })

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("refresh hook calls = %d, want 1", calls)
	}
}
