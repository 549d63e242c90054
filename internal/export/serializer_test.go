package export

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"factures/internal/core"
	"factures/internal/stats"
)

var now = time.Date(2025, 6, 4, 15, 0, 0, 0, time.Local)

func tvaFixture() []core.TvaRecord {
	return []core.TvaRecord{
		{ID: 1, Date: "2025-06-04", InvoiceNumber: "F-001", Vendor: "Acme",
			TotalIncTax: core.Money{Cents: 12000}, Tva20: core.Money{Cents: 2000}, CreatedAt: now},
		{ID: 2, Date: "2025-06-04", InvoiceNumber: "F-002", Vendor: "Bistro",
			TotalIncTax: core.Money{Cents: 6000}, Tva20: core.Money{Cents: 1000}, CreatedAt: now},
	}
}

func TestTvaTabularTotalsRow(t *testing.T) {
	records := tvaFixture()
	st := stats.TvaWindowStats(now, core.Today, records)

	art, err := Tva(now, Request{Domain: DomainTva, Period: core.Today, Format: FormatTabular}, records, st)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	lines := strings.Split(string(art.Bytes), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 2 rows + totals, got %d lines", len(lines))
	}
	if lines[0] != "Date,Numero_Facture,Vendeur,Montant_TTC,TVA_20,TVA_10,TVA_5_5" {
		t.Fatalf("header = %q", lines[0])
	}
	want := `TOTAL,,,"180.00","30.00","0.00","0.00"`
	if lines[3] != want {
		t.Fatalf("totals row = %q, want %q", lines[3], want)
	}
}

func TestTabularTotalsMatchStats(t *testing.T) {
	records := tvaFixture()
	for _, w := range core.AllWindows() {
		st := stats.TvaWindowStats(now, w, records)
		art, err := Tva(now, Request{Domain: DomainTva, Period: w, Format: FormatTabular}, records, st)
		if err != nil {
			t.Fatalf("serialize %s: %v", w, err)
		}
		lines := strings.Split(string(art.Bytes), "\n")
		totals := lines[len(lines)-1]
		if !strings.Contains(totals, `"`+st.Tva20.Format()+`"`) ||
			!strings.Contains(totals, `"`+st.TotalIncTax.Format()+`"`) {
			t.Fatalf("window %s: totals row %q does not match stats %+v", w, totals, st)
		}
	}
}

func TestInvoiceTabularRoundTrip(t *testing.T) {
	aggregates := []core.InvoiceAggregate{
		{
			Key: "img-1", Date: "2025-06-04", Vendor: "Maison, Dupont",
			Category: "Restaurant", PaymentMode: "CB", InvoiceNumber: `N"42`,
			TvaTotal: core.Money{Cents: 500}, TotalIncTax: core.Money{Cents: 2500},
			Items:     []core.Item{{Description: "Menu du jour", Quantity: 2, LineTotal: core.Money{Cents: 2500}}},
			CreatedAt: now,
		},
		{
			Key: "img-2", Date: "2025-06-03", Vendor: "Acme",
			TotalIncTax: core.Money{Cents: 1000}, CreatedAt: now.Add(-time.Hour),
		},
	}
	st := stats.WindowStats(now, core.ThisWeek, aggregates)

	art, err := Invoices(now, Request{Domain: DomainInvoices, Period: core.ThisWeek, Format: FormatTabular}, aggregates, st)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	r := csv.NewReader(strings.NewReader(string(art.Bytes)))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse csv back: %v", err)
	}
	if len(rows) != 3 { // header + 2 data rows, no totals for invoices
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	first := rows[1]
	if first[1] != "Maison, Dupont" || first[6] != `N"42` {
		t.Fatalf("escaping lost field values: %v", first)
	}
	if first[3] != "25.00" || first[2] != "5.00" {
		t.Fatalf("money columns = %v", first)
	}
	if first[7] != "Menu du jour" || first[8] != "2" || first[9] != "25.00" {
		t.Fatalf("item columns = %v", first)
	}
	second := rows[2]
	if second[7] != "" || second[8] != "" || second[9] != "" {
		t.Fatalf("aggregate without items must leave item columns empty: %v", second)
	}
}

func TestPeriodFiltering(t *testing.T) {
	aggregates := []core.InvoiceAggregate{
		{Key: "a", TotalIncTax: core.Money{Cents: 100}, CreatedAt: now},
		{Key: "b", TotalIncTax: core.Money{Cents: 200}, CreatedAt: now.AddDate(0, 0, -10)},
	}
	st := stats.WindowStats(now, core.Today, aggregates)
	art, err := Invoices(now, Request{Domain: DomainInvoices, Period: core.Today, Format: FormatTabular}, aggregates, st)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	lines := strings.Split(string(art.Bytes), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 filtered row, got %d lines", len(lines))
	}
}

func TestArchiveEmptySelection(t *testing.T) {
	st := stats.WindowStats(now, core.Today, nil)
	art, err := Invoices(now, Request{Domain: DomainInvoices, Period: core.Today, Format: FormatArchive}, nil, st)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	want := "Factures exportées: 0 factures pour un total de 0.00€"
	if string(art.Bytes) != want {
		t.Fatalf("archive = %q, want %q", art.Bytes, want)
	}
	if art.MIMEType != "text/plain" {
		t.Fatalf("mime = %q", art.MIMEType)
	}
}

func TestTvaArchiveWording(t *testing.T) {
	records := tvaFixture()
	st := stats.TvaWindowStats(now, core.Today, records)
	art, err := Tva(now, Request{Domain: DomainTva, Period: core.Today, Format: FormatArchive}, records, st)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	want := "TVA exportée: 2 enregistrements pour un total TTC de 180.00€"
	if string(art.Bytes) != want {
		t.Fatalf("archive = %q", art.Bytes)
	}
}

func TestReportContainsTotalsAndRows(t *testing.T) {
	records := tvaFixture()
	st := stats.TvaWindowStats(now, core.Today, records)
	art, err := Tva(now, Request{Domain: DomainTva, Period: core.Today, Format: FormatReport}, records, st)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	body := string(art.Bytes)
	// html/template escapes the apostrophe in the period label.
	for _, want := range []string{"Rapport TVA", "Aujourd&#39;hui", "Acme", "Bistro", `class="totals"`, "30.00€", "180.00€"} {
		if !strings.Contains(body, want) {
			t.Fatalf("report missing %q", want)
		}
	}
	if art.MIMEType != "text/html" {
		t.Fatalf("mime = %q", art.MIMEType)
	}
}

func TestFilenameConvention(t *testing.T) {
	st := stats.WindowStats(now, core.ThisMonth, nil)
	art, err := Invoices(now, Request{Domain: DomainInvoices, Period: core.ThisMonth, Format: FormatTabular}, nil, st)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if art.Filename != "factures_thisMonth_2025-06-04.csv" {
		t.Fatalf("filename = %q", art.Filename)
	}
	if art.MIMEType != "text/csv;charset=utf-8" {
		t.Fatalf("mime = %q", art.MIMEType)
	}
}

func TestParseDomainFormat(t *testing.T) {
	if _, err := ParseDomain("invoices"); err != nil {
		t.Fatalf("invoices: %v", err)
	}
	if _, err := ParseDomain("stocks"); err == nil {
		t.Fatalf("expected error for unknown domain")
	}
	if _, err := ParseFormat("report"); err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
