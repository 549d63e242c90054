// Package export renders a period-filtered slice of aggregates or tax
// records into a downloadable artifact. Three formats exist: tabular
// (CSV), report (HTML) and archive (a one-line plain-text manifest).
// Every format must reproduce the same totals as the stats package for
// the same period and domain; totals rows are taken from the stats
// value passed in, never recomputed from floats.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"factures/internal/core"
	"factures/internal/stats"
)

type (
	// Domain selects which record family an export covers.
	Domain string

	// Format selects the artifact rendering.
	Format string

	// Request describes one export.
	Request struct {
		Domain Domain      `json:"domain"`
		Period core.Window `json:"period"`
		Format Format      `json:"format"`
	}

	// Artifact is the produced byte payload plus download metadata.
	// Producing bytes is the engine's entire file responsibility; the
	// consumer decides how to present them.
	Artifact struct {
		MIMEType string
		Filename string
		Bytes    []byte
	}

	// Tabular is the unescaped row form of a tabular export, shared by
	// the CSV encoder and the spreadsheet mirror.
	Tabular struct {
		Header []string
		Rows   [][]string
		// Totals, when non-nil, is appended as a trailing totals row.
		// Its numeric cells are always quoted in CSV output.
		Totals []string
	}
)

const (
	DomainInvoices Domain = "invoices"
	DomainTva      Domain = "tva"

	FormatTabular Format = "tabular"
	FormatReport  Format = "report"
	FormatArchive Format = "archive"
)

// ParseDomain maps a request string onto a Domain.
func ParseDomain(s string) (Domain, error) {
	switch Domain(s) {
	case DomainInvoices, DomainTva:
		return Domain(s), nil
	}
	return "", fmt.Errorf("unknown export domain %q", s)
}

// ParseFormat maps a request string onto a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTabular, FormatReport, FormatArchive:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

var invoiceHeader = []string{
	"Date", "Vendeur", "TVA_Total", "Montant_TTC", "Mode_Paiement",
	"Categorie", "Numero_Facture", "Articles_description",
	"Articles_quantite", "Articles_total",
}

var tvaHeader = []string{
	"Date", "Numero_Facture", "Vendeur", "Montant_TTC",
	"TVA_20", "TVA_10", "TVA_5_5",
}

// Invoices serializes the invoice-domain export. Aggregates outside the
// requested period are dropped; st must be the stats for the same
// period. An empty selection still yields a well-formed artifact.
func Invoices(now time.Time, req Request, aggregates []core.InvoiceAggregate, st stats.InvoiceStats) (Artifact, error) {
	var included []core.InvoiceAggregate
	for _, a := range aggregates {
		if req.Period.Contains(now, a.CreatedAt) {
			included = append(included, a)
		}
	}

	switch req.Format {
	case FormatTabular:
		return artifact("factures", req.Period, now, FormatTabular,
			encodeCSV(InvoiceTabular(included))), nil
	case FormatReport:
		body, err := invoiceReport(req.Period, included, st)
		if err != nil {
			return Artifact{}, err
		}
		return artifact("factures", req.Period, now, FormatReport, body), nil
	case FormatArchive:
		line := fmt.Sprintf("Factures exportées: %d factures pour un total de %s€",
			len(included), st.TotalIncTax.Format())
		return artifact("factures", req.Period, now, FormatArchive, []byte(line)), nil
	}
	return Artifact{}, fmt.Errorf("unknown export format %q", req.Format)
}

// Tva serializes the tax-domain export. The trailing totals row of the
// tabular and report formats mirrors st.
func Tva(now time.Time, req Request, records []core.TvaRecord, st stats.TvaStats) (Artifact, error) {
	var included []core.TvaRecord
	for _, r := range records {
		if req.Period.Contains(now, r.CreatedAt) {
			included = append(included, r)
		}
	}

	switch req.Format {
	case FormatTabular:
		return artifact("tva", req.Period, now, FormatTabular,
			encodeCSV(TvaTabular(included, st))), nil
	case FormatReport:
		body, err := tvaReport(req.Period, included, st)
		if err != nil {
			return Artifact{}, err
		}
		return artifact("tva", req.Period, now, FormatReport, body), nil
	case FormatArchive:
		line := fmt.Sprintf("TVA exportée: %d enregistrements pour un total TTC de %s€",
			len(included), st.TotalIncTax.Format())
		return artifact("tva", req.Period, now, FormatArchive, []byte(line)), nil
	}
	return Artifact{}, fmt.Errorf("unknown export format %q", req.Format)
}

// InvoiceTabular builds the row form of an invoice export. One row per
// aggregate; the article columns carry the aggregate's first item and
// stay empty when it has none.
func InvoiceTabular(aggregates []core.InvoiceAggregate) Tabular {
	tab := Tabular{Header: invoiceHeader}
	for _, a := range aggregates {
		desc, qty, total := "", "", ""
		if len(a.Items) > 0 {
			desc = a.Items[0].Description
			qty = formatQuantity(a.Items[0].Quantity)
			total = a.Items[0].LineTotal.Format()
		}
		tab.Rows = append(tab.Rows, []string{
			a.Date, a.Vendor, a.TvaTotal.Format(), a.TotalIncTax.Format(),
			a.PaymentMode, a.Category, a.InvoiceNumber, desc, qty, total,
		})
	}
	return tab
}

// TvaTabular builds the row form of a tax export, totals row included.
func TvaTabular(records []core.TvaRecord, st stats.TvaStats) Tabular {
	tab := Tabular{Header: tvaHeader}
	for _, r := range records {
		tab.Rows = append(tab.Rows, []string{
			r.Date, r.InvoiceNumber, r.Vendor, r.TotalIncTax.Format(),
			r.Tva20.Format(), r.Tva10.Format(), r.Tva55.Format(),
		})
	}
	tab.Totals = []string{
		"TOTAL", "", "",
		st.TotalIncTax.Format(), st.Tva20.Format(), st.Tva10.Format(), st.Tva55.Format(),
	}
	return tab
}

// encodeCSV renders a Tabular as delimited text. Ordinary fields are
// quoted only when they contain a comma, quote or newline; numeric
// cells of the totals row are always quoted.
func encodeCSV(tab Tabular) []byte {
	lines := make([]string, 0, len(tab.Rows)+2)
	lines = append(lines, joinCSV(tab.Header))
	for _, row := range tab.Rows {
		lines = append(lines, joinCSV(row))
	}
	if tab.Totals != nil {
		cells := make([]string, len(tab.Totals))
		for i, c := range tab.Totals {
			switch {
			case i == 0 || c == "":
				cells[i] = c
			default:
				cells[i] = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
			}
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return []byte(strings.Join(lines, "\n"))
}

func joinCSV(row []string) string {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = escapeCSV(c)
	}
	return strings.Join(cells, ",")
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func artifact(prefix string, period core.Window, now time.Time, format Format, body []byte) Artifact {
	var ext, mime string
	switch format {
	case FormatReport:
		ext, mime = "html", "text/html"
	case FormatArchive:
		ext, mime = "txt", "text/plain"
	default:
		ext, mime = "csv", "text/csv;charset=utf-8"
	}
	return Artifact{
		MIMEType: mime,
		Filename: fmt.Sprintf("%s_%s_%s.%s", prefix, period, now.Format("2006-01-02"), ext),
		Bytes:    body,
	}
}
