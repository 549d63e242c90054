package export

import (
	"bytes"
	"html/template"

	"factures/internal/core"
	"factures/internal/stats"
)

const reportStyle = `table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
.totals { font-weight: bold; background-color: #f9f9f9; }`

var invoiceReportTmpl = template.Must(template.New("invoice-report").Parse(`<html>
<head>
<title>Rapport Factures</title>
<style>
` + reportStyle + `
</style>
</head>
<body>
<h1>Rapport des Factures</h1>
<p>Période: {{.PeriodLabel}}</p>
<p>Total: {{.Total}}€</p>
<table>
<tr><th>Date</th><th>Vendeur</th><th>TVA Total</th><th>Montant TTC</th><th>Mode Paiement</th><th>Catégorie</th><th>N° Facture</th><th>Articles</th><th>Quantité</th><th>Total Articles</th></tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
</body>
</html>`))

var tvaReportTmpl = template.Must(template.New("tva-report").Parse(`<html>
<head>
<title>Rapport TVA</title>
<style>
` + reportStyle + `
</style>
</head>
<body>
<h1>Rapport TVA</h1>
<p>Période: {{.PeriodLabel}}</p>
<p>Total TTC: {{.Total}}€</p>
<table>
<tr><th>Date</th><th>N° Facture</th><th>Vendeur</th><th>Montant TTC</th><th>TVA 20%</th><th>TVA 10%</th><th>TVA 5.5%</th></tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}<tr class="totals"><td colspan="3"><strong>TOTAL</strong></td><td><strong>{{.TotalTTC}}€</strong></td><td><strong>{{.Total20}}€</strong></td><td><strong>{{.Total10}}€</strong></td><td><strong>{{.Total55}}€</strong></td></tr>
</table>
</body>
</html>`))

func invoiceReport(period core.Window, aggregates []core.InvoiceAggregate, st stats.InvoiceStats) ([]byte, error) {
	data := struct {
		PeriodLabel string
		Total       string
		Rows        [][]string
	}{
		PeriodLabel: period.Label(),
		Total:       st.TotalIncTax.Format(),
		Rows:        InvoiceTabular(aggregates).Rows,
	}
	var buf bytes.Buffer
	if err := invoiceReportTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func tvaReport(period core.Window, records []core.TvaRecord, st stats.TvaStats) ([]byte, error) {
	data := struct {
		PeriodLabel string
		Total       string
		Rows        [][]string
		TotalTTC    string
		Total20     string
		Total10     string
		Total55     string
	}{
		PeriodLabel: period.Label(),
		Total:       st.TotalIncTax.Format(),
		Rows:        TvaTabular(records, st).Rows,
		TotalTTC:    st.TotalIncTax.Format(),
		Total20:     st.Tva20.Format(),
		Total10:     st.Tva10.Format(),
		Total55:     st.Tva55.Format(),
	}
	var buf bytes.Buffer
	if err := tvaReportTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
