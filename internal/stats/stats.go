// Package stats computes period-scoped rollups over aggregated invoices
// and tax records. All functions are pure over their inputs; the three
// window boundaries are derived independently from the single now value
// passed in.
package stats

import (
	"sort"
	"time"

	"factures/internal/core"
)

// InvoiceStats is the rollup for one period window of the invoice domain.
type InvoiceStats struct {
	Count       int        `json:"count"`
	TotalIncTax core.Money `json:"total_inc_tax"`
	Vendors     []string   `json:"vendors"`
}

// TvaStats is the rollup for one period window of the tax domain.
type TvaStats struct {
	Count       int        `json:"count"`
	TotalIncTax core.Money `json:"total_inc_tax"`
	Tva20       core.Money `json:"tva_20"`
	Tva10       core.Money `json:"tva_10"`
	Tva55       core.Money `json:"tva_5_5"`
	Vendors     []string   `json:"vendors"`
}

// CategoryAmount is one slice of the per-category breakdown.
type CategoryAmount struct {
	Category    string     `json:"category"`
	Count       int        `json:"count"`
	TotalIncTax core.Money `json:"total_inc_tax"`
}

// Overview is the whole-history dashboard rollup.
type Overview struct {
	TotalCount    int        `json:"total_count"`
	TotalIncTax   core.Money `json:"total_inc_tax"`
	MonthCount    int        `json:"month_count"`
	AverageIncTax core.Money `json:"average_inc_tax"`
}

// Windows computes the invoice rollup for each period window.
func Windows(now time.Time, aggregates []core.InvoiceAggregate) map[core.Window]InvoiceStats {
	out := make(map[core.Window]InvoiceStats, 3)
	for _, w := range core.AllWindows() {
		out[w] = WindowStats(now, w, aggregates)
	}
	return out
}

// WindowStats computes the invoice rollup for a single window.
func WindowStats(now time.Time, w core.Window, aggregates []core.InvoiceAggregate) InvoiceStats {
	st := InvoiceStats{Vendors: []string{}}
	seen := make(map[string]bool)
	for _, a := range aggregates {
		if !w.Contains(now, a.CreatedAt) {
			continue
		}
		st.Count++
		st.TotalIncTax = st.TotalIncTax.Add(a.TotalIncTax)
		if a.Vendor != "" && !seen[a.Vendor] {
			seen[a.Vendor] = true
			st.Vendors = append(st.Vendors, a.Vendor)
		}
	}
	return st
}

// TvaWindows computes the tax rollup for each period window.
func TvaWindows(now time.Time, records []core.TvaRecord) map[core.Window]TvaStats {
	out := make(map[core.Window]TvaStats, 3)
	for _, w := range core.AllWindows() {
		out[w] = TvaWindowStats(now, w, records)
	}
	return out
}

// TvaWindowStats computes the tax rollup for a single window.
func TvaWindowStats(now time.Time, w core.Window, records []core.TvaRecord) TvaStats {
	st := TvaStats{Vendors: []string{}}
	seen := make(map[string]bool)
	for _, r := range records {
		if !w.Contains(now, r.CreatedAt) {
			continue
		}
		st.Count++
		st.TotalIncTax = st.TotalIncTax.Add(r.TotalIncTax)
		st.Tva20 = st.Tva20.Add(r.Tva20)
		st.Tva10 = st.Tva10.Add(r.Tva10)
		st.Tva55 = st.Tva55.Add(r.Tva55)
		if r.Vendor != "" && !seen[r.Vendor] {
			seen[r.Vendor] = true
			st.Vendors = append(st.Vendors, r.Vendor)
		}
	}
	return st
}

// ComputeOverview derives the dashboard headline numbers from the full
// aggregate set.
func ComputeOverview(now time.Time, aggregates []core.InvoiceAggregate) Overview {
	ov := Overview{}
	for _, a := range aggregates {
		ov.TotalCount++
		ov.TotalIncTax = ov.TotalIncTax.Add(a.TotalIncTax)
		if core.ThisMonth.Contains(now, a.CreatedAt) {
			ov.MonthCount++
		}
	}
	if ov.TotalCount > 0 {
		ov.AverageIncTax = core.Money{Cents: ov.TotalIncTax.Cents / int64(ov.TotalCount)}
	}
	return ov
}

// ByCategory breaks the aggregate set down per category, largest amount
// first. Aggregates without a category land in "Autre".
func ByCategory(aggregates []core.InvoiceAggregate) []CategoryAmount {
	index := make(map[string]int)
	var out []CategoryAmount
	for _, a := range aggregates {
		cat := a.Category
		if cat == "" {
			cat = "Autre"
		}
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, CategoryAmount{Category: cat})
		}
		out[i].Count++
		out[i].TotalIncTax = out[i].TotalIncTax.Add(a.TotalIncTax)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalIncTax.Cents > out[j].TotalIncTax.Cents
	})
	return out
}
