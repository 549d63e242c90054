package aggregate

import "factures/internal/core"

// TvaRecords is the tax-domain counterpart of GroupRecords. Tax rows
// need no grouping, so this is a defensive copy keeping the tax domain
// symmetric with invoices for period and export processing.
func TvaRecords(records []core.TvaRecord) []core.TvaRecord {
	out := make([]core.TvaRecord, len(records))
	copy(out, records)
	return out
}
