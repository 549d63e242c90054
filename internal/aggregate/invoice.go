// Package aggregate reconciles raw extraction rows into logical
// invoices. Aggregation is a pure recompute over the full record set;
// nothing here is patched incrementally.
package aggregate

import (
	"strconv"

	"factures/internal/core"
)

// fallbackKey synthesizes a grouping key for a record without an image
// ref. Record IDs are unique, so fallback keys never collide.
func fallbackKey(id int64) string {
	return "no-image-" + strconv.FormatInt(id, 10)
}

// GroupRecords groups raw line records into invoice aggregates keyed by
// image ref. The first record observed for a key supplies every header
// field; later records sharing the key only contribute article lines,
// even when their header fields differ from the stored ones. Result
// order is first-occurrence order of each key.
func GroupRecords(records []core.RawLineRecord) []core.InvoiceAggregate {
	index := make(map[string]int, len(records))
	out := make([]core.InvoiceAggregate, 0, len(records))

	for _, r := range records {
		key := r.ImageRef
		if key == "" {
			key = fallbackKey(r.ID)
		}

		i, seen := index[key]
		if !seen {
			i = len(out)
			index[key] = i
			out = append(out, core.InvoiceAggregate{
				Key:           key,
				ImageRef:      r.ImageRef,
				Date:          r.Date,
				Vendor:        r.Vendor,
				Category:      r.Category,
				PaymentMode:   r.PaymentMode,
				InvoiceNumber: r.InvoiceNumber,
				TvaTotal:      r.TvaTotal,
				TotalIncTax:   r.TotalIncTax,
				Items:         []core.Item{},
				CreatedAt:     r.CreatedAt,
			})
		}

		if r.HasItem() {
			out[i].Items = append(out[i].Items, core.Item{
				Description: r.ItemDescription,
				Quantity:    r.ItemQuantity,
				LineTotal:   r.ItemLineTotal,
			})
		}
	}

	return out
}
