package core

import "time"

type (
	// RawLineRecord is one row produced by the extraction pipeline for an
	// uploaded receipt image. A row may carry the invoice header, an
	// article line, or both; rows sharing an image ref belong to the same
	// logical invoice. Records are immutable once received.
	RawLineRecord struct {
		ID              int64     `json:"id"`
		UserID          string    `json:"user_id"`
		ImageRef        string    `json:"image_ref,omitempty"`
		Date            string    `json:"date,omitempty"`
		Vendor          string    `json:"vendor,omitempty"`
		TvaTotal        Money     `json:"tva_total"`
		TotalIncTax     Money     `json:"total_inc_tax"`
		PaymentMode     string    `json:"payment_mode,omitempty"`
		Category        string    `json:"category,omitempty"`
		InvoiceNumber   string    `json:"invoice_number,omitempty"`
		ItemDescription string    `json:"item_description,omitempty"`
		ItemQuantity    float64   `json:"item_quantity,omitempty"`
		ItemLineTotal   Money     `json:"item_line_total"`
		CreatedAt       time.Time `json:"created_at"`
	}

	// Item is one article line reconciled into an aggregate.
	Item struct {
		Description string  `json:"description"`
		Quantity    float64 `json:"quantity"`
		LineTotal   Money   `json:"line_total"`
	}

	// InvoiceAggregate is the logical invoice built from every raw line
	// record sharing a grouping key. Header fields come from the first
	// record observed for the key and are never overwritten afterwards.
	InvoiceAggregate struct {
		Key           string    `json:"key"`
		ImageRef      string    `json:"image_ref,omitempty"`
		Date          string    `json:"date,omitempty"`
		Vendor        string    `json:"vendor"`
		Category      string    `json:"category"`
		PaymentMode   string    `json:"payment_mode"`
		InvoiceNumber string    `json:"invoice_number"`
		TvaTotal      Money     `json:"tva_total"`
		TotalIncTax   Money     `json:"total_inc_tax"`
		Items         []Item    `json:"items"`
		CreatedAt     time.Time `json:"created_at"`
	}

	// TvaRecord is one tax-total row. One row is one logical entity,
	// no grouping applies.
	TvaRecord struct {
		ID            int64     `json:"id"`
		UserID        string    `json:"user_id"`
		Date          string    `json:"date,omitempty"`
		InvoiceNumber string    `json:"invoice_number,omitempty"`
		Vendor        string    `json:"vendor,omitempty"`
		TotalIncTax   Money     `json:"total_inc_tax"`
		Tva20         Money     `json:"tva_20"`
		Tva10         Money     `json:"tva_10"`
		Tva55         Money     `json:"tva_5_5"`
		CreatedAt     time.Time `json:"created_at"`
	}

	// HeaderUpdate is a partial update of an aggregate's header fields.
	// Nil fields are left untouched.
	HeaderUpdate struct {
		Vendor      *string `json:"vendor,omitempty"`
		Category    *string `json:"category,omitempty"`
		PaymentMode *string `json:"payment_mode,omitempty"`
		TotalIncTax *Money  `json:"total_inc_tax,omitempty"`
		TvaTotal    *Money  `json:"tva_total,omitempty"`
	}
)

// IsZero reports whether the update would change nothing.
func (u HeaderUpdate) IsZero() bool {
	return u.Vendor == nil && u.Category == nil && u.PaymentMode == nil &&
		u.TotalIncTax == nil && u.TvaTotal == nil
}

// HasItem reports whether the record carries an article line.
func (r RawLineRecord) HasItem() bool {
	return r.ItemDescription != ""
}
