// Package store defines the record-source ports the engine consumes.
// The extraction pipeline writes rows into the backing store; the
// engine only ever bulk-reads them, deletes or patches header fields by
// grouping key, and re-reads after every mutation.
package store

import (
	"context"

	"factures/internal/core"
)

type (
	// InvoiceLister is the bulk fetch of raw invoice line records for
	// one user, newest first.
	InvoiceLister interface {
		ListInvoiceLines(ctx context.Context, userID string) ([]core.RawLineRecord, error)
	}

	// TvaLister is the bulk fetch of tax-total records for one user,
	// newest first.
	TvaLister interface {
		ListTvaLines(ctx context.Context, userID string) ([]core.TvaRecord, error)
	}

	// InvoiceMutator covers the two mutations users can apply to a
	// logical invoice. Both are scoped to user and image ref; callers
	// must refresh afterwards.
	InvoiceMutator interface {
		DeleteByImageRef(ctx context.Context, userID, imageRef string) error
		UpdateHeaderFields(ctx context.Context, userID, imageRef string, update core.HeaderUpdate) error
	}

	// RecordWriter is the insert side used by the extraction pipeline,
	// seeding tools and tests.
	RecordWriter interface {
		InsertInvoiceLine(ctx context.Context, rec core.RawLineRecord) (int64, error)
		InsertTvaLine(ctx context.Context, rec core.TvaRecord) (int64, error)
	}
)
