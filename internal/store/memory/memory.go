// Package memory is the in-memory record store used by tests and the
// default development backend. It mirrors the sqlite store's ordering
// and scoping semantics.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"factures/internal/core"
	"factures/internal/store"
)

type Store struct {
	mu       sync.Mutex
	nextID   int64
	invoices []core.RawLineRecord
	tva      []core.TvaRecord
}

var (
	_ store.InvoiceLister  = (*Store)(nil)
	_ store.TvaLister      = (*Store)(nil)
	_ store.InvoiceMutator = (*Store)(nil)
	_ store.RecordWriter   = (*Store)(nil)
)

func New() *Store {
	return &Store{nextID: 1}
}

// ListInvoiceLines implements store.InvoiceLister.
func (s *Store) ListInvoiceLines(_ context.Context, userID string) ([]core.RawLineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.RawLineRecord
	for _, r := range s.invoices {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out, func(r core.RawLineRecord) (time.Time, int64) { return r.CreatedAt, r.ID })
	return out, nil
}

// ListTvaLines implements store.TvaLister.
func (s *Store) ListTvaLines(_ context.Context, userID string) ([]core.TvaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.TvaRecord
	for _, r := range s.tva {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out, func(r core.TvaRecord) (time.Time, int64) { return r.CreatedAt, r.ID })
	return out, nil
}

// DeleteByImageRef implements store.InvoiceMutator.
func (s *Store) DeleteByImageRef(_ context.Context, userID, imageRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.invoices[:0]
	for _, r := range s.invoices {
		if r.UserID == userID && r.ImageRef == imageRef {
			continue
		}
		kept = append(kept, r)
	}
	s.invoices = kept
	return nil
}

// UpdateHeaderFields implements store.InvoiceMutator.
func (s *Store) UpdateHeaderFields(_ context.Context, userID, imageRef string, update core.HeaderUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.invoices {
		r := &s.invoices[i]
		if r.UserID != userID || r.ImageRef != imageRef {
			continue
		}
		if update.Vendor != nil {
			r.Vendor = *update.Vendor
		}
		if update.Category != nil {
			r.Category = *update.Category
		}
		if update.PaymentMode != nil {
			r.PaymentMode = *update.PaymentMode
		}
		if update.TotalIncTax != nil {
			r.TotalIncTax = *update.TotalIncTax
		}
		if update.TvaTotal != nil {
			r.TvaTotal = *update.TvaTotal
		}
	}
	return nil
}

// InsertInvoiceLine implements store.RecordWriter.
func (s *Store) InsertInvoiceLine(_ context.Context, rec core.RawLineRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.invoices = append(s.invoices, rec)
	return rec.ID, nil
}

// InsertTvaLine implements store.RecordWriter.
func (s *Store) InsertTvaLine(_ context.Context, rec core.TvaRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.tva = append(s.tva, rec)
	return rec.ID, nil
}

func sortNewestFirst[T any](items []T, key func(T) (time.Time, int64)) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})
}
