// Package session holds one user's live view of the reconciled data.
// A session owns a snapshot of both record domains, refreshes it
// wholesale from the store, and serves reads, mutations and exports
// from that snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"factures/internal/aggregate"
	"factures/internal/core"
	"factures/internal/export"
	"factures/internal/feed"
	"factures/internal/stats"
	"factures/internal/store"
	"factures/internal/tracker"
)

// ErrClosed is returned by operations on a disposed session.
var ErrClosed = errors.New("session closed")

// snapshot is one consistent view of both domains. Snapshots are
// immutable once installed; readers copy out of the current one.
type snapshot struct {
	aggregates []core.InvoiceAggregate
	tvaRecords []core.TvaRecord
}

// Session is the lifecycle object tying a user's store, upload tracker
// and snapshot together. All methods are safe for concurrent use.
type Session struct {
	userID   string
	invoices store.InvoiceLister
	tva      store.TvaLister
	mutator  store.InvoiceMutator
	tracker  *tracker.Tracker

	mu      sync.RWMutex
	current snapshot
	closed  bool

	// onRefresh hooks run after every successful refresh, outside the
	// snapshot lock. The HTTP layer uses this to drop cached exports.
	hookMu    sync.Mutex
	onRefresh []func()
}

func New(userID string, invoices store.InvoiceLister, tva store.TvaLister, mutator store.InvoiceMutator) *Session {
	return &Session{
		userID:   userID,
		invoices: invoices,
		tva:      tva,
		mutator:  mutator,
		tracker:  tracker.New(),
	}
}

// OnRefresh registers a hook invoked after each successful refresh.
func (s *Session) OnRefresh(fn func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onRefresh = append(s.onRefresh, fn)
}

// Refresh rebuilds the snapshot from scratch: both domains are fetched
// in parallel, reconciled, and installed wholesale. Fetches run outside
// the lock, so concurrent refreshes race and the one completing last
// wins. On any fetch error the prior snapshot is kept.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	var (
		lines []core.RawLineRecord
		taxes []core.TvaRecord
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lines, err = s.invoices.ListInvoiceLines(ctx, s.userID)
		if err != nil {
			return fmt.Errorf("list invoice lines: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		taxes, err = s.tva.ListTvaLines(ctx, s.userID)
		if err != nil {
			return fmt.Errorf("list tva lines: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	next := snapshot{
		aggregates: aggregate.GroupRecords(lines),
		tvaRecords: aggregate.TvaRecords(taxes),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.current = next
	s.mu.Unlock()

	s.hookMu.Lock()
	hooks := make([]func(), len(s.onRefresh))
	copy(hooks, s.onRefresh)
	s.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	slog.InfoContext(ctx, "Refreshed session snapshot",
		"user_id", s.userID,
		"aggregates", len(next.aggregates),
		"tva_records", len(next.tvaRecords))

	return nil
}

// Aggregates returns a copy of the current invoice aggregates.
func (s *Session) Aggregates() []core.InvoiceAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.InvoiceAggregate, len(s.current.aggregates))
	copy(out, s.current.aggregates)
	return out
}

// TvaRecords returns a copy of the current tax records.
func (s *Session) TvaRecords() []core.TvaRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.TvaRecord, len(s.current.tvaRecords))
	copy(out, s.current.tvaRecords)
	return out
}

// Stats computes the per-window invoice statistics at now.
func (s *Session) Stats(now time.Time) map[core.Window]stats.InvoiceStats {
	return stats.Windows(now, s.Aggregates())
}

// TvaStats computes the per-window tax statistics at now.
func (s *Session) TvaStats(now time.Time) map[core.Window]stats.TvaStats {
	return stats.TvaWindows(now, s.TvaRecords())
}

// Overview computes the all-time dashboard numbers at now.
func (s *Session) Overview(now time.Time) stats.Overview {
	return stats.ComputeOverview(now, s.Aggregates())
}

// Categories computes the spend-per-category breakdown.
func (s *Session) Categories() []stats.CategoryAmount {
	return stats.ByCategory(s.Aggregates())
}

// DeleteInvoice deletes every raw record of a logical invoice, clears
// its upload notice and refreshes the snapshot.
func (s *Session) DeleteInvoice(ctx context.Context, imageRef string) error {
	if imageRef == "" {
		return errors.New("image ref required")
	}
	if err := s.mutator.DeleteByImageRef(ctx, s.userID, imageRef); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	s.tracker.OnDelete(imageRef)
	return s.Refresh(ctx)
}

// UpdateInvoice patches the header fields of every raw record of a
// logical invoice and refreshes the snapshot.
func (s *Session) UpdateInvoice(ctx context.Context, imageRef string, update core.HeaderUpdate) error {
	if imageRef == "" {
		return errors.New("image ref required")
	}
	if err := s.mutator.UpdateHeaderFields(ctx, s.userID, imageRef, update); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return s.Refresh(ctx)
}

// StartProcessing records an upload notice for an image ref.
func (s *Session) StartProcessing(imageRef string) {
	s.tracker.Start(imageRef)
}

// StopProcessing clears an upload notice.
func (s *Session) StopProcessing(imageRef string) {
	s.tracker.Stop(imageRef)
}

// Processing returns the image refs still awaiting extraction results.
func (s *Session) Processing() []string {
	return s.tracker.Pending()
}

// Export renders the current snapshot into an artifact for the request.
func (s *Session) Export(now time.Time, req export.Request) (export.Artifact, error) {
	switch req.Domain {
	case export.DomainInvoices:
		aggregates := s.Aggregates()
		st := stats.WindowStats(now, req.Period, aggregates)
		return export.Invoices(now, req, aggregates, st)
	case export.DomainTva:
		records := s.TvaRecords()
		st := stats.TvaWindowStats(now, req.Period, records)
		return export.Tva(now, req, records, st)
	default:
		return export.Artifact{}, fmt.Errorf("unknown export domain %q", req.Domain)
	}
}

// Consumer is the feed side the session runs against.
type Consumer interface {
	ConsumeRecordEvents(ctx context.Context, handler func(*feed.RecordEvent) error) error
}

// Run consumes change events until ctx is done. Any event, whatever its
// type or domain, triggers a full refresh; insert events additionally
// clear the upload notice for their image ref. A failed refresh is
// logged and the event acked anyway, the snapshot simply stays one
// event behind until the next refresh succeeds.
func (s *Session) Run(ctx context.Context, consumer Consumer) error {
	return consumer.ConsumeRecordEvents(ctx, func(ev *feed.RecordEvent) error {
		if ev.UserID != "" && ev.UserID != s.userID {
			return nil
		}

		if ev.Type == feed.EventInsert && ev.ImageRef != "" {
			s.tracker.OnRemoteInsert(ev.ImageRef)
		}

		if err := s.Refresh(ctx); err != nil {
			slog.ErrorContext(ctx, "Refresh after change event failed",
				"error", err,
				"domain", ev.Domain,
				"type", ev.Type)
		}
		return nil
	})
}

// Close marks the session disposed. Reads keep serving the last
// snapshot, refreshes and mutations are rejected.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
