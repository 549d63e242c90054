// Package tracker keeps the set of image refs whose upload has been
// announced but whose extraction rows have not yet landed. It is
// presentation bookkeeping only and never feeds the aggregators.
package tracker

import (
	"sort"
	"sync"
)

// Tracker is a concurrency-safe set of pending image refs.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func New() *Tracker {
	return &Tracker{pending: make(map[string]struct{})}
}

// Start marks an image ref as in flight. A blank ref is ignored.
func (t *Tracker) Start(imageRef string) {
	if imageRef == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[imageRef] = struct{}{}
}

// Stop clears the pending marker. Removing an absent ref is a no-op.
func (t *Tracker) Stop(imageRef string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, imageRef)
}

// OnRemoteInsert clears the marker when the change feed reports the
// first extracted row for the image. Idempotent.
func (t *Tracker) OnRemoteInsert(imageRef string) {
	t.Stop(imageRef)
}

// OnDelete clears the marker when the user deletes the image's invoice.
func (t *Tracker) OnDelete(imageRef string) {
	t.Stop(imageRef)
}

// Contains reports whether the ref is still pending.
func (t *Tracker) Contains(imageRef string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[imageRef]
	return ok
}

// Pending returns the pending refs in sorted order.
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.pending))
	for ref := range t.pending {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of pending refs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
