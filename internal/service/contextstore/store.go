// Package contextstore holds the shared prompt context: the in-memory
// codebase blob refreshed by the collector and the persisted scratch-pad
// slots.
package contextstore

import (
	"context"
	"sync/atomic"

	"github.com/mkessel/prompter/backend/internal/model/scratchpad"
	"github.com/mkessel/prompter/backend/internal/store"
)

// Store is shared process-wide. Codebase reads are lock-free snapshots and a
// write replaces the blob atomically. There is no cross-request locking, so a
// writer racing a reader may pair an old blob with newer scratch-pad content
// inside one composed prompt; that window is accepted.
type Store struct {
	codebase atomic.Pointer[string]
	db       *store.Store
}

// New creates the context store backed by db for scratch-pad persistence.
func New(db *store.Store) *Store {
	return &Store{db: db}
}

// CodebaseContext returns the current blob snapshot. The blob being absent is
// not an error; it simply contributes nothing to prompts.
func (s *Store) CodebaseContext() (string, bool) {
	p := s.codebase.Load()
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}

// SetCodebaseContext replaces the blob for all subsequent reads.
func (s *Store) SetCodebaseContext(text string) {
	s.codebase.Store(&text)
}

// ListSections returns the scratch-pad slots in their fixed order.
func (s *Store) ListSections(ctx context.Context) ([]scratchpad.Section, error) {
	return s.db.ListScratchPad(ctx)
}

// SetSection overwrites one slot. Unknown labels are store.ErrSectionNotFound.
func (s *Store) SetSection(ctx context.Context, label, content string) error {
	return s.db.SetScratchPad(ctx, label, content)
}
