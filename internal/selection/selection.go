// Package selection provides multi-select state and the internal clipboard.
// The clipboard is separate from the OS clipboard: items are structured
// records with embedded images and must round-trip exactly between pastes.
package selection

import (
	"context"
	"encoding/json"

	"shoplist-core/internal/models"
	"shoplist-core/internal/store"
)

func decode(raw json.RawMessage, v interface{}) error {
	return json.Unmarshal(raw, v)
}

// Set tracks selection mode and the selected item ids for the loaded
// project. Entering selection mode never mutates items.
type Set struct {
	active bool
	ids    map[string]bool
}

// NewSet returns an empty, inactive selection.
func NewSet() *Set {
	return &Set{ids: make(map[string]bool)}
}

// Active reports whether selection mode is on.
func (s *Set) Active() bool {
	return s.active
}

// Enter switches selection mode on without selecting anything.
func (s *Set) Enter() {
	s.active = true
}

// Exit leaves selection mode and clears the selection.
func (s *Set) Exit() {
	s.active = false
	s.ids = make(map[string]bool)
}

// Toggle flips membership of one id. Selection mode tracks whether any item
// remains selected.
func (s *Set) Toggle(id string) {
	if s.ids[id] {
		delete(s.ids, id)
	} else {
		s.ids[id] = true
	}
	s.active = len(s.ids) > 0
}

// ToggleAll selects every given id, or clears the selection when everything
// is already selected.
func (s *Set) ToggleAll(all []string) {
	if len(s.ids) == len(all) && len(all) > 0 {
		s.ids = make(map[string]bool)
	} else {
		for _, id := range all {
			s.ids[id] = true
		}
	}
	s.active = len(s.ids) > 0
}

// Has reports whether the id is selected.
func (s *Set) Has(id string) bool {
	return s.ids[id]
}

// Count returns the number of selected ids.
func (s *Set) Count() int {
	return len(s.ids)
}

// IDs returns the selected ids as a set.
func (s *Set) IDs() map[string]bool {
	out := make(map[string]bool, len(s.ids))
	for id := range s.ids {
		out[id] = true
	}
	return out
}

// Clipboard is the cross-surface copy/cut/paste buffer, persisted in the
// shared store. The fresh flag is an affordance only; a stale clipboard
// still pastes.
type Clipboard struct {
	kv store.KV
}

// NewClipboard creates a Clipboard over the shared store.
func NewClipboard(kv store.KV) *Clipboard {
	return &Clipboard{kv: kv}
}

// Put replaces the clipboard contents with deep copies of the given items
// and marks the clipboard fresh.
func (c *Clipboard) Put(ctx context.Context, items []models.ProductRecord) error {
	copies := make([]models.ProductRecord, len(items))
	for i, item := range items {
		copies[i] = item.Clone()
	}
	return store.WriteJSON(ctx, c.kv, map[string]interface{}{
		store.KeyClipboard:      copies,
		store.KeyClipboardFresh: true,
	})
}

// Load returns the clipboard contents and freshness.
func (c *Clipboard) Load(ctx context.Context) ([]models.ProductRecord, bool, error) {
	values, err := c.kv.Get(ctx, store.KeyClipboard, store.KeyClipboardFresh)
	if err != nil {
		return nil, false, err
	}

	var items []models.ProductRecord
	if raw, ok := values[store.KeyClipboard]; ok {
		if err := decode(raw, &items); err != nil {
			return nil, false, err
		}
	}
	fresh := false
	if raw, ok := values[store.KeyClipboardFresh]; ok {
		if err := decode(raw, &fresh); err != nil {
			return nil, false, err
		}
	}
	if items == nil {
		items = []models.ProductRecord{}
	}
	return items, fresh, nil
}

// MarkStale clears the fresh flag after a paste.
func (c *Clipboard) MarkStale(ctx context.Context) error {
	return store.WriteJSON(ctx, c.kv, map[string]interface{}{store.KeyClipboardFresh: false})
}
