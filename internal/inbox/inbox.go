// Package inbox manages the staging list of freshly clipped items. The
// scraping side appends, the manager drains. The inbox lives under a single
// store key so surfaces observe it by polling.
package inbox

import (
	"context"

	"shoplist-core/internal/models"
	"shoplist-core/internal/store"
)

// PushResult reports what happened to a clipped item.
type PushResult string

const (
	// Saved means the item was appended to the inbox.
	Saved PushResult = "saved"
	// AlreadySaved means an item with the same canonical URL was staged.
	AlreadySaved PushResult = "already_saved"
)

// Inbox provides access to the staged items.
type Inbox struct {
	kv store.KV
}

// New creates an Inbox over the shared store.
func New(kv store.KV) *Inbox {
	return &Inbox{kv: kv}
}

// List returns the staged items in clip order. An absent key is an empty
// inbox.
func (in *Inbox) List(ctx context.Context) ([]models.ProductRecord, error) {
	var items []models.ProductRecord
	if _, err := store.ReadJSON(ctx, in.kv, store.KeyInbox, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.ProductRecord{}
	}
	return items, nil
}

// Count returns the number of staged items.
func (in *Inbox) Count(ctx context.Context) (int, error) {
	items, err := in.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Push appends a clipped item unless one with the same canonical URL is
// already staged. Duplicate pushes are reported, not failed.
func (in *Inbox) Push(ctx context.Context, item models.ProductRecord) (PushResult, error) {
	items, err := in.List(ctx)
	if err != nil {
		return "", err
	}

	for _, staged := range items {
		if staged.URL == item.URL {
			return AlreadySaved, nil
		}
	}

	items = append(items, item)
	if err := store.WriteJSON(ctx, in.kv, map[string]interface{}{store.KeyInbox: items}); err != nil {
		return "", err
	}
	return Saved, nil
}

// Remove drops the staged item at the given position.
func (in *Inbox) Remove(ctx context.Context, index int) error {
	items, err := in.List(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(items) {
		return nil
	}
	items = append(items[:index], items[index+1:]...)
	return store.WriteJSON(ctx, in.kv, map[string]interface{}{store.KeyInbox: items})
}

// Clear empties the inbox. The key is written as an empty list rather than
// removed so pollers keep seeing a well-formed value.
func (in *Inbox) Clear(ctx context.Context) error {
	return store.WriteJSON(ctx, in.kv, map[string]interface{}{store.KeyInbox: []models.ProductRecord{}})
}
