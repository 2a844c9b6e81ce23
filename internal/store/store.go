// Package store provides the asynchronous key/value store shared by all
// surfaces (content script, popup, manager). The engine treats it the way
// the extension treated chrome.storage.local: plain get/set/remove with no
// transactions and no locking. A multi-key Set is one logical write, which
// is what keeps a project record and its metadata entry from diverging.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store keys, all within one shared key/value space.
const (
	// KeyProjects holds the ordered metadata index of all projects.
	KeyProjects = "projects"
	// KeyActiveProject holds the id of the active project.
	KeyActiveProject = "activeProjectId"
	// KeyInbox holds freshly scraped items awaiting merge.
	KeyInbox = "shoplist_inbox"
	// KeyClipboard holds the internal copy/cut/paste clipboard.
	KeyClipboard = "shoptracker_clipboard"
	// KeyClipboardFresh marks the clipboard as unpasted since the last copy.
	KeyClipboardFresh = "shoptracker_clipboard_fresh"
)

// ProjectKey returns the store key for one full project record.
func ProjectKey(id string) string {
	return "proj_" + id
}

// KV is the persistent store contract. All operations suspend the caller
// until the store responds; there is no cross-surface ordering guarantee.
type KV interface {
	// Get returns the values for the given keys. Absent keys are omitted
	// from the result, not reported as errors.
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	// Set writes every entry in one logical step.
	Set(ctx context.Context, entries map[string]json.RawMessage) error
	// Remove deletes the given keys. Removing an absent key is a no-op.
	Remove(ctx context.Context, keys ...string) error
}

// ReadJSON loads one key into v. Returns false when the key is absent.
func ReadJSON(ctx context.Context, kv KV, key string, v interface{}) (bool, error) {
	values, err := kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// WriteJSON marshals every value and writes the batch in one Set.
func WriteJSON(ctx context.Context, kv KV, entries map[string]interface{}) error {
	raw := make(map[string]json.RawMessage, len(entries))
	for key, v := range entries {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		raw[key] = data
	}
	return kv.Set(ctx, raw)
}
