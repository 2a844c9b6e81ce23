package project

import (
	"context"

	"shoplist-core/internal/models"
	"shoplist-core/internal/uuid"
)

// SelectionActive reports whether selection mode is on.
func (m *Manager) SelectionActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection.Active()
}

// SelectedCount returns the number of selected items.
func (m *Manager) SelectedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection.Count()
}

// EnterSelection turns selection mode on. Items are not mutated.
func (m *Manager) EnterSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection.Enter()
}

// ExitSelection leaves selection mode and clears the selection.
func (m *Manager) ExitSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection.Exit()
}

// ToggleSelect flips the selection of one item.
func (m *Manager) ToggleSelect(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection.Toggle(id)
}

// ToggleSelectAll selects every item, or clears the selection when all are
// already selected.
func (m *Manager) ToggleSelectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]string, len(m.project.Items))
	for i, item := range m.project.Items {
		all[i] = item.ID
	}
	m.selection.ToggleAll(all)
}

// selectedItemsLocked returns deep copies of the selected items in project
// order. The caller holds the lock.
func (m *Manager) selectedItemsLocked() []models.ProductRecord {
	var out []models.ProductRecord
	for _, item := range m.project.Items {
		if m.selection.Has(item.ID) {
			out = append(out, item.Clone())
		}
	}
	return out
}

// CopySelected snapshots the selected items into the internal clipboard and
// leaves selection mode. Does not mutate the project and is not undoable.
func (m *Manager) CopySelected(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.selectedItemsLocked()
	if len(items) == 0 {
		return nil
	}
	if err := m.clipboard.Put(ctx, items); err != nil {
		return err
	}
	m.selection.Exit()
	return nil
}

// CutSelected copies the selected items to the clipboard and removes them
// from the project. The removal is undoable; the clipboard write is not.
func (m *Manager) CutSelected(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.selectedItemsLocked()
	if len(items) == 0 {
		return nil
	}
	if err := m.clipboard.Put(ctx, items); err != nil {
		return err
	}

	ids := m.selection.IDs()
	err := m.mutateLocked(ctx, "Cut items", func(p *models.Project) {
		p.RemoveItems(ids)
	})
	m.selection.Exit()
	return err
}

// DeleteSelected removes the selected items. Callers confirm with the user
// first; the removal stays undoable.
func (m *Manager) DeleteSelected(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.selection.Count() == 0 {
		return nil
	}
	ids := m.selection.IDs()
	err := m.mutateLocked(ctx, "Deleted items", func(p *models.Project) {
		p.RemoveItems(ids)
	})
	m.selection.Exit()
	return err
}

// Paste appends deep copies of the clipboard items with freshly assigned
// ids, then marks the clipboard stale. An empty clipboard is a no-op.
func (m *Manager) Paste(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, _, err := m.clipboard.Load(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	err = m.mutateLocked(ctx, "Pasted items", func(p *models.Project) {
		for _, item := range items {
			pasted := item.Clone()
			pasted.ID = uuid.New()
			p.Items = append(p.Items, pasted)
		}
	})
	if err != nil {
		return err
	}
	return m.clipboard.MarkStale(ctx)
}

// ClipboardState returns the clipboard size and freshness for affordances.
func (m *Manager) ClipboardState(ctx context.Context) (int, bool, error) {
	items, fresh, err := m.clipboard.Load(ctx)
	if err != nil {
		return 0, false, err
	}
	return len(items), fresh, nil
}
