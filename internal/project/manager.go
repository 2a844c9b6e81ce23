// Package project provides the store manager: CRUD over named projects, the
// active-project pointer, the metadata index, and every list-changing
// operation on the loaded project.
package project

import (
	"context"
	"sync"

	"shoplist-core/internal/errors"
	"shoplist-core/internal/history"
	"shoplist-core/internal/inbox"
	"shoplist-core/internal/logging"
	"shoplist-core/internal/models"
	"shoplist-core/internal/selection"
	"shoplist-core/internal/store"
	"shoplist-core/internal/uuid"
)

// Manager owns the application state for one surface context. All state is
// explicit on the instance; handlers receive the manager by reference.
// Within one surface operations are serialized; across surfaces the shared
// store is last-writer-wins.
type Manager struct {
	kv        store.KV
	inbox     *inbox.Inbox
	clipboard *selection.Clipboard

	mu        sync.Mutex
	projectID string
	project   models.Project
	selection *selection.Set
	history   *history.History
}

// NewManager creates a manager over the shared store. Call Load before any
// other operation.
func NewManager(kv store.KV) *Manager {
	return &Manager{
		kv:        kv,
		inbox:     inbox.New(kv),
		clipboard: selection.NewClipboard(kv),
		selection: selection.NewSet(),
		history:   history.New(),
	}
}

// Inbox exposes the inbox for the scraping collaborator and the watcher.
func (m *Manager) Inbox() *inbox.Inbox {
	return m.inbox
}

// Load reads the active project from the store, bootstrapping a default
// project when none exist or the active pointer dangles.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var index []models.ProjectMeta
	if _, err := store.ReadJSON(ctx, m.kv, store.KeyProjects, &index); err != nil {
		return errors.Wrap(errors.ErrStore, "failed to read project index", err)
	}

	var pid string
	if _, err := store.ReadJSON(ctx, m.kv, store.KeyActiveProject, &pid); err != nil {
		return errors.Wrap(errors.ErrStore, "failed to read active project pointer", err)
	}

	if pid == "" || !indexHas(index, pid) {
		if len(index) == 0 {
			created := models.NewProject(models.DefaultProjectTitle)
			index = []models.ProjectMeta{created.Meta()}
			err := store.WriteJSON(ctx, m.kv, map[string]interface{}{
				store.KeyProjects:            index,
				store.ProjectKey(created.ID): created,
			})
			if err != nil {
				return errors.Wrap(errors.ErrStore, "failed to bootstrap default project", err)
			}
			logging.Info("Bootstrapped default project", map[string]interface{}{"project_id": created.ID})
		}
		pid = index[0].ID
		if err := store.WriteJSON(ctx, m.kv, map[string]interface{}{store.KeyActiveProject: pid}); err != nil {
			return errors.Wrap(errors.ErrStore, "failed to write active project pointer", err)
		}
	}

	var loaded models.Project
	found, err := store.ReadJSON(ctx, m.kv, store.ProjectKey(pid), &loaded)
	if err != nil {
		return errors.Wrap(errors.ErrStore, "failed to read project record", err)
	}
	if !found {
		// Dangling index entry: keep an empty record under the same identity
		// rather than failing the whole surface.
		loaded = models.Project{ID: pid, Title: metaTitle(index, pid), Items: []models.ProductRecord{}}
	}
	if loaded.Settings.Cols == 0 {
		loaded.Settings.Cols = models.DefaultCols
	}
	if loaded.Items == nil {
		loaded.Items = []models.ProductRecord{}
	}

	m.projectID = pid
	m.project = loaded
	m.history.Reset()
	m.selection.Exit()
	return nil
}

func indexHas(index []models.ProjectMeta, id string) bool {
	for _, meta := range index {
		if meta.ID == id {
			return true
		}
	}
	return false
}

func metaTitle(index []models.ProjectMeta, id string) string {
	for _, meta := range index {
		if meta.ID == id {
			return meta.Title
		}
	}
	return models.DefaultProjectTitle
}

// Current returns a copy of the loaded project for rendering.
func (m *Manager) Current() models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.project.Clone()
}

// ActiveID returns the id of the loaded project.
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projectID
}

// Projects returns the metadata index in stored order.
func (m *Manager) Projects(ctx context.Context) ([]models.ProjectMeta, error) {
	var index []models.ProjectMeta
	if _, err := store.ReadJSON(ctx, m.kv, store.KeyProjects, &index); err != nil {
		return nil, errors.Wrap(errors.ErrStore, "failed to read project index", err)
	}
	if index == nil {
		index = []models.ProjectMeta{}
	}
	return index, nil
}

// persistLocked writes the project record and its refreshed metadata entry
// in one Set so the index count never diverges from the item count. The
// caller holds the lock.
func (m *Manager) persistLocked(ctx context.Context) error {
	m.project.Touch()

	var index []models.ProjectMeta
	if _, err := store.ReadJSON(ctx, m.kv, store.KeyProjects, &index); err != nil {
		return errors.Wrap(errors.ErrStore, "failed to read project index", err)
	}

	meta := m.project.Meta()
	replaced := false
	for i := range index {
		if index[i].ID == m.projectID {
			index[i] = meta
			replaced = true
			break
		}
	}
	if !replaced {
		index = append(index, meta)
	}

	err := store.WriteJSON(ctx, m.kv, map[string]interface{}{
		store.ProjectKey(m.projectID): m.project,
		store.KeyProjects:             index,
	})
	if err != nil {
		return errors.Wrap(errors.ErrStore, "failed to persist project", err)
	}
	return nil
}

// Persist writes the loaded project and refreshes its index entry.
func (m *Manager) Persist(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistLocked(ctx)
}

// mutateLocked commits a pre-mutation snapshot, applies fn, and persists.
func (m *Manager) mutateLocked(ctx context.Context, label string, fn func(p *models.Project)) error {
	m.history.Commit(m.project, label)
	fn(&m.project)
	if err := m.persistLocked(ctx); err != nil {
		logging.Error("Persist failed, abandoning action", err, map[string]interface{}{"action": label})
		return err
	}
	return nil
}

// AddItem appends a normalized item to the loaded project.
func (m *Manager) AddItem(ctx context.Context, item models.ProductRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New()
	}
	return m.mutateLocked(ctx, "Added item", func(p *models.Project) {
		p.Items = append(p.Items, item)
	})
}

// EditItem updates title, price, and image fit of one item.
func (m *Manager) EditItem(ctx context.Context, id, title string, price float64, fit models.ImageFit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.project.ItemByID(id) == nil {
		return errors.New(errors.ErrItemNotFound, "item not found: "+id)
	}
	if title == "" {
		return errors.New(errors.ErrValidation, "item title must not be empty")
	}
	if price < 0 {
		price = 0
	}
	return m.mutateLocked(ctx, "Edited Details", func(p *models.Project) {
		item := p.ItemByID(id)
		item.Title = title
		item.Price = price
		if fit.Valid() {
			item.ImageFit = fit
		}
	})
}

// SetItemImage replaces an item's image. Not a history entry: image refreshes
// are cosmetic and the original data stays reachable through the URL.
func (m *Manager) SetItemImage(ctx context.Context, id, image string, fit models.ImageFit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.project.ItemByID(id)
	if item == nil {
		return errors.New(errors.ErrItemNotFound, "item not found: "+id)
	}
	item.Image = image
	if fit.Valid() {
		item.ImageFit = fit
	}
	return m.persistLocked(ctx)
}

// DeleteItem removes one item. Callers confirm with the user first; the
// removal stays undoable.
func (m *Manager) DeleteItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.project.ItemByID(id) == nil {
		return errors.New(errors.ErrItemNotFound, "item not found: "+id)
	}
	return m.mutateLocked(ctx, "Deleted item", func(p *models.Project) {
		p.RemoveItems(map[string]bool{id: true})
	})
}

// Reorder persists a drag-reorder of the items.
func (m *Manager) Reorder(ctx context.Context, order []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mutateLocked(ctx, "Reordered items", func(p *models.Project) {
		p.Reorder(order)
	})
}

// RenameProject changes the loaded project's title.
func (m *Manager) RenameProject(ctx context.Context, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if title == "" {
		return errors.New(errors.ErrValidation, "project title must not be empty")
	}
	return m.mutateLocked(ctx, "Renamed Project", func(p *models.Project) {
		p.Title = title
	})
}

// SetGridCols stores the grid-width preference. Not undoable: a view
// preference, not an edit.
func (m *Manager) SetGridCols(ctx context.Context, cols int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !models.ValidCols(cols) {
		return errors.New(errors.ErrValidation, "unsupported grid width")
	}
	m.project.Settings.Cols = cols
	return m.persistLocked(ctx)
}

// Undo restores the most recent past snapshot. A no-op when nothing can be
// undone. If persisting the restored state fails, the in-memory state has
// already moved; the divergence heals on the next successful write.
func (m *Manager) Undo(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot, ok := m.history.Undo(m.project)
	if !ok {
		return nil
	}
	m.project = snapshot
	if err := m.persistLocked(ctx); err != nil {
		logging.Error("Persist failed after undo", err)
		return err
	}
	return nil
}

// Redo restores the most recent future snapshot.
func (m *Manager) Redo(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot, ok := m.history.Redo(m.project)
	if !ok {
		return nil
	}
	m.project = snapshot
	if err := m.persistLocked(ctx); err != nil {
		logging.Error("Persist failed after redo", err)
		return err
	}
	return nil
}

// CanUndo reports whether an undo is available.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.CanUndo()
}

// CanRedo reports whether a redo is available.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.CanRedo()
}

// ImportInbox drains the inbox into the loaded project. Items whose
// canonical URL already exists in the project are skipped silently. An empty
// inbox is a no-op and leaves the undo history untouched. Returns the number
// of items added.
func (m *Manager) ImportInbox(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged, err := m.inbox.List(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrStore, "failed to read inbox", err)
	}
	if len(staged) == 0 {
		return 0, nil
	}

	m.history.Commit(m.project, "Imported items")

	added := 0
	for _, item := range staged {
		if m.project.HasURL(item.URL) {
			continue
		}
		item.ID = uuid.New()
		if !item.ImageFit.Valid() {
			item.ImageFit = models.FitCover
		}
		m.project.Items = append(m.project.Items, item)
		added++
	}

	if err := m.persistLocked(ctx); err != nil {
		return 0, err
	}
	if err := m.inbox.Clear(ctx); err != nil {
		return added, errors.Wrap(errors.ErrStore, "failed to clear inbox", err)
	}

	logging.Info("Imported inbox", map[string]interface{}{
		"staged": len(staged),
		"added":  added,
	})
	return added, nil
}

// CreateProject creates a new empty project, makes it active, and switches
// the in-memory view to it.
func (m *Manager) CreateProject(ctx context.Context, title string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(ctx, title)
}

func (m *Manager) createLocked(ctx context.Context, title string) (string, error) {
	if title == "" {
		title = models.NewProjectTitle
	}
	created := models.NewProject(title)

	var index []models.ProjectMeta
	if _, err := store.ReadJSON(ctx, m.kv, store.KeyProjects, &index); err != nil {
		return "", errors.Wrap(errors.ErrStore, "failed to read project index", err)
	}
	index = append(index, created.Meta())

	err := store.WriteJSON(ctx, m.kv, map[string]interface{}{
		store.ProjectKey(created.ID): created,
		store.KeyProjects:            index,
		store.KeyActiveProject:       created.ID,
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrStore, "failed to create project", err)
	}

	m.projectID = created.ID
	m.project = created
	m.history.Reset()
	m.selection.Exit()
	return created.ID, nil
}

// SwitchProject loads another project wholesale and makes it active. Not a
// history entry: switching is navigation, not an edit.
func (m *Manager) SwitchProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.switchLocked(ctx, id)
}

func (m *Manager) switchLocked(ctx context.Context, id string) error {
	var loaded models.Project
	found, err := store.ReadJSON(ctx, m.kv, store.ProjectKey(id), &loaded)
	if err != nil {
		return errors.Wrap(errors.ErrStore, "failed to read project record", err)
	}
	if !found {
		return errors.New(errors.ErrProjectNotFound, "project not found: "+id)
	}
	if err := store.WriteJSON(ctx, m.kv, map[string]interface{}{store.KeyActiveProject: id}); err != nil {
		return errors.Wrap(errors.ErrStore, "failed to write active project pointer", err)
	}

	if loaded.Settings.Cols == 0 {
		loaded.Settings.Cols = models.DefaultCols
	}
	if loaded.Items == nil {
		loaded.Items = []models.ProductRecord{}
	}

	m.projectID = id
	m.project = loaded
	m.history.Reset()
	m.selection.Exit()
	return nil
}

// DeleteProject removes a project record and its index entry. Irreversible;
// callers confirm with the user first. Deleting the active project switches
// to the first remaining project, or bootstraps a fresh one when none
// remain.
func (m *Manager) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.kv.Remove(ctx, store.ProjectKey(id)); err != nil {
		return errors.Wrap(errors.ErrStore, "failed to remove project record", err)
	}

	var index []models.ProjectMeta
	if _, err := store.ReadJSON(ctx, m.kv, store.KeyProjects, &index); err != nil {
		return errors.Wrap(errors.ErrStore, "failed to read project index", err)
	}
	remaining := index[:0]
	for _, meta := range index {
		if meta.ID != id {
			remaining = append(remaining, meta)
		}
	}
	if err := store.WriteJSON(ctx, m.kv, map[string]interface{}{store.KeyProjects: remaining}); err != nil {
		return errors.Wrap(errors.ErrStore, "failed to write project index", err)
	}

	if m.projectID != id {
		return nil
	}
	if len(remaining) > 0 {
		return m.switchLocked(ctx, remaining[0].ID)
	}
	_, err := m.createLocked(ctx, models.NewProjectTitle)
	return err
}
