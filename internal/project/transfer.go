package project

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"shoplist-core/internal/errors"
	"shoplist-core/internal/models"
	"shoplist-core/internal/store"
	"shoplist-core/internal/uuid"
)

// TransferDoc is the import/export file format: a standalone JSON document
// holding one project's content without its identity.
type TransferDoc struct {
	Title    string                 `json:"title"`
	Items    []models.ProductRecord `json:"items"`
	Settings models.Settings        `json:"settings"`
}

var unsafeNameRegex = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SafeFileName derives a filesystem-safe name for an exported project.
func SafeFileName(title string) string {
	name := unsafeNameRegex.ReplaceAllString(title, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "project"
	}
	return strings.ToLower(name) + ".json"
}

// Export returns the loaded project as a transfer document.
func (m *Manager) Export() TransferDoc {
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := m.project.Clone()
	return TransferDoc{
		Title:    cloned.Title,
		Items:    cloned.Items,
		Settings: cloned.Settings,
	}
}

// Import validates a transfer document and inserts it as a brand-new
// project, never overwriting an existing one. The whole document is
// rejected when title or items are missing. The imported project becomes
// active. Returns the new project id.
func (m *Manager) Import(ctx context.Context, data []byte) (string, error) {
	var probe struct {
		Title    *string                 `json:"title"`
		Items    *[]models.ProductRecord `json:"items"`
		Settings *models.Settings        `json:"settings"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", errors.Wrap(errors.ErrImportFailed, "invalid JSON document", err)
	}
	if probe.Title == nil || *probe.Title == "" {
		return "", errors.New(errors.ErrImportFailed, "document has no title")
	}
	if probe.Items == nil {
		return "", errors.New(errors.ErrImportFailed, "document has no items array")
	}

	imported := models.Project{
		ID:       uuid.New(),
		Title:    *probe.Title + " (Imported)",
		Items:    *probe.Items,
		Settings: models.Settings{Cols: models.DefaultCols},
	}
	if probe.Settings != nil && models.ValidCols(probe.Settings.Cols) {
		imported.Settings = *probe.Settings
	}
	for i := range imported.Items {
		if imported.Items[i].ID == "" {
			imported.Items[i].ID = uuid.New()
		}
	}
	imported.Touch()

	m.mu.Lock()
	defer m.mu.Unlock()

	var index []models.ProjectMeta
	if _, err := store.ReadJSON(ctx, m.kv, store.KeyProjects, &index); err != nil {
		return "", errors.Wrap(errors.ErrStore, "failed to read project index", err)
	}
	index = append(index, imported.Meta())

	err := store.WriteJSON(ctx, m.kv, map[string]interface{}{
		store.ProjectKey(imported.ID): imported,
		store.KeyProjects:             index,
		store.KeyActiveProject:        imported.ID,
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrStore, "failed to write imported project", err)
	}

	m.projectID = imported.ID
	m.project = imported
	m.history.Reset()
	m.selection.Exit()
	return imported.ID, nil
}
