package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplist-core/internal/models"
	"shoplist-core/internal/store"
)

func setupManager(t *testing.T) (*Manager, *store.Memory) {
	t.Helper()
	kv := store.NewMemory()
	m := NewManager(kv)
	require.NoError(t, m.Load(context.Background()))
	return m, kv
}

func addItem(t *testing.T, m *Manager, id, url, title string) {
	t.Helper()
	require.NoError(t, m.AddItem(context.Background(), models.ProductRecord{
		ID:       id,
		URL:      url,
		Title:    title,
		ImageFit: models.FitContain,
	}))
}

func TestLoadBootstrapsDefaultProject(t *testing.T) {
	m, _ := setupManager(t)

	current := m.Current()
	assert.Equal(t, models.DefaultProjectTitle, current.Title)
	assert.Empty(t, current.Items)
	assert.Equal(t, models.DefaultCols, current.Settings.Cols)

	index, err := m.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, m.ActiveID(), index[0].ID)
}

func TestLoadIsIdempotent(t *testing.T) {
	m, kv := setupManager(t)
	first := m.ActiveID()

	// A second surface over the same store loads the same project instead
	// of bootstrapping another.
	other := NewManager(kv)
	require.NoError(t, other.Load(context.Background()))
	assert.Equal(t, first, other.ActiveID())

	index, err := other.Projects(context.Background())
	require.NoError(t, err)
	assert.Len(t, index, 1)
}

func TestLoadRepointsDanglingActivePointer(t *testing.T) {
	m, kv := setupManager(t)
	ctx := context.Background()

	require.NoError(t, store.WriteJSON(ctx, kv, map[string]interface{}{
		store.KeyActiveProject: "no-such-project",
	}))

	require.NoError(t, m.Load(ctx))
	assert.NotEqual(t, "no-such-project", m.ActiveID())

	var pid string
	found, err := store.ReadJSON(ctx, kv, store.KeyActiveProject, &pid)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, m.ActiveID(), pid)
}

func TestAddItemPersistsAndRefreshesIndex(t *testing.T) {
	m, kv := setupManager(t)
	ctx := context.Background()

	addItem(t, m, "i1", "https://a.example/p1", "Lamp")

	var stored models.Project
	found, err := store.ReadJSON(ctx, kv, store.ProjectKey(m.ActiveID()), &stored)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Lamp", stored.Items[0].Title)

	index, err := m.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, 1, index[0].Count)
}

func TestEditItem(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	addItem(t, m, "i1", "https://a.example/p1", "Lamp")

	require.NoError(t, m.EditItem(ctx, "i1", "Desk Lamp", 49.99, models.FitCover))

	cur := m.Current()
	item := cur.ItemByID("i1")
	require.NotNil(t, item)
	assert.Equal(t, "Desk Lamp", item.Title)
	assert.Equal(t, 49.99, item.Price)
	assert.Equal(t, models.FitCover, item.ImageFit)
}

func TestEditItemValidation(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	addItem(t, m, "i1", "https://a.example/p1", "Lamp")

	assert.Error(t, m.EditItem(ctx, "missing", "X", 1, models.FitCover))
	assert.Error(t, m.EditItem(ctx, "i1", "", 1, models.FitCover))

	// Negative prices clamp instead of failing.
	require.NoError(t, m.EditItem(ctx, "i1", "Lamp", -5, models.FitContain))
	cur := m.Current()
	assert.Equal(t, float64(0), cur.ItemByID("i1").Price)

	// An invalid fit leaves the stored fit untouched.
	require.NoError(t, m.EditItem(ctx, "i1", "Lamp", 1, models.ImageFit("stretch")))
	cur = m.Current()
	assert.Equal(t, models.FitContain, cur.ItemByID("i1").ImageFit)
}

func TestDeleteItemUndoable(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	addItem(t, m, "i1", "https://a.example/p1", "Lamp")
	require.NoError(t, m.DeleteItem(ctx, "i1"))
	assert.Empty(t, m.Current().Items)

	require.NoError(t, m.Undo(ctx))
	require.Len(t, m.Current().Items, 1)
	assert.Equal(t, "Lamp", m.Current().Items[0].Title)

	require.NoError(t, m.Redo(ctx))
	assert.Empty(t, m.Current().Items)
}

func TestDeleteItemNotFound(t *testing.T) {
	m, _ := setupManager(t)
	err := m.DeleteItem(context.Background(), "ghost")
	assert.Error(t, err)
	assert.False(t, m.CanUndo(), "failed delete must not leave a history entry")
}

func TestReorderPersists(t *testing.T) {
	m, kv := setupManager(t)
	ctx := context.Background()

	addItem(t, m, "a", "https://a.example/p1", "One")
	addItem(t, m, "b", "https://a.example/p2", "Two")
	addItem(t, m, "c", "https://a.example/p3", "Three")

	require.NoError(t, m.Reorder(ctx, []string{"c", "a", "b"}))

	var stored models.Project
	_, err := store.ReadJSON(ctx, kv, store.ProjectKey(m.ActiveID()), &stored)
	require.NoError(t, err)
	require.Len(t, stored.Items, 3)
	assert.Equal(t, "c", stored.Items[0].ID)
	assert.Equal(t, "a", stored.Items[1].ID)
	assert.Equal(t, "b", stored.Items[2].ID)
}

func TestRenameProject(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.RenameProject(ctx, "Office Refresh"))
	assert.Equal(t, "Office Refresh", m.Current().Title)

	index, err := m.Projects(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Office Refresh", index[0].Title)

	assert.Error(t, m.RenameProject(ctx, ""))
}

func TestSetGridColsNotUndoable(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.SetGridCols(ctx, 4))
	assert.Equal(t, 4, m.Current().Settings.Cols)
	assert.False(t, m.CanUndo())

	assert.Error(t, m.SetGridCols(ctx, 5))
	assert.Equal(t, 4, m.Current().Settings.Cols)
}

func TestUndoEmptyHistoryIsNoOp(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Undo(ctx))
	require.NoError(t, m.Redo(ctx))
	assert.Empty(t, m.Current().Items)
}

func TestImportInboxDrainsAndDeduplicates(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	addItem(t, m, "existing", "https://a.example/p1", "Already here")

	_, err := m.Inbox().Push(ctx, models.ProductRecord{ID: "x1", URL: "https://a.example/p1", Title: "Duplicate"})
	require.NoError(t, err)
	_, err = m.Inbox().Push(ctx, models.ProductRecord{ID: "x2", URL: "https://b.example/p2", Title: "New item"})
	require.NoError(t, err)

	added, err := m.ImportInbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	current := m.Current()
	require.Len(t, current.Items, 2)
	assert.Equal(t, "New item", current.Items[1].Title)

	count, err := m.Inbox().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "inbox must be emptied after merge")
}

func TestImportInboxAssignsFreshIDsAndDefaultFit(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	_, err := m.Inbox().Push(ctx, models.ProductRecord{ID: "staged-id", URL: "https://b.example/p2", Title: "New"})
	require.NoError(t, err)

	_, err = m.ImportInbox(ctx)
	require.NoError(t, err)

	current := m.Current()
	require.Len(t, current.Items, 1)
	assert.NotEqual(t, "staged-id", current.Items[0].ID)
	assert.Equal(t, models.FitCover, current.Items[0].ImageFit)
}

func TestImportInboxEmptyIsNoOp(t *testing.T) {
	m, _ := setupManager(t)

	added, err := m.ImportInbox(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.False(t, m.CanUndo(), "empty merge must not leave a history entry")
}

func TestImportInboxUndoable(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	_, err := m.Inbox().Push(ctx, models.ProductRecord{URL: "https://b.example/p2", Title: "New"})
	require.NoError(t, err)

	_, err = m.ImportInbox(ctx)
	require.NoError(t, err)
	require.Len(t, m.Current().Items, 1)

	require.NoError(t, m.Undo(ctx))
	assert.Empty(t, m.Current().Items)
}

func TestCreateAndSwitchProject(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	first := m.ActiveID()
	addItem(t, m, "i1", "https://a.example/p1", "Lamp")

	id, err := m.CreateProject(ctx, "Second")
	require.NoError(t, err)
	assert.Equal(t, id, m.ActiveID())
	assert.Empty(t, m.Current().Items)
	assert.False(t, m.CanUndo(), "switching projects resets history")

	require.NoError(t, m.SwitchProject(ctx, first))
	assert.Equal(t, first, m.ActiveID())
	assert.Len(t, m.Current().Items, 1)
}

func TestCreateProjectDefaultTitle(t *testing.T) {
	m, _ := setupManager(t)

	_, err := m.CreateProject(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, models.NewProjectTitle, m.Current().Title)
}

func TestSwitchProjectNotFound(t *testing.T) {
	m, _ := setupManager(t)
	err := m.SwitchProject(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestDeleteInactiveProject(t *testing.T) {
	m, kv := setupManager(t)
	ctx := context.Background()

	first := m.ActiveID()
	second, err := m.CreateProject(ctx, "Second")
	require.NoError(t, err)
	require.NoError(t, m.SwitchProject(ctx, first))

	require.NoError(t, m.DeleteProject(ctx, second))
	assert.Equal(t, first, m.ActiveID())

	values, err := kv.Get(ctx, store.ProjectKey(second))
	require.NoError(t, err)
	assert.NotContains(t, values, store.ProjectKey(second))

	index, err := m.Projects(ctx)
	require.NoError(t, err)
	assert.Len(t, index, 1)
}

func TestDeleteActiveProjectSwitchesToRemaining(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	first := m.ActiveID()
	second, err := m.CreateProject(ctx, "Second")
	require.NoError(t, err)

	require.NoError(t, m.DeleteProject(ctx, second))
	assert.Equal(t, first, m.ActiveID())
}

func TestDeleteOnlyProjectBootstrapsReplacement(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	only := m.ActiveID()
	require.NoError(t, m.DeleteProject(ctx, only))

	assert.NotEqual(t, only, m.ActiveID())
	assert.Equal(t, models.NewProjectTitle, m.Current().Title)

	index, err := m.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, m.ActiveID(), index[0].ID)
}

func TestCopyPaste(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	addItem(t, m, "a", "https://a.example/p1", "One")
	addItem(t, m, "b", "https://a.example/p2", "Two")

	m.ToggleSelect("a")
	m.ToggleSelect("b")
	require.NoError(t, m.CopySelected(ctx))
	assert.False(t, m.SelectionActive(), "copy leaves selection mode")

	require.NoError(t, m.Paste(ctx))
	require.NoError(t, m.Paste(ctx))

	current := m.Current()
	require.Len(t, current.Items, 6)

	// Every pasted copy carries a fresh identity.
	seen := map[string]bool{}
	for _, item := range current.Items {
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}

	_, fresh, err := m.ClipboardState(ctx)
	require.NoError(t, err)
	assert.False(t, fresh, "clipboard goes stale after the first paste")
}

func TestCutSelected(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	addItem(t, m, "a", "https://a.example/p1", "One")
	addItem(t, m, "b", "https://a.example/p2", "Two")

	m.ToggleSelect("a")
	require.NoError(t, m.CutSelected(ctx))

	current := m.Current()
	require.Len(t, current.Items, 1)
	assert.Equal(t, "b", current.Items[0].ID)

	count, _, err := m.ClipboardState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The cut itself is undoable; the clipboard keeps its contents.
	require.NoError(t, m.Undo(ctx))
	assert.Len(t, m.Current().Items, 2)
}

func TestDeleteSelected(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	addItem(t, m, "a", "https://a.example/p1", "One")
	addItem(t, m, "b", "https://a.example/p2", "Two")
	addItem(t, m, "c", "https://a.example/p3", "Three")

	m.ToggleSelect("a")
	m.ToggleSelect("c")
	require.NoError(t, m.DeleteSelected(ctx))

	current := m.Current()
	require.Len(t, current.Items, 1)
	assert.Equal(t, "b", current.Items[0].ID)
	assert.False(t, m.SelectionActive())
}

func TestPasteEmptyClipboardIsNoOp(t *testing.T) {
	m, _ := setupManager(t)

	require.NoError(t, m.Paste(context.Background()))
	assert.Empty(t, m.Current().Items)
	assert.False(t, m.CanUndo())
}

func TestToggleSelectAllCycle(t *testing.T) {
	m, _ := setupManager(t)

	addItem(t, m, "a", "https://a.example/p1", "One")
	addItem(t, m, "b", "https://a.example/p2", "Two")

	m.ToggleSelectAll()
	assert.Equal(t, 2, m.SelectedCount())

	m.ToggleSelectAll()
	assert.Equal(t, 0, m.SelectedCount())
}

func TestSetItemImageNotUndoable(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	addItem(t, m, "i1", "https://a.example/p1", "Lamp")

	require.NoError(t, m.SetItemImage(ctx, "i1", "data:image/jpeg;base64,abcd", models.FitCover))
	cur := m.Current()
	item := cur.ItemByID("i1")
	assert.Equal(t, "data:image/jpeg;base64,abcd", item.Image)
	assert.Equal(t, models.FitCover, item.ImageFit)

	// One history entry from AddItem only.
	require.NoError(t, m.Undo(ctx))
	assert.Empty(t, m.Current().Items)
	assert.False(t, m.CanUndo())
}
