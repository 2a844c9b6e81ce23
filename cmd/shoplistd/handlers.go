package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shoplist-core/internal/clip"
	"shoplist-core/internal/errors"
	"shoplist-core/internal/images"
	"shoplist-core/internal/logging"
	"shoplist-core/internal/models"
	"shoplist-core/internal/project"
	"shoplist-core/internal/scrape"
)

// API serves the manager surface over REST.
type API struct {
	manager  *project.Manager
	embedder *images.Embedder
	scraper  *scrape.Scraper
	hub      *WSHub
}

// NewAPI creates the REST handler set.
func NewAPI(manager *project.Manager, hub *WSHub) *API {
	return &API{
		manager:  manager,
		embedder: images.NewEmbedder(),
		scraper:  scrape.NewScraper(),
		hub:      hub,
	}
}

// Routes mounts every endpoint on a chi router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/api/health", a.health)

	r.Get("/api/projects", a.listProjects)
	r.Post("/api/projects", a.createProject)
	r.Post("/api/projects/{id}/activate", a.activateProject)
	r.Delete("/api/projects/{id}", a.deleteProject)

	r.Get("/api/projects/active", a.activeProject)
	r.Patch("/api/projects/active", a.renameProject)
	r.Put("/api/projects/active/settings", a.setSettings)
	r.Put("/api/projects/active/order", a.reorder)
	r.Post("/api/projects/active/items", a.addItem)
	r.Patch("/api/projects/active/items/{id}", a.editItem)
	r.Delete("/api/projects/active/items/{id}", a.deleteItem)
	r.Post("/api/projects/active/items/{id}/embed", a.embedItemImage)

	r.Post("/api/undo", a.undo)
	r.Post("/api/redo", a.redo)

	r.Post("/api/clip", a.clipItem)
	r.Post("/api/clip/url", a.clipURL)
	r.Get("/api/inbox", a.inboxState)
	r.Post("/api/inbox/import", a.importInbox)
	r.Delete("/api/inbox/{index}", a.dismissInboxItem)

	r.Post("/api/selection/enter", a.enterSelection)
	r.Post("/api/selection/toggle", a.toggleSelect)
	r.Post("/api/selection/all", a.toggleSelectAll)
	r.Post("/api/selection/exit", a.exitSelection)
	r.Post("/api/selection/copy", a.copySelected)
	r.Post("/api/selection/cut", a.cutSelected)
	r.Delete("/api/selection", a.deleteSelected)
	r.Post("/api/paste", a.paste)

	r.Get("/api/export", a.exportProject)
	r.Post("/api/import", a.importProject)

	r.Get("/ws", HandleWebSocket(a.hub))

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine error codes onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := errors.ErrInternal
	if appErr, ok := err.(*errors.AppError); ok {
		code = appErr.Code
		switch appErr.Code {
		case errors.ErrValidation, errors.ErrInvalid, errors.ErrImportFailed:
			status = http.StatusBadRequest
		case errors.ErrNotFound, errors.ErrProjectNotFound, errors.ErrItemNotFound:
			status = http.StatusNotFound
		case errors.ErrDuplicate:
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, map[string]interface{}{"error": err.Error(), "code": code})
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "service": "shoplistd"})
}

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	index, err := a.manager.Projects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, index)
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && err != io.EOF {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := a.manager.CreateProject(r.Context(), request.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) activateProject(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.SwitchProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.manager.Current())
}

// deleteProject requires explicit confirmation: project deletion has no
// undo.
func (a *API) deleteProject(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		http.Error(w, "confirm=true is required: project deletion cannot be undone", http.StatusBadRequest)
		return
	}
	if err := a.manager.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"active": a.manager.ActiveID()})
}

func (a *API) activeProject(w http.ResponseWriter, r *http.Request) {
	current := a.manager.Current()
	clipCount, clipFresh, err := a.manager.ClipboardState(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project":       current,
		"effectiveCols": current.Settings.EffectiveCols(),
		"canUndo":       a.manager.CanUndo(),
		"canRedo":       a.manager.CanRedo(),
		"selection": map[string]interface{}{
			"active": a.manager.SelectionActive(),
			"count":  a.manager.SelectedCount(),
		},
		"clipboard": map[string]interface{}{
			"count": clipCount,
			"fresh": clipFresh,
		},
	})
}

func (a *API) renameProject(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := a.manager.RenameProject(r.Context(), request.Title); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.manager.Current())
}

func (a *API) setSettings(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Cols int `json:"cols"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := a.manager.SetGridCols(r.Context(), request.Cols); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.manager.Current().Settings)
}

func (a *API) reorder(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Order []string `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := a.manager.Reorder(r.Context(), request.Order); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.manager.Current())
}

func (a *API) addItem(w http.ResponseWriter, r *http.Request) {
	var scraped clip.ScrapedProduct
	if err := json.NewDecoder(r.Body).Decode(&scraped); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !scraped.HasTitle() {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	item := clip.Normalize(scraped)
	if err := a.manager.AddItem(r.Context(), item); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (a *API) editItem(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Title    string          `json:"title"`
		Price    float64         `json:"price"`
		ImageFit models.ImageFit `json:"imageFit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := a.manager.EditItem(r.Context(), chi.URLParam(r, "id"), request.Title, request.Price, request.ImageFit); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.manager.Current())
}

// deleteItem requires confirmation at the call site; the deletion itself
// stays undoable.
func (a *API) deleteItem(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		http.Error(w, "confirm=true is required", http.StatusBadRequest)
		return
	}
	if err := a.manager.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.manager.Current())
}

func (a *API) embedItemImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current := a.manager.Current()
	item := current.ItemByID(id)
	if item == nil {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	embedded, err := a.embedder.Embed(r.Context(), item.Image)
	if err != nil {
		// Best-effort: the remote URL stays in place.
		logging.Warn("Image embed failed", map[string]interface{}{"item_id": id, "error": err.Error()})
		writeJSON(w, http.StatusOK, map[string]interface{}{"embedded": false})
		return
	}

	if err := a.manager.SetItemImage(r.Context(), id, embedded, item.ImageFit); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"embedded": true})
}

func (a *API) undo(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.Undo(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.manager.Current())
}

func (a *API) redo(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.Redo(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.manager.Current())
}

// clipItem is the content-script entry point: a best-effort scrape lands in
// the inbox unless its canonical URL is already staged.
func (a *API) clipItem(w http.ResponseWriter, r *http.Request) {
	var scraped clip.ScrapedProduct
	if err := json.NewDecoder(r.Body).Decode(&scraped); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !scraped.HasTitle() {
		http.Error(w, "could not scrape item", http.StatusBadRequest)
		return
	}

	result, err := a.manager.Inbox().Push(r.Context(), clip.Normalize(scraped))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": result})
}

// clipURL scrapes a listing page server-side and stages the result. Covers
// surfaces that have a URL but no DOM access, like the share target.
func (a *API) clipURL(w http.ResponseWriter, r *http.Request) {
	var request struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	scraped, err := a.scraper.Scrape(r.Context(), request.URL)
	if err != nil {
		logging.Warn("Page scrape failed", map[string]interface{}{"url": request.URL, "error": err.Error()})
		http.Error(w, "could not scrape page", http.StatusBadGateway)
		return
	}
	if !scraped.HasTitle() {
		http.Error(w, "could not scrape item", http.StatusUnprocessableEntity)
		return
	}

	result, err := a.manager.Inbox().Push(r.Context(), clip.Normalize(scraped))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": result})
}

func (a *API) inboxState(w http.ResponseWriter, r *http.Request) {
	items, err := a.manager.Inbox().List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(items), "items": items})
}

// dismissInboxItem drops one staged clip without merging it.
func (a *API) dismissInboxItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid index", http.StatusBadRequest)
		return
	}
	if err := a.manager.Inbox().Remove(r.Context(), index); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) importInbox(w http.ResponseWriter, r *http.Request) {
	added, err := a.manager.ImportInbox(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if added > 0 {
		a.hub.BroadcastProjectUpdated(a.manager.ActiveID())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"added": added})
}

func (a *API) enterSelection(w http.ResponseWriter, r *http.Request) {
	a.manager.EnterSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) toggleSelect(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	a.manager.ToggleSelect(request.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active": a.manager.SelectionActive(),
		"count":  a.manager.SelectedCount(),
	})
}

func (a *API) toggleSelectAll(w http.ResponseWriter, r *http.Request) {
	a.manager.ToggleSelectAll()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active": a.manager.SelectionActive(),
		"count":  a.manager.SelectedCount(),
	})
}

func (a *API) exitSelection(w http.ResponseWriter, r *http.Request) {
	a.manager.ExitSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) copySelected(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.CopySelected(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) cutSelected(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.CutSelected(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.manager.Current())
}

func (a *API) deleteSelected(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		http.Error(w, "confirm=true is required", http.StatusBadRequest)
		return
	}
	if err := a.manager.DeleteSelected(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.manager.Current())
}

func (a *API) paste(w http.ResponseWriter, r *http.Request) {
	if err := a.manager.Paste(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.manager.Current())
}

func (a *API) exportProject(w http.ResponseWriter, r *http.Request) {
	doc := a.manager.Export()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+project.SafeFileName(doc.Title)+`"`)
	json.NewEncoder(w).Encode(doc)
}

func (a *API) importProject(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	id, err := a.manager.Import(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
