package models

import (
	"time"

	"shoplist-core/internal/uuid"
)

const (
	// DefaultProjectTitle names the project created on first launch.
	DefaultProjectTitle = "My List"
	// NewProjectTitle names projects created explicitly by the user.
	NewProjectTitle = "New Project"
	// DefaultCols is the grid width used when no valid preference is stored.
	DefaultCols = 3
)

// allowedCols are the grid widths the manager view can render.
var allowedCols = map[int]bool{1: true, 2: true, 3: true, 4: true, 6: true}

// ValidCols reports whether n is a supported grid width.
func ValidCols(n int) bool {
	return allowedCols[n]
}

// Settings holds per-project display preferences.
type Settings struct {
	Cols int `json:"cols"`
}

// EffectiveCols returns the grid width to render with. Unrecognized stored
// values fall back to DefaultCols without being rewritten.
func (s Settings) EffectiveCols() int {
	if ValidCols(s.Cols) {
		return s.Cols
	}
	return DefaultCols
}

// Project is a named, ordered collection of clipped items. Item order is
// user-significant: drag reordering persists it.
type Project struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Items    []ProductRecord `json:"items"`
	Settings Settings        `json:"settings"`
	Updated  int64           `json:"updated"`
}

// NewProject creates an empty project with a fresh identity.
func NewProject(title string) Project {
	return Project{
		ID:       uuid.New(),
		Title:    title,
		Items:    []ProductRecord{},
		Settings: Settings{Cols: DefaultCols},
		Updated:  time.Now().UnixMilli(),
	}
}

// Clone returns a deep copy of the project. History snapshots rely on this
// being a full value copy with no shared item slice.
func (p Project) Clone() Project {
	out := p
	out.Items = make([]ProductRecord, len(p.Items))
	copy(out.Items, p.Items)
	return out
}

// Touch updates the last-write timestamp.
func (p *Project) Touch() {
	p.Updated = time.Now().UnixMilli()
}

// HasURL reports whether an item with the given canonical URL exists.
func (p *Project) HasURL(url string) bool {
	for i := range p.Items {
		if p.Items[i].URL == url {
			return true
		}
	}
	return false
}

// ItemByID returns a pointer to the item with the given id, or nil.
func (p *Project) ItemByID(id string) *ProductRecord {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return &p.Items[i]
		}
	}
	return nil
}

// RemoveItems drops every item whose id is in ids, preserving order of the
// remainder.
func (p *Project) RemoveItems(ids map[string]bool) {
	kept := p.Items[:0]
	for _, item := range p.Items {
		if !ids[item.ID] {
			kept = append(kept, item)
		}
	}
	p.Items = kept
}

// Reorder rearranges items to match the given id order. Ids that do not
// match an item are ignored; items missing from the order keep their
// relative position at the end.
func (p *Project) Reorder(order []string) {
	index := make(map[string]int, len(p.Items))
	for i, item := range p.Items {
		index[item.ID] = i
	}

	reordered := make([]ProductRecord, 0, len(p.Items))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if i, ok := index[id]; ok && !seen[id] {
			reordered = append(reordered, p.Items[i])
			seen[id] = true
		}
	}
	for _, item := range p.Items {
		if !seen[item.ID] {
			reordered = append(reordered, item)
		}
	}
	p.Items = reordered
}

// ProjectMeta is the denormalized index entry for one project.
type ProjectMeta struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Count   int    `json:"count"`
	Updated int64  `json:"updated"`
}

// Meta derives the index entry for the project.
func (p *Project) Meta() ProjectMeta {
	return ProjectMeta{
		ID:      p.ID,
		Title:   p.Title,
		Count:   len(p.Items),
		Updated: p.Updated,
	}
}
