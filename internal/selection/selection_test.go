package selection

import (
	"context"
	"testing"

	"shoplist-core/internal/models"
	"shoplist-core/internal/store"
)

func TestToggleTracksMode(t *testing.T) {
	s := NewSet()

	if s.Active() {
		t.Fatal("fresh selection should be inactive")
	}

	s.Toggle("a")
	if !s.Active() || s.Count() != 1 || !s.Has("a") {
		t.Error("expected active selection with id a")
	}

	s.Toggle("a")
	if s.Active() || s.Count() != 0 {
		t.Error("deselecting the last id should leave selection mode")
	}
}

func TestEnterWithoutSelecting(t *testing.T) {
	s := NewSet()
	s.Enter()

	if !s.Active() {
		t.Error("expected selection mode on")
	}
	if s.Count() != 0 {
		t.Errorf("count = %d, want 0", s.Count())
	}
}

func TestExitClears(t *testing.T) {
	s := NewSet()
	s.Toggle("a")
	s.Toggle("b")

	s.Exit()

	if s.Active() || s.Count() != 0 || s.Has("a") {
		t.Error("expected inactive empty selection after exit")
	}
}

func TestToggleAll(t *testing.T) {
	s := NewSet()
	all := []string{"a", "b", "c"}

	s.ToggleAll(all)
	if s.Count() != 3 {
		t.Fatalf("count = %d, want 3", s.Count())
	}

	// All selected: a second toggle clears.
	s.ToggleAll(all)
	if s.Count() != 0 {
		t.Errorf("count = %d, want 0 after clearing toggle", s.Count())
	}
}

func TestToggleAllCompletesPartialSelection(t *testing.T) {
	s := NewSet()
	s.Toggle("a")

	s.ToggleAll([]string{"a", "b", "c"})
	if s.Count() != 3 {
		t.Errorf("count = %d, want 3", s.Count())
	}
}

func TestIDsReturnsCopy(t *testing.T) {
	s := NewSet()
	s.Toggle("a")

	ids := s.IDs()
	ids["b"] = true

	if s.Has("b") {
		t.Error("mutating the returned set leaked into the selection")
	}
}

func TestClipboardRoundTrip(t *testing.T) {
	c := NewClipboard(store.NewMemory())
	ctx := context.Background()

	err := c.Put(ctx, []models.ProductRecord{
		{ID: "a", Title: "Lamp", Image: "data:image/jpeg;base64,xxxx"},
		{ID: "b", Title: "Chair"},
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	items, fresh, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !fresh {
		t.Error("expected fresh clipboard after put")
	}
	if len(items) != 2 || items[0].Title != "Lamp" || items[0].Image != "data:image/jpeg;base64,xxxx" {
		t.Errorf("unexpected clipboard contents: %+v", items)
	}
}

func TestClipboardEmpty(t *testing.T) {
	c := NewClipboard(store.NewMemory())

	items, fresh, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(items) != 0 || fresh {
		t.Errorf("expected empty stale clipboard, got %d items fresh=%v", len(items), fresh)
	}
}

func TestMarkStaleKeepsContents(t *testing.T) {
	c := NewClipboard(store.NewMemory())
	ctx := context.Background()

	c.Put(ctx, []models.ProductRecord{{ID: "a", Title: "Lamp"}})
	if err := c.MarkStale(ctx); err != nil {
		t.Fatalf("MarkStale failed: %v", err)
	}

	items, fresh, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if fresh {
		t.Error("expected stale clipboard")
	}
	if len(items) != 1 {
		t.Errorf("items = %d, want contents preserved", len(items))
	}
}
