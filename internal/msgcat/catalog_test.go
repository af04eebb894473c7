package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRenderEmbedded(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("queue.queued", map[string]any{"Mode": "team"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Queued for team…" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestRenderMissingKeyFallsBack(t *testing.T) {
	c := Default()
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if got := c.RenderOr("queue.queued", map[string]any{}, "fallback"); got != "fallback" {
		t.Fatalf("missing template field must fall back, got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("queue:\n  matched: \"Paired!\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.RenderOr("queue.matched", nil, ""); got != "Paired!" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.RenderOr("board.inactive", nil, ""); got != "Inactive" {
		t.Fatalf("defaults lost after override: %q", got)
	}
}

func TestOverrideDuplicateKeyRejected(t *testing.T) {
	dir := t.TempDir()
	body := []byte("board:\n  inactive: \"Idle\"\n")
	for _, n := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, n), body, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate override error")
	}
}
