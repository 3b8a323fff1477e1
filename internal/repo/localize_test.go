package repo

import (
	"path/filepath"
	"testing"

	"modelcore/internal/status"
)

func TestLocalLocalizer(t *testing.T) {
	dir := t.TempDir()
	lp, err := LocalLocalizer{}.Localize(dir)
	if err != nil {
		t.Fatalf("localize: %v", err)
	}
	defer lp.Close()
	if lp.Path() != dir {
		t.Fatalf("path = %s, want %s", lp.Path(), dir)
	}
	if _, err := (LocalLocalizer{}).Localize(filepath.Join(dir, "missing")); !status.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
