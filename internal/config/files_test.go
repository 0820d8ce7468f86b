package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveSources(t *testing.T) {
	root := t.TempDir()
	top := filepath.Join(root, "soc.design.yaml")
	nested := filepath.Join(root, "blocks", "dma", "dma.design.toml")
	old := filepath.Join(root, "old", "legacy.design.json")
	hidden := filepath.Join(root, ".hdlgen_cache", "stale.design.yaml")
	notDesign := filepath.Join(root, "blocks", "notes.yaml")
	for _, f := range []string{top, nested, old, hidden, notDesign} {
		writeFile(t, f, "{}")
	}

	cfg := DefaultConfig()
	cfg.Sources.Exclude = []string{"old/*"}

	files, err := cfg.ResolveSources(root)
	if err != nil {
		t.Fatalf("ResolveSources: %v", err)
	}

	want := []string{nested, top}
	if len(files) != len(want) {
		t.Fatalf("ResolveSources() = %v, want %v", files, want)
	}
	for i := range want {
		if filepath.Clean(files[i]) != filepath.Clean(want[i]) {
			t.Errorf("file %d = %s, want %s", i, files[i], want[i])
		}
	}
}

func TestMatchSuffix(t *testing.T) {
	tests := []struct {
		rel     string
		pattern string
		want    bool
	}{
		{"a/b/top.design.yaml", "*.design.yaml", true},
		{"top.design.yaml", "*.design.yaml", true},
		{"a/b/top.yaml", "*.design.yaml", false},
		{"a/rtl/top.design.yaml", filepath.Join("rtl", "*.design.yaml"), true},
		{"a/sim/top.design.yaml", filepath.Join("rtl", "*.design.yaml"), false},
		{"top.design.yaml", filepath.Join("rtl", "*.design.yaml"), false},
	}
	for _, tt := range tests {
		rel := filepath.FromSlash(tt.rel)
		if got := matchSuffix(rel, tt.pattern); got != tt.want {
			t.Errorf("matchSuffix(%q, %q) = %v, want %v", rel, tt.pattern, got, tt.want)
		}
	}
}
