package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/revq-dev/revq/internal/model"
)

func testProjects() []model.Project {
	return []model.Project{
		{ID: "42", Source: model.SourceGitLab, Name: "api", Namespace: "platform", URL: "https://git.example.com/platform/api"},
		{ID: "43", Source: model.SourceGitLab, Name: "web", Namespace: "platform", URL: "https://git.example.com/platform/web"},
	}
}

func TestPutAndGetProjects(t *testing.T) {
	c, err := New(true, t.TempDir(), 3600)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok := c.GetProjects(model.SourceGitLab); ok {
		t.Fatal("expected miss on empty cache")
	}

	if err := c.PutProjects(model.SourceGitLab, testProjects()); err != nil {
		t.Fatalf("PutProjects: %v", err)
	}

	got, ok := c.GetProjects(model.SourceGitLab)
	if !ok {
		t.Fatal("expected hit after put")
	}
	if len(got) != 2 || got[0].ID != "42" || got[1].Name != "web" {
		t.Errorf("unexpected projects: %+v", got)
	}

	// Each source gets its own entry.
	if _, ok := c.GetProjects(model.SourcePhabricator); ok {
		t.Error("phabricator entry should be independent of gitlab's")
	}
}

func TestGetProjects_Expired(t *testing.T) {
	dir := t.TempDir()
	c, err := New(true, dir, 60)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.PutProjects(model.SourceGitLab, testProjects()); err != nil {
		t.Fatalf("PutProjects: %v", err)
	}

	// Backdate the entry past the TTL.
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one cache file, got %d (err=%v)", len(entries), err)
	}
	path := filepath.Join(dir, entries[0].Name())
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var entry projectEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	entry.CreatedAt = time.Now().Add(-2 * time.Minute)
	data, _ = json.Marshal(entry)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, ok := c.GetProjects(model.SourceGitLab); ok {
		t.Error("expired entry should be a miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expired entry should be removed on read")
	}
}

func TestDisabledCache(t *testing.T) {
	c, err := New(false, "", 3600)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Enabled() {
		t.Error("Enabled() should be false")
	}
	if err := c.PutProjects(model.SourceGitLab, testProjects()); err != nil {
		t.Errorf("disabled put should be a no-op, got %v", err)
	}
	if _, ok := c.GetProjects(model.SourceGitLab); ok {
		t.Error("disabled cache should always miss")
	}
}

func TestClearAndStats(t *testing.T) {
	c, err := New(true, t.TempDir(), 3600)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.PutProjects(model.SourceGitLab, testProjects()); err != nil {
		t.Fatalf("PutProjects: %v", err)
	}
	if err := c.PutProjects(model.SourcePhabricator, nil); err != nil {
		t.Fatalf("PutProjects: %v", err)
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
	if stats.TotalBytes == 0 {
		t.Error("TotalBytes should be non-zero")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats, err = c.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries after clear = %d, want 0", stats.Entries)
	}
}
