package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeServerURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "bare host", raw: "localhost:8080", want: "http://localhost:8080"},
		{name: "https with trailing slash", raw: "https://app.example.com/", want: "https://app.example.com"},
		{name: "surrounding whitespace", raw: "  http://10.0.0.5  ", want: "http://10.0.0.5"},
		{name: "empty", raw: "", wantErr: true},
		{name: "unsupported scheme", raw: "ftp://example.com", wantErr: true},
		{name: "missing host", raw: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeServerURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeServerURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg := &Config{Servers: []Server{
		{URL: "http://localhost:8080", Alias: "local"},
		{URL: "https://app.example.com", Alias: "prod"},
	}}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(loaded.Servers))
	}
	if loaded.Servers[1].URL != "https://app.example.com" {
		t.Errorf("unexpected second server: %+v", loaded.Servers[1])
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFindConfigFile_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := Save(filepath.Join(root, ConfigFileName), &Config{}); err != nil {
		t.Fatal(err)
	}

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	if err := os.Chdir(nested); err != nil {
		t.Fatal(err)
	}

	found, err := FindConfigFile()
	if err != nil {
		t.Fatalf("FindConfigFile() error = %v", err)
	}

	// Resolve symlinks so macOS /private/var paths compare equal
	want, _ := filepath.EvalSymlinks(filepath.Join(root, ConfigFileName))
	got, _ := filepath.EvalSymlinks(found)
	if got != want {
		t.Errorf("FindConfigFile() = %q, want %q", got, want)
	}
}

func TestServerLookups(t *testing.T) {
	cfg := &Config{Servers: []Server{
		{URL: "http://localhost:8080", Alias: "local"},
		{URL: "https://app.example.com", Alias: "prod"},
	}}

	s, err := cfg.GetServerByAlias("prod")
	if err != nil || s.URL != "https://app.example.com" {
		t.Errorf("GetServerByAlias(prod) = %+v, %v", s, err)
	}
	if _, err := cfg.GetServerByAlias("staging"); err == nil {
		t.Error("expected error for unknown alias")
	}

	s, err = cfg.GetServerByURL("http://localhost:8080")
	if err != nil || s.Alias != "local" {
		t.Errorf("GetServerByURL = %+v, %v", s, err)
	}

	s, err = cfg.GetDefaultServer()
	if err != nil || s.Alias != "local" {
		t.Errorf("GetDefaultServer = %+v, %v", s, err)
	}

	empty := &Config{}
	if _, err := empty.GetDefaultServer(); err == nil {
		t.Error("expected error for empty server list")
	}
}
