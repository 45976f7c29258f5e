package serverselect

import (
	"testing"

	"github.com/launchkit-dev/launchkit/internal/cli/config"
	"github.com/launchkit-dev/launchkit/internal/cli/userconfig"
)

func testConfig() *config.Config {
	return &config.Config{Servers: []config.Server{
		{URL: "http://localhost:8080", Alias: "local"},
		{URL: "https://app.example.com", Alias: "prod"},
	}}
}

func TestResolveServer_AliasWins(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := userconfig.SetSelectedServer("http://localhost:8080"); err != nil {
		t.Fatal(err)
	}

	server, err := ResolveServer(testConfig(), "prod")
	if err != nil {
		t.Fatalf("ResolveServer() error = %v", err)
	}
	if server.URL != "https://app.example.com" {
		t.Errorf("got %q, want prod server", server.URL)
	}
}

func TestResolveServer_UsesSelection(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := userconfig.SetSelectedServer("https://app.example.com"); err != nil {
		t.Fatal(err)
	}

	server, err := ResolveServer(testConfig(), "")
	if err != nil {
		t.Fatalf("ResolveServer() error = %v", err)
	}
	if server.Alias != "prod" {
		t.Errorf("got %q, want prod", server.Alias)
	}
}

func TestResolveServer_SingleServerIsSelected(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	// A stale selection is cleared and the only server is used
	if err := userconfig.SetSelectedServer("http://gone.example.com"); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Servers: []config.Server{{URL: "http://localhost:8080", Alias: "local"}}}
	server, err := ResolveServer(cfg, "")
	if err != nil {
		t.Fatalf("ResolveServer() error = %v", err)
	}
	if server.Alias != "local" {
		t.Errorf("got %q, want local", server.Alias)
	}

	selected, err := userconfig.GetSelectedServer()
	if err != nil {
		t.Fatal(err)
	}
	if selected != "http://localhost:8080" {
		t.Errorf("selected server = %q, want it persisted", selected)
	}
}

func TestResolveServer_UnknownAlias(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, err := ResolveServer(testConfig(), "staging"); err == nil {
		t.Fatal("expected error for unknown alias")
	}
}

func TestGetServerByURLOrAlias(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		in   string
		want string
	}{
		{in: "http://localhost:8080", want: "local"},
		{in: "localhost:8080", want: "local"},
		{in: "https://app.example.com/", want: "prod"},
		{in: "prod", want: "prod"},
	}
	for _, tt := range tests {
		server, err := GetServerByURLOrAlias(cfg, tt.in)
		if err != nil {
			t.Errorf("GetServerByURLOrAlias(%q) error = %v", tt.in, err)
			continue
		}
		if server.Alias != tt.want {
			t.Errorf("GetServerByURLOrAlias(%q) = %q, want %q", tt.in, server.Alias, tt.want)
		}
	}

	if _, err := GetServerByURLOrAlias(cfg, "staging"); err == nil {
		t.Error("expected error for unknown server")
	}
}
