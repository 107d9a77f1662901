package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
server:
  base_url: https://chat.example.com/api
auth:
  username: ana
  token: tok-123
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.Username != "ana" || cfg.Auth.Token != "tok-123" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default level = %q, want info", cfg.Logging.Level)
	}
}

func TestDerivedWSURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://chat.example.com/api", "wss://chat.example.com/ws"},
		{"http://localhost:3000/api", "ws://localhost:3000/ws"},
		{"https://chat.example.com", "wss://chat.example.com/ws"},
	}
	for _, tt := range tests {
		cfg := &Config{Server: ServerConfig{BaseURL: tt.base}}
		cfg.applyDefaults("config.yaml")
		if cfg.Server.WSURL != tt.want {
			t.Errorf("base %q: ws_url = %q, want %q", tt.base, cfg.Server.WSURL, tt.want)
		}
	}
}

func TestExplicitWSURLKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  base_url: https://chat.example.com/api
  ws_url: wss://other.example.com/stream
auth:
  username: ana
  token: tok-123
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.WSURL != "wss://other.example.com/stream" {
		t.Errorf("ws_url = %q", cfg.Server.WSURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COMPANYCHAT_TOKEN", "env-tok")
	t.Setenv("COMPANYCHAT_USERNAME", "bruno")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.Token != "env-tok" || cfg.Auth.Username != "bruno" {
		t.Errorf("auth = %+v, want env overrides applied", cfg.Auth)
	}
}

func TestCachePathDefaultsBesideConfig(t *testing.T) {
	path := writeConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(filepath.Dir(path), "cache.db"); cfg.Cache.Path != want {
		t.Errorf("cache path = %q, want %q", cfg.Cache.Path, want)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing base_url", "auth:\n  username: ana\n  token: t\n"},
		{"missing username", "server:\n  base_url: https://x/api\nauth:\n  token: t\n"},
		{"missing token", "server:\n  base_url: https://x/api\nauth:\n  username: ana\n"},
		{"bad log level", validConfig + "logging:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Neutralize ambient overrides so the file alone decides.
			t.Setenv("COMPANYCHAT_TOKEN", "")
			t.Setenv("COMPANYCHAT_USERNAME", "")
			if _, err := Load(writeConfig(t, tt.yaml)); err == nil {
				t.Error("Load = nil error, want validation failure")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of missing file = nil error")
	}
}
