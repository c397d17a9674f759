package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HANK_CONFIG", "PORT", "TODO_PATH", "CRON_PATH", "FAMILY_PATH", "PUBLIC_DIR",
		"LOG_FORMAT", "REDIS_URL", "REDIS_CHANNEL", "AUTH_SECRET", "AUTH_JWKS_URL",
		"AUTH_AUDIENCE", "AUTH_ISSUER", "DEBUG", "SUBSCRIBER_BUFFER", "SHUTDOWN_TIMEOUT",
		"STORAGE_CONNECTION_STRING", "BOARD_TABLE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "3456" || cfg.ListenAddr() != ":3456" {
		t.Fatalf("unexpected port %q", cfg.Port)
	}
	if !strings.HasSuffix(cfg.TodoPath, filepath.Join(".openclaw", "workspace", "TODO.md")) {
		t.Fatalf("unexpected todo path %q", cfg.TodoPath)
	}
	if cfg.Redis.Channel != "board-events" || cfg.Redis.URL != "" {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
	if cfg.Auth.Enabled() {
		t.Fatalf("auth should be off by default")
	}
	if cfg.Storage.ConnectionString != "" || cfg.Storage.Table != DefaultBoardTable {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "board.toml")
	content := `
port = "8080"
todo_path = "/data/TODO.md"
shutdown_timeout = "10s"

[storage]
connection_string = "UseDevelopmentStorage=true"

[redis]
url = "redis://localhost:6379/0"

[auth]
secret = "from-file"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HANK_CONFIG", path)
	t.Setenv("PORT", "9090")
	t.Setenv("DEBUG", "true")
	t.Setenv("BOARD_TABLE", "Family")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("env should override file, got %q", cfg.Port)
	}
	if cfg.TodoPath != "/data/TODO.md" {
		t.Fatalf("unexpected todo path %q", cfg.TodoPath)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected shutdown timeout %v", cfg.ShutdownTimeout)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" || cfg.Redis.Channel != "board-events" {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
	if cfg.Storage.ConnectionString != "UseDevelopmentStorage=true" || cfg.Storage.Table != "Family" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if !cfg.Debug || !cfg.Auth.Enabled() {
		t.Fatalf("expected debug and auth enabled: %+v", cfg)
	}
}

func TestLoadDefaultFileFromWorkingDir(t *testing.T) {
	clearEnv(t)
	if err := os.WriteFile(DefaultFile, []byte(`public_dir = "web"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PublicDir != "web" {
		t.Fatalf("unexpected public dir %q", cfg.PublicDir)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"missing explicit file": {"HANK_CONFIG": "/nonexistent/hank.toml"},
		"bad debug":             {"DEBUG": "sometimes"},
		"bad buffer":            {"SUBSCRIBER_BUFFER": "lots"},
		"zero buffer":           {"SUBSCRIBER_BUFFER": "0"},
		"bad timeout":           {"SHUTDOWN_TIMEOUT": "soon"},
		"bad log format":        {"LOG_FORMAT": "xml"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadRejectsEmptyBoardTable(t *testing.T) {
	clearEnv(t)
	content := "[storage]\nconnection_string = \"UseDevelopmentStorage=true\"\ntable = \"\"\n"
	if err := os.WriteFile(DefaultFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected error for empty table name")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	if err := os.WriteFile(DefaultFile, []byte(`port = `), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), DefaultFile) {
		t.Fatalf("expected file error, got %v", err)
	}
}
