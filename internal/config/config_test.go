package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filedb.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeConfig(t, `
directory: /srv/databases
extension: db
id_format: ksid
log_level: debug
watch_interval: 250ms
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		want := Config{
			Directory:     "/srv/databases",
			Extension:     "db",
			IDFormat:      IDFormatKSID,
			LogLevel:      "debug",
			WatchInterval: "250ms",
		}
		if *cfg != want {
			t.Errorf("Load() = %+v, want %+v", *cfg, want)
		}
		if cfg.Level() != slog.LevelDebug {
			t.Errorf("Level() = %v, want debug", cfg.Level())
		}
		opts, err := cfg.Options(nil)
		if err != nil {
			t.Fatalf("Options() error = %v", err)
		}
		if opts.Directory != "/srv/databases" || opts.Extension != "db" {
			t.Errorf("Options() = %+v", opts)
		}
		if opts.WatchInterval != 250*time.Millisecond {
			t.Errorf("WatchInterval = %v, want 250ms", opts.WatchInterval)
		}
		if opts.NewID == nil {
			t.Error("NewID = nil, want ksid generator")
		}
	})

	t.Run("defaults", func(t *testing.T) {
		for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml"), writeConfig(t, "")} {
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load(%q) error = %v", path, err)
			}
			if *cfg != (Config{}) {
				t.Errorf("Load(%q) = %+v, want zero", path, *cfg)
			}
			if cfg.Level() != slog.LevelInfo {
				t.Errorf("Level() = %v, want info", cfg.Level())
			}
			opts, err := cfg.Options(nil)
			if err != nil {
				t.Fatal(err)
			}
			if opts.NewID != nil {
				t.Error("NewID set, want default")
			}
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
		}{
			{"unknown field", "directory: x\ncolor: blue\n"},
			{"bad yaml", "directory: [x\n"},
			{"bad id format", "id_format: uuid\n"},
			{"bad log level", "log_level: verbose\n"},
			{"bad interval", "watch_interval: soon\n"},
			{"negative interval", "watch_interval: -1s\n"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := Load(writeConfig(t, tt.content)); err == nil {
					t.Error("Load() expected error, got nil")
				}
			})
		}
	})
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	var schema struct {
		Properties map[string]struct {
			Enum []string `json:"enum"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("Schema() is not JSON: %v", err)
	}
	for _, name := range []string{"directory", "extension", "id_format", "log_level", "watch_interval"} {
		if _, ok := schema.Properties[name]; !ok {
			t.Errorf("Schema() missing property %q", name)
		}
	}
	if got := schema.Properties["id_format"].Enum; len(got) != 2 {
		t.Errorf("id_format enum = %v, want [hex ksid]", got)
	}
}
