package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Engine.DefaultFormat != "standard" || cfg.Engine.ArchetypeMargin != 15 {
		t.Errorf("engine defaults = %+v", cfg.Engine)
	}
	if cfg.OptimizerTimeout() != 30*time.Second {
		t.Errorf("OptimizerTimeout() = %v", cfg.OptimizerTimeout())
	}
	if cfg.MetaTTL() != 4*time.Hour || cfg.MetaRateInterval() != time.Second {
		t.Errorf("meta durations = %v, %v", cfg.MetaTTL(), cfg.MetaRateInterval())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load() of missing file error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("missing file should give defaults, port = %d", cfg.Server.Port)
	}

	path := filepath.Join(dir, "config.toml")
	content := `
[engine]
default_format = "expanded"

[optimizer]
max_changes = 3

[meta]
source = "static"
file = "meta.yaml"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.DefaultFormat != "expanded" || cfg.Optimizer.MaxChanges != 3 || cfg.Meta.Source != MetaSourceStatic {
		t.Errorf("loaded config = %+v", cfg)
	}
	if cfg.Engine.ArchetypeMargin != 15 || cfg.Optimizer.Timeout != "30s" {
		t.Error("keys missing from the file should keep their defaults")
	}

	if err := os.WriteFile(path, []byte("[engine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.Server.Port = 9090
	cfg.App.DebugMode = true
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Server.Port != 9090 || !got.App.DebugMode {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative margin", func(c *Config) { c.Engine.ArchetypeMargin = -1 }},
		{"negative cache", func(c *Config) { c.Engine.CacheSize = -1 }},
		{"zero max changes", func(c *Config) { c.Optimizer.MaxChanges = 0 }},
		{"zero pool", func(c *Config) { c.Optimizer.MaxPool = 0 }},
		{"negative parallelism", func(c *Config) { c.Optimizer.Parallelism = -2 }},
		{"bad timeout", func(c *Config) { c.Optimizer.Timeout = "soon" }},
		{"short backup interval", func(c *Config) { c.Storage.BackupInterval = "5s" }},
		{"negative backup keep", func(c *Config) { c.Storage.BackupKeep = -1 }},
		{"unknown meta source", func(c *Config) { c.Meta.Source = "carrier-pigeon" }},
		{"static without file", func(c *Config) { c.Meta.Source = MetaSourceStatic }},
		{"http without url", func(c *Config) { c.Meta.Source = MetaSourceHTTP }},
		{"bad ttl", func(c *Config) { c.Meta.TTL = "forever" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log format", func(c *Config) { c.App.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(c *Config) { reloaded <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	cfg := DefaultConfig()
	cfg.Server.Port = 9191
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-reloaded:
		if got.Server.Port != 9191 {
			t.Errorf("reloaded port = %d, want 9191", got.Server.Port)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}
