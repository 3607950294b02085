package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/himanishpuri/QuizMix/pkg/quizmix/audio"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/storage"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Storage.DBPath != storage.MemoryDSN {
		t.Errorf("default db should be in memory, got %s", cfg.Storage.DBPath)
	}

	mc := cfg.MixerConfig()
	if mc.PadOffset != time.Second || mc.PadDuration != time.Second {
		t.Errorf("default padding = %v/%v, want 1s/1s", mc.PadOffset, mc.PadDuration)
	}
	if mc.Format != audio.FormatMP3 {
		t.Errorf("default format = %s", mc.Format)
	}
}

func TestLoadTOMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := writeFile(t, dir, "custom.toml", `
[server]
port = 9000
allowed_origins = ["http://localhost:4200"]

[audio]
format = "wav"
pad_seconds = 0.5

[prompts]
location = "https://cdn.example.com/question"
`)
	t.Setenv("QUIZMIX_PORT", "9100")
	t.Setenv("QUIZMIX_SORT_LOCALE", "fr")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env should override file: port = %d", cfg.Server.Port)
	}
	if !slices.Equal(cfg.Server.AllowedOrigins, []string{"http://localhost:4200"}) {
		t.Errorf("origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Audio.Format != "wav" || cfg.Audio.PadSeconds != 0.5 || cfg.Audio.PadOffset != 1 {
		t.Errorf("unexpected audio config %+v", cfg.Audio)
	}
	if cfg.Ingest.SortLocale != "fr" {
		t.Errorf("sort locale = %s", cfg.Ingest.SortLocale)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "QUIZMIX_DB_PATH=data/quizmix.sqlite3\nQUIZMIX_FORMAT=wav\n")

	// godotenv never overrides variables that are already set.
	t.Setenv("QUIZMIX_FORMAT", "mp3")
	t.Cleanup(func() { os.Unsetenv("QUIZMIX_DB_PATH") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DBPath != "data/quizmix.sqlite3" {
		t.Errorf("db path = %s", cfg.Storage.DBPath)
	}
	if cfg.Audio.Format != "mp3" {
		t.Errorf("format = %s, the process env should win", cfg.Audio.Format)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := Load(""); err != nil {
		t.Errorf("implicit config file is optional, got %v", err)
	}
	if _, err := Load("nope.toml"); err == nil {
		t.Error("explicit config file must exist")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "bad.toml", "[audio]\nsampel_rate = 44100\n")

	if _, err := Load(path); err == nil {
		t.Error("expected an error for a misspelled key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"format", func(c *Config) { c.Audio.Format = "ogg" }, "unsupported output format"},
		{"channels", func(c *Config) { c.Audio.Channels = 6 }, "audio.channels"},
		{"padding", func(c *Config) { c.Audio.PadSeconds = -1 }, "padding"},
		{"locale", func(c *Config) { c.Ingest.SortLocale = "not a locale!" }, "sort_locale"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"request cap", func(c *Config) { c.Server.MaxRequestMB = 8; c.Ingest.MaxUploadMB = 64 }, "max_request_mb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnvReportsBadNumbers(t *testing.T) {
	env := map[string]string{
		"QUIZMIX_PORT":       "eighty",
		"QUIZMIX_PAD_OFFSET": "1.5",
	}
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err == nil || !strings.Contains(err.Error(), "QUIZMIX_PORT") {
		t.Errorf("expected a QUIZMIX_PORT error, got %v", err)
	}
	if cfg.Audio.PadOffset != 1.5 {
		t.Errorf("valid values should still apply, pad offset = %v", cfg.Audio.PadOffset)
	}
}

func TestApplyEnvUploadLimits(t *testing.T) {
	env := map[string]string{
		"QUIZMIX_MAX_REQUEST_MB": "256",
		"QUIZMIX_MAX_UPLOAD_MB":  "16",
	}
	cfg := Default()
	if err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Server.MaxRequestMB != 256 || cfg.Ingest.MaxUploadMB != 16 {
		t.Errorf("limits = %d/%d, want 256/16", cfg.Server.MaxRequestMB, cfg.Ingest.MaxUploadMB)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" http://a.com, ,http://b.com ")
	want := []string{"http://a.com", "http://b.com"}
	if !slices.Equal(got, want) {
		t.Errorf("SplitList = %v, want %v", got, want)
	}
}

func TestServiceOptions(t *testing.T) {
	cfg := Default()
	cfg.Prompts.Location = t.TempDir()

	opts, err := cfg.ServiceOptions(nil)
	if err != nil {
		t.Fatalf("ServiceOptions: %v", err)
	}
	// base options, prober, prompt source
	if len(opts) != 9 {
		t.Errorf("expected 9 options, got %d", len(opts))
	}

	cfg.Prompts.Location = filepath.Join(t.TempDir(), "missing")
	opts, err = cfg.ServiceOptions(nil)
	if err != nil {
		t.Fatalf("a missing prompt directory should not fail: %v", err)
	}
	if len(opts) != 8 {
		t.Errorf("expected the prompt source to be skipped, got %d options", len(opts))
	}
}
