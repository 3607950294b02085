// Package config loads QuizMix settings. Later sources win: built-in
// defaults, an optional TOML file, a .env file, then QUIZMIX_* environment
// variables. Command-line flags are applied by the binaries on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/himanishpuri/QuizMix/pkg/quizmix"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/audio"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/prompts"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/storage"
)

const envPrefix = "QUIZMIX_"

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Audio   AudioConfig   `toml:"audio"`
	Prompts PromptsConfig `toml:"prompts"`
	Ingest  IngestConfig  `toml:"ingest"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	LogRequests    bool     `toml:"log_requests"`
	// MaxRequestMB caps a whole upload request. Single files are held to
	// ingest.max_upload_mb and rejected one by one.
	MaxRequestMB int64 `toml:"max_request_mb"`
}

type StorageConfig struct {
	DBPath  string `toml:"db_path"`
	TempDir string `toml:"temp_dir"`
}

type AudioConfig struct {
	SampleRate int     `toml:"sample_rate"`
	Channels   int     `toml:"channels"`
	Format     string  `toml:"format"`
	Bitrate    string  `toml:"bitrate"`
	PadOffset  float64 `toml:"pad_offset"`  // seconds
	PadSeconds float64 `toml:"pad_seconds"` // seconds
	ExportName string  `toml:"export_name"`
}

type PromptsConfig struct {
	// Location is a directory or an http(s) base URL holding question-<n>.mp3.
	Location string `toml:"location"`
}

type IngestConfig struct {
	Concurrency  int    `toml:"concurrency"`
	MaxUploadMB  int64  `toml:"max_upload_mb"`
	SortLocale   string `toml:"sort_locale"`
	ProbePreview bool   `toml:"probe_preview"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	NoColor bool   `toml:"no_color"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
			MaxRequestMB:   512,
		},
		Storage: StorageConfig{
			DBPath:  storage.MemoryDSN,
			TempDir: os.TempDir(),
		},
		Audio: AudioConfig{
			SampleRate: audio.DefaultSampleRate,
			Channels:   audio.DefaultChannels,
			Format:     string(audio.FormatMP3),
			Bitrate:    audio.DefaultBitrate,
			PadOffset:  1,
			PadSeconds: 1,
			ExportName: "quiz",
		},
		Prompts: PromptsConfig{Location: "assets/question"},
		Ingest: IngestConfig{
			Concurrency:  4,
			MaxUploadMB:  64,
			SortLocale:   "und",
			ProbePreview: true,
		},
		Log: LogConfig{Level: "INFO"},
	}
}

// Load builds the configuration. path may be empty, in which case
// QUIZMIX_CONFIG names the file; a missing file is only an error when it was
// asked for explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = os.Getenv(envPrefix + "CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = "quizmix.toml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	flt := func(key string, dst *float64) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	mb := func(key string, dst *int64) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	num("PORT", &c.Server.Port)
	if v, ok := lookup(envPrefix + "ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = SplitList(v)
	}
	boolean("LOG_REQUESTS", &c.Server.LogRequests)
	mb("MAX_REQUEST_MB", &c.Server.MaxRequestMB)
	str("DB_PATH", &c.Storage.DBPath)
	str("TEMP_DIR", &c.Storage.TempDir)
	num("SAMPLE_RATE", &c.Audio.SampleRate)
	num("CHANNELS", &c.Audio.Channels)
	str("FORMAT", &c.Audio.Format)
	str("BITRATE", &c.Audio.Bitrate)
	flt("PAD_OFFSET", &c.Audio.PadOffset)
	flt("PAD_SECONDS", &c.Audio.PadSeconds)
	str("EXPORT_NAME", &c.Audio.ExportName)
	str("PROMPTS", &c.Prompts.Location)
	num("INGEST_CONCURRENCY", &c.Ingest.Concurrency)
	mb("MAX_UPLOAD_MB", &c.Ingest.MaxUploadMB)
	str("SORT_LOCALE", &c.Ingest.SortLocale)
	boolean("PROBE_PREVIEW", &c.Ingest.ProbePreview)
	str("LOG_LEVEL", &c.Log.Level)
	boolean("NO_COLOR", &c.Log.NoColor)

	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxRequestMB > 0 && c.Ingest.MaxUploadMB > c.Server.MaxRequestMB {
		errs = append(errs, fmt.Errorf("server.max_request_mb (%d) must not be below ingest.max_upload_mb (%d)",
			c.Server.MaxRequestMB, c.Ingest.MaxUploadMB))
	}
	if _, err := audio.ParseFormat(c.Audio.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels must be 1 or 2, got %d", c.Audio.Channels))
	}
	if c.Audio.SampleRate < 8000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d too low", c.Audio.SampleRate))
	}
	if c.Audio.PadOffset < 0 || c.Audio.PadSeconds < 0 {
		errs = append(errs, errors.New("audio padding must not be negative"))
	}
	if _, err := language.Parse(c.Ingest.SortLocale); err != nil {
		errs = append(errs, fmt.Errorf("ingest.sort_locale: %w", err))
	}
	if c.Ingest.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("ingest.concurrency must be positive, got %d", c.Ingest.Concurrency))
	}
	return errors.Join(errs...)
}

// MixerConfig converts the audio settings.
func (c *Config) MixerConfig() audio.MixerConfig {
	format, _ := audio.ParseFormat(c.Audio.Format)
	return audio.MixerConfig{
		PCM: audio.PCMConfig{
			SampleRate: c.Audio.SampleRate,
			Channels:   c.Audio.Channels,
			TempDir:    c.Storage.TempDir,
		},
		PadOffset:   seconds(c.Audio.PadOffset),
		PadDuration: seconds(c.Audio.PadSeconds),
		Format:      format,
		Bitrate:     c.Audio.Bitrate,
		Concurrency: c.Ingest.Concurrency,
	}
}

// ServiceOptions turns the configuration into service options. A prompt
// location that does not exist yet is not fatal; concatenation reports it.
func (c *Config) ServiceOptions(log quizmix.Logger) ([]quizmix.Option, error) {
	tag, err := language.Parse(c.Ingest.SortLocale)
	if err != nil {
		return nil, err
	}

	opts := []quizmix.Option{
		quizmix.WithDBPath(c.Storage.DBPath),
		quizmix.WithTempDir(c.Storage.TempDir),
		quizmix.WithSortLocale(tag),
		quizmix.WithIngestConcurrency(c.Ingest.Concurrency),
		quizmix.WithMaxUploadBytes(c.Ingest.MaxUploadMB << 20),
		quizmix.WithMixConfig(c.MixerConfig()),
		quizmix.WithExportName(c.Audio.ExportName),
	}
	if log != nil {
		opts = append(opts, quizmix.WithLogger(log))
	}
	if c.Ingest.ProbePreview {
		opts = append(opts, quizmix.WithProber(quizmix.ProbeFunc(audio.ProbeBytes)))
	}

	if c.Prompts.Location != "" {
		src, err := prompts.Open(c.Prompts.Location)
		if err != nil {
			if log != nil {
				log.Warnf("Prompt clips unavailable: %v", err)
			}
		} else {
			opts = append(opts, quizmix.WithPromptSource(src))
		}
	}
	return opts, nil
}

// SplitList splits a comma-separated flag or env value.
func SplitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
