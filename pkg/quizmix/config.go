package quizmix

import (
	"os"

	"golang.org/x/text/language"

	"github.com/himanishpuri/QuizMix/pkg/quizmix/audio"
	"github.com/himanishpuri/QuizMix/pkg/quizmix/storage"
)

type Config struct {
	DBPath            string
	TempDir           string
	SortLocale        language.Tag
	IngestConcurrency int
	MaxUploadBytes    int64
	Mix               audio.MixerConfig
	ExportName        string
	Logger            Logger
	Storage           Storage
	Prompts           PromptSource
	Mixer             Mixer
	Prober            Prober
	Notifier          Notifier
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithSortLocale(tag language.Tag) Option {
	return func(c *Config) {
		c.SortLocale = tag
	}
}

func WithIngestConcurrency(n int) Option {
	return func(c *Config) {
		c.IngestConcurrency = n
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(c *Config) {
		c.MaxUploadBytes = n
	}
}

// WithMixConfig replaces the settings used to build the default mixer.
func WithMixConfig(mc audio.MixerConfig) Option {
	return func(c *Config) {
		c.Mix = mc
	}
}

func WithOutputFormat(f audio.Format) Option {
	return func(c *Config) {
		c.Mix.Format = f
	}
}

// WithExportName sets the download name of a mix, without extension.
func WithExportName(name string) Option {
	return func(c *Config) {
		c.ExportName = name
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(s Storage) Option {
	return func(c *Config) {
		c.Storage = s
	}
}

func WithPromptSource(src PromptSource) Option {
	return func(c *Config) {
		c.Prompts = src
	}
}

func WithMixer(m Mixer) Option {
	return func(c *Config) {
		c.Mixer = m
	}
}

// WithProber enables the playability check before a preview is handed out.
func WithProber(p Prober) Option {
	return func(c *Config) {
		c.Prober = p
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *Config) {
		c.Notifier = n
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:            storage.MemoryDSN,
		TempDir:           os.TempDir(),
		SortLocale:        language.Und,
		IngestConcurrency: 4,
		MaxUploadBytes:    64 << 20,
		Mix:               audio.DefaultMixerConfig(),
		ExportName:        "quiz",
	}
}
