package main

import (
	"flag"
	"os"

	"github.com/himanishpuri/QuizMix/internal/config"
	"github.com/himanishpuri/QuizMix/pkg/logger"
	"github.com/himanishpuri/QuizMix/pkg/quizmix"
)

var (
	configPath     string
	port           int
	dbPath         string
	tempDir        string
	promptsAt      string
	allowedOrigins string
	logRequests    bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to a TOML config file (default quizmix.toml if present)")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database, or :memory: (overrides config)")
	flag.StringVar(&tempDir, "temp", "", "Temporary directory (overrides config)")
	flag.StringVar(&promptsAt, "prompts", "", "Directory or base URL of question-<n>.mp3 clips (overrides config)")
	flag.StringVar(&allowedOrigins, "origins", "", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.BoolVar(&logRequests, "log-requests", false, "Log every HTTP request")
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg)

	log.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.NoColor {
		log.SetColorize(false)
	}

	opts, err := cfg.ServiceOptions(log.With("quizmix"))
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	service, err := quizmix.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:            cfg.Server.Port,
		DBPath:          cfg.Storage.DBPath,
		MaxRequestBytes: cfg.Server.MaxRequestMB << 20,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		LogRequests:     cfg.Server.LogRequests,
	})
	if err := server.Start(); err != nil {
		log.Errorf("Server failed: %v", err)
		service.Close()
		os.Exit(1)
	}
}

// applyFlags lets explicitly set flags win over the loaded configuration.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = port
		case "db":
			cfg.Storage.DBPath = dbPath
		case "temp":
			cfg.Storage.TempDir = tempDir
		case "prompts":
			cfg.Prompts.Location = promptsAt
		case "origins":
			cfg.Server.AllowedOrigins = config.SplitList(allowedOrigins)
		case "log-requests":
			cfg.Server.LogRequests = logRequests
		}
	})
}
