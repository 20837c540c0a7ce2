package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where teamlens stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the url of your teamlens instance.
	InstanceURL string

	// AI Configuration
	AIEnabled        bool   // TEAMLENS_AI_ENABLED
	AIBaseURL        string // TEAMLENS_AI_BASE_URL (default: https://api.openai.com/v1)
	AIAPIKey         string // TEAMLENS_AI_API_KEY
	AIChatModel      string // TEAMLENS_AI_CHAT_MODEL (default: gpt-4o-mini)
	AIEmbeddingModel string // TEAMLENS_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from TEAMLENS_* environment variables.
// Empty values are skipped so flag-provided values and defaults survive.
func (p *Profile) FromEnv() {
	if v := os.Getenv("TEAMLENS_MODE"); v != "" {
		p.Mode = v
	}
	if v := os.Getenv("TEAMLENS_DRIVER"); v != "" {
		p.Driver = v
	}
	if v := os.Getenv("TEAMLENS_DSN"); v != "" {
		p.DSN = v
	}
	if v := os.Getenv("TEAMLENS_DATA"); v != "" {
		p.Data = v
	}

	if os.Getenv("TEAMLENS_AI_ENABLED") == "true" {
		p.AIEnabled = true
	}
	p.AIBaseURL = getEnvOrDefault("TEAMLENS_AI_BASE_URL", valueOr(p.AIBaseURL, "https://api.openai.com/v1"))
	if v := os.Getenv("TEAMLENS_AI_API_KEY"); v != "" {
		p.AIAPIKey = v
	}
	p.AIChatModel = getEnvOrDefault("TEAMLENS_AI_CHAT_MODEL", valueOr(p.AIChatModel, "gpt-4o-mini"))
	p.AIEmbeddingModel = getEnvOrDefault("TEAMLENS_AI_EMBEDDING_MODEL", valueOr(p.AIEmbeddingModel, "text-embedding-3-small"))
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "teamlens")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/teamlens"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("teamlens_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
