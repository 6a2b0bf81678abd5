package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol).
	// All providers (openai, deepseek, zai, siliconflow, ollama) use the same config.
	LLMProvider string // Provider identifier: openai, deepseek, zai, siliconflow, ollama
	LLMAPIKey   string
	LLMBaseURL  string // Optional, has default per provider
	LLMModel    string // Model name: gpt-4o, deepseek-chat, etc.
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)

	// Calendar provider configuration.
	CalendarProvider string // "google" or "local"
	CredentialsFile  string // OAuth client credentials JSON (google provider)
	TokenFile        string // cached OAuth token JSON (google provider)

	// Telegram configuration. Empty token disables the channel.
	TelegramBotToken string

	// Ingestion pipeline configuration.
	IngestEnabled   bool
	IngestInterval  int // seconds between ingestion passes (default: 3600)
	LookbackDays    int // default window when the marker file is missing (default: 7)
	IncludeGmail    bool
	IncludeTelegram bool

	// Server configuration.
	Mode    string
	Addr    string
	Port    int
	Data    string // data directory: feedback log, marker file, sqlite db
	Driver  string // database driver for the local calendar store (sqlite, postgres)
	DSN     string
	Version string
}

// Provider default configurations for LLM.
// Used when LLM base URL or model is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// FeedbackLogPath returns the path of the feedback ledger file.
func (p *Profile) FeedbackLogPath() string {
	return filepath.Join(p.Data, "feedback_log.jsonl")
}

// MarkerPath returns the path of the ingestion last-read marker file.
func (p *Profile) MarkerPath() string {
	return filepath.Join(p.Data, "ingest_last_read.ts")
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultBool returns environment variable value as bool or default value.
func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("AIDE_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("AIDE_LLM_API_KEY", os.Getenv("OPENAI_API_KEY"))
	p.LLMBaseURL = getEnvOrDefault("AIDE_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("AIDE_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("AIDE_LLM_TIMEOUT_SECONDS", 120)

	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
			p.LLMProvider = "openai"
		}
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.CalendarProvider = getEnvOrDefault("AIDE_CALENDAR_PROVIDER", "local")
	p.CredentialsFile = getEnvOrDefault("AIDE_GOOGLE_CREDENTIALS_FILE", "credentials.json")
	p.TokenFile = getEnvOrDefault("AIDE_GOOGLE_TOKEN_FILE", "token.json")

	p.TelegramBotToken = getEnvOrDefault("AIDE_TELEGRAM_BOT_TOKEN", "")

	p.IngestEnabled = getEnvOrDefaultBool("AIDE_INGEST_ENABLED", false)
	p.IngestInterval = getEnvOrDefaultInt("AIDE_INGEST_INTERVAL_SECONDS", 3600)
	p.LookbackDays = getEnvOrDefaultInt("AIDE_INGEST_LOOKBACK_DAYS", 7)
	p.IncludeGmail = getEnvOrDefaultBool("AIDE_INGEST_INCLUDE_GMAIL", true)
	p.IncludeTelegram = getEnvOrDefaultBool("AIDE_INGEST_INCLUDE_TELEGRAM", true)
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
		p.Mode = "dev"
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.CalendarProvider != "google" && p.CalendarProvider != "local" {
		return errors.Errorf("unsupported calendar provider %q", p.CalendarProvider)
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("aide_%s.db", p.Mode))
	}
	if p.IngestInterval <= 0 {
		p.IngestInterval = 3600
	}
	if p.LookbackDays <= 0 {
		p.LookbackDays = 7
	}

	return nil
}
