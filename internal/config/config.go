package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config enthält alle Konfigurationseinstellungen
type Config struct {
	// Server-Einstellungen
	ServerPort string `json:"server_port"`

	// Pfade
	DocumentsPath string `json:"documents_path"`
	DatabasePath  string `json:"database_path"`

	// LLM-Einstellungen
	Provider     string `json:"provider"` // "ollama" oder "gemini"
	OllamaURL    string `json:"ollama_url"`
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
	DefaultModel string `json:"default_model"`

	// Generierungs-Einstellungen
	BatchSize          int `json:"batch_size"`
	MaxAttempts        int `json:"max_attempts"`
	CallTimeoutSeconds int `json:"call_timeout_seconds"`
	TopKSegments       int `json:"top_k_segments"`
}

// Default gibt die Standardkonfiguration zurück
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		ServerPort:         "8080",
		DocumentsPath:      filepath.Join(homeDir, "Kursmaterial"),
		DatabasePath:       "kursgenerator.db",
		Provider:           "ollama",
		OllamaURL:          "http://localhost:11434",
		DefaultModel:       "qwen2.5:7b",
		BatchSize:          6,
		MaxAttempts:        3,
		CallTimeoutSeconds: 90,
		TopKSegments:       5,
	}
}

// Load lädt die Konfiguration aus einer Datei und überschreibt sie
// anschließend mit Umgebungsvariablen (eine .env im Arbeitsverzeichnis
// wird dabei berücksichtigt)
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save speichert die Konfiguration in eine Datei
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyEnv() {
	// .env ist optional
	godotenv.Load()

	setString(&c.ServerPort, "SERVER_PORT")
	setString(&c.DocumentsPath, "DOCUMENTS_PATH")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.Provider, "LLM_PROVIDER")
	setString(&c.OllamaURL, "OLLAMA_URL")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.DefaultModel, "DEFAULT_MODEL")
	setInt(&c.BatchSize, "BATCH_SIZE")
	setInt(&c.MaxAttempts, "MAX_ATTEMPTS")
	setInt(&c.CallTimeoutSeconds, "CALL_TIMEOUT_SECONDS")
	setInt(&c.TopKSegments, "TOP_K_SEGMENTS")
}

func setString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func setInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*target = n
		}
	}
}
