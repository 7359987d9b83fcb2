package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full embel server configuration. Values come from the
// YAML file with env overrides on top; see applyEnv.
type Config struct {
	Listen       string `yaml:"listen"`
	DBPath       string `yaml:"db_path"`
	ArtifactsDir string `yaml:"artifacts_dir"`
	JWTSecret    string `yaml:"jwt_secret"`
	LogLevel     string `yaml:"log_level"`

	Engine EngineConfig `yaml:"engine"`
	Export ExportConfig `yaml:"export"`
	Drive  DriveConfig  `yaml:"drive"`
	MCP    MCPConfig    `yaml:"mcp"`
	Worker WorkerConfig `yaml:"worker"`
}

// EngineConfig selects and configures the AI engines. Every engine with an
// API key is registered; Default names the one the pipeline uses.
type EngineConfig struct {
	Default string       `yaml:"default"`
	OpenAI  OpenAIConfig `yaml:"openai"`
	Gemini  GeminiConfig `yaml:"gemini"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// ExportConfig configures PDF compilation. Local pdflatex is tried first
// when present; the remote service is the fallback.
type ExportConfig struct {
	PdflatexBinary   string `yaml:"pdflatex_binary"`
	RemoteCompileURL string `yaml:"remote_compile_url"`
}

// DriveConfig points the cloud-storage bridge at the provider. An empty
// client_id disables the bridge entirely.
type DriveConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
	ContentURL   string `yaml:"content_url"`
	Folder       string `yaml:"folder"`
}

// MCPConfig enables the MCP tool surface. Sessions are single-user; UserID
// is the identity every tool call runs as.
type MCPConfig struct {
	Transport string `yaml:"transport"` // "stdio" or empty
	UserID    string `yaml:"user_id"`
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:       ":8080",
		DBPath:       "db/embel.db",
		ArtifactsDir: "data/artifacts",
		LogLevel:     "info",
		Engine: EngineConfig{
			Default: "openai",
		},
		Drive: DriveConfig{
			Folder: "Embel",
		},
		Worker: WorkerConfig{Concurrency: 4},
	}
}

// LoadConfig reads and parses a YAML config file merged over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv layers environment overrides over the file values. Env wins so
// deployments can keep secrets out of the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("ARTIFACTS_DIR"); v != "" {
		c.ArtifactsDir = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ENGINE"); v != "" {
		c.Engine.Default = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Engine.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Engine.Gemini.APIKey = v
	}
	if v := os.Getenv("REMOTE_COMPILE_URL"); v != "" {
		c.Export.RemoteCompileURL = v
	}
	if v := os.Getenv("MCP_TRANSPORT"); v != "" {
		c.MCP.Transport = v
	}
	if v := os.Getenv("MCP_USER_ID"); v != "" {
		c.MCP.UserID = v
	}
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required (or set JWT_SECRET)")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.ArtifactsDir == "" {
		return fmt.Errorf("artifacts_dir is required")
	}
	if c.Engine.OpenAI.APIKey == "" && c.Engine.Gemini.APIKey == "" {
		return fmt.Errorf("at least one engine api key is required")
	}
	if c.Worker.Concurrency < 1 {
		c.Worker.Concurrency = 1
	}
	switch c.MCP.Transport {
	case "", "stdio":
	default:
		return fmt.Errorf("unsupported mcp transport %q (use stdio)", c.MCP.Transport)
	}
	if c.MCP.Transport == "stdio" && c.MCP.UserID == "" {
		return fmt.Errorf("mcp.user_id is required when the MCP transport is enabled")
	}
	return nil
}

// DriveEnabled reports whether the cloud bridge is configured.
func (c *Config) DriveEnabled() bool {
	return c.Drive.ClientID != "" && c.Drive.ClientSecret != ""
}
