package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"supportdesk/models"
)

// FileName is the config file looked up inside the config directory
const FileName = "support.yaml"

// Provider types
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config represents the complete configuration
type Config struct {
	Provider   ProviderConfig   `yaml:"provider"`
	Models     ModelsConfig     `yaml:"models"`
	Generation GenerationConfig `yaml:"generation"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Audit      AuditConfig      `yaml:"audit"`
}

// ProviderConfig from YAML
type ProviderConfig struct {
	Type          string `yaml:"type"`
	BaseURL       string `yaml:"base_url"`
	CredentialEnv string `yaml:"credential_env"` // name of the env var holding the API key
	Timeout       string `yaml:"timeout"`
}

// ModelsConfig from YAML
type ModelsConfig struct {
	Priority     []string `yaml:"priority"`
	SortFallback bool     `yaml:"sort_fallback"`
}

// GenerationConfig holds per-surface generation settings keyed by surface
// name (WEB, SSH, DNS)
type GenerationConfig map[string]SurfaceConfig

// SurfaceConfig from YAML
type SurfaceConfig struct {
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

// SessionsConfig from YAML
type SessionsConfig struct {
	CookieName  string `yaml:"cookie_name"`
	IdleTimeout string `yaml:"idle_timeout"`
}

// AuditConfig from YAML
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Type:          ProviderGemini,
			CredentialEnv: "GOOGLE_API_KEY",
			Timeout:       "30s",
		},
		Models: ModelsConfig{
			Priority: append([]string(nil), models.DefaultPriority...),
		},
		Generation: GenerationConfig{
			"DNS": {MaxOutputTokens: 200},
		},
		Sessions: SessionsConfig{
			CookieName:  "support_session",
			IdleTimeout: "2h",
		},
		Audit: AuditConfig{
			Path: "llm_audit.db",
		},
	}
}

// LoadConfig loads support.yaml from configDir on top of the defaults. A
// missing file is not an error.
func LoadConfig(configDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(configDir, FileName)
	if err := loadYAMLFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("[LoadConfig] %s not found, using defaults", path)
		} else {
			return nil, fmt.Errorf("failed to load %s: %w", FileName, err)
		}
	}

	expandEnvVars(cfg)
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	switch c.Provider.Type {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider type %q", c.Provider.Type)
	}
	if c.Provider.CredentialEnv == "" {
		return fmt.Errorf("provider.credential_env must not be empty")
	}
	if _, err := parseDuration(c.Provider.Timeout); err != nil {
		return fmt.Errorf("provider.timeout: %w", err)
	}
	if _, err := parseDuration(c.Sessions.IdleTimeout); err != nil {
		return fmt.Errorf("sessions.idle_timeout: %w", err)
	}
	// net/http silently drops cookies whose name is not a token
	if c.Sessions.CookieName == "" || strings.ContainsAny(c.Sessions.CookieName, " \t\r\n\"(),/:;<=>?@[\\]{}") {
		return fmt.Errorf("sessions.cookie_name %q is not a valid cookie name", c.Sessions.CookieName)
	}
	return nil
}

// Credential reads the API key from the configured environment variable
func (c *Config) Credential() string {
	return strings.TrimSpace(os.Getenv(c.Provider.CredentialEnv))
}

// ProviderTimeout returns the parsed provider timeout (30s when unset)
func (c *Config) ProviderTimeout() time.Duration {
	d, _ := parseDuration(c.Provider.Timeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// SessionIdleTimeout returns the parsed idle timeout; 0 disables expiry
func (c *Config) SessionIdleTimeout() time.Duration {
	d, _ := parseDuration(c.Sessions.IdleTimeout)
	return d
}

// Surface returns generation settings for a surface
func (c *Config) Surface(name string) SurfaceConfig {
	return c.Generation[strings.ToUpper(name)]
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// loadYAMLFile loads a YAML file into a structure
func loadYAMLFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

// expandEnvVars expands environment variables in configuration
func expandEnvVars(cfg *Config) {
	cfg.Provider.BaseURL = expandEnv(cfg.Provider.BaseURL)
	cfg.Provider.Type = expandEnv(cfg.Provider.Type)
	cfg.Audit.Path = expandEnv(cfg.Audit.Path)
}

// expandEnv expands environment variables in a string
func expandEnv(s string) string {
	if strings.Contains(s, "${") {
		return os.Expand(s, func(key string) string {
			// Handle default values like ${VAR:-default}
			parts := strings.SplitN(key, ":-", 2)
			value := os.Getenv(parts[0])
			if value == "" && len(parts) > 1 {
				return parts[1]
			}
			return value
		})
	}
	return s
}
