package config

import (
	"log"
	"os"
	"strconv"
)

// Surfaces that accept <NAME>_LLM_MAX_TOKENS / <NAME>_LLM_TEMPERATURE overrides
var Surfaces = []string{"WEB", "SSH", "DNS"}

// applyEnvOverrides lets environment variables win over support.yaml
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.Provider.Type = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("LLM_CREDENTIAL_ENV"); v != "" {
		cfg.Provider.CredentialEnv = v
	}
	if v := os.Getenv("SESSION_IDLE_TIMEOUT"); v != "" {
		cfg.Sessions.IdleTimeout = v
	}

	switch os.Getenv("ENABLE_LLM_AUDIT") {
	case "true":
		cfg.Audit.Enabled = true
	case "false":
		cfg.Audit.Enabled = false
	}
	if v := os.Getenv("LLM_AUDIT_PATH"); v != "" {
		cfg.Audit.Path = v
	}

	if cfg.Generation == nil {
		cfg.Generation = GenerationConfig{}
	}
	for _, surface := range Surfaces {
		sc := cfg.Generation[surface]
		if envVar := os.Getenv(surface + "_LLM_MAX_TOKENS"); envVar != "" {
			if val, err := strconv.Atoi(envVar); err == nil {
				sc.MaxOutputTokens = val
			} else {
				log.Printf("[Config] Ignoring %s_LLM_MAX_TOKENS=%q: %v", surface, envVar, err)
			}
		}
		if envVar := os.Getenv(surface + "_LLM_TEMPERATURE"); envVar != "" {
			if val, err := strconv.ParseFloat(envVar, 64); err == nil {
				sc.Temperature = val
			} else {
				log.Printf("[Config] Ignoring %s_LLM_TEMPERATURE=%q: %v", surface, envVar, err)
			}
		}
		cfg.Generation[surface] = sc
	}
}
