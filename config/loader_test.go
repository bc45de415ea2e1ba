package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportdesk/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644))
	return dir
}

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ProviderGemini, cfg.Provider.Type)
	assert.Equal(t, "GOOGLE_API_KEY", cfg.Provider.CredentialEnv)
	assert.Equal(t, models.DefaultPriority, cfg.Models.Priority)
	assert.Equal(t, 30*time.Second, cfg.ProviderTimeout())
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTimeout())
	assert.Equal(t, 200, cfg.Surface("dns").MaxOutputTokens)
	assert.False(t, cfg.Audit.Enabled)
}

func TestLoadConfigFromYAML(t *testing.T) {
	t.Setenv("SUPPORT_LLM_HOST", "")
	dir := writeConfig(t, `
provider:
  type: openai
  base_url: ${SUPPORT_LLM_HOST:-http://localhost:3000}
  credential_env: OPENAI_API_KEY
  timeout: 10s
models:
  priority: [gpt-4o-mini]
  sort_fallback: true
generation:
  WEB:
    temperature: 0.4
sessions:
  idle_timeout: 15m
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider.Type)
	assert.Equal(t, "http://localhost:3000", cfg.Provider.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout())
	assert.Equal(t, []string{"gpt-4o-mini"}, cfg.Models.Priority)
	assert.True(t, cfg.Models.SortFallback)
	assert.Equal(t, 0.4, cfg.Surface("web").Temperature)
	assert.Equal(t, 15*time.Minute, cfg.SessionIdleTimeout())
	assert.Equal(t, "support_session", cfg.Sessions.CookieName)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("ENABLE_LLM_AUDIT", "true")
	t.Setenv("SSH_LLM_MAX_TOKENS", "1000")
	t.Setenv("DNS_LLM_TEMPERATURE", "0.3")
	t.Setenv("WEB_LLM_MAX_TOKENS", "not-a-number")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider.Type)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 1000, cfg.Surface("ssh").MaxOutputTokens)
	assert.Equal(t, 0.3, cfg.Surface("dns").Temperature)
	assert.Equal(t, 200, cfg.Surface("dns").MaxOutputTokens)
	assert.Equal(t, 0, cfg.Surface("web").MaxOutputTokens)
}

func TestCredential(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "  secret \n")
	assert.Equal(t, "secret", Default().Credential())

	t.Setenv("GOOGLE_API_KEY", "")
	assert.Empty(t, Default().Credential())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"unknown provider": "provider:\n  type: carrier-pigeon\n",
		"bad timeout":      "provider:\n  timeout: soon\n",
		"bad idle":         "sessions:\n  idle_timeout: forever\n",
		"broken yaml":      "provider: [\n",
		"empty cookie":     "sessions:\n  cookie_name: \"\"\n",
		"spaced cookie":    "sessions:\n  cookie_name: \"my session\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
