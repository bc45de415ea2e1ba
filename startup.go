package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"supportdesk/agent"
	"supportdesk/audit"
	"supportdesk/config"
	"supportdesk/models"
	"supportdesk/providers"
	"supportdesk/render"
	"supportdesk/session"
)

// supportApp is everything the front ends share once startup succeeded
type supportApp struct {
	cfg      *config.Config
	provider providers.Provider
	agent    *agent.Agent
	catalog  *models.Catalog
	sessions *session.Store
	html     *render.HTML
	audit    *audit.Store // nil when auditing is disabled
}

// providerFactory builds the provider for a config; tests swap it out
var providerFactory = newProvider

func newProvider(ctx context.Context, cfg *config.Config, credential string) (providers.Provider, error) {
	opts := providers.Options{
		APIKey:  credential,
		BaseURL: cfg.Provider.BaseURL,
		Timeout: cfg.ProviderTimeout(),
	}
	switch cfg.Provider.Type {
	case config.ProviderOpenAI:
		return providers.NewOpenAICompatibleProvider(opts), nil
	default:
		return providers.NewGeminiProvider(ctx, opts)
	}
}

// initializeSupport loads configuration, selects the session model and wires
// the front-end dependencies. Any failure is a *agent.ConfigurationError.
func initializeSupport(ctx context.Context) (*supportApp, error) {
	log.Println("[initializeSupport] Starting support agent initialization...")

	configDir := os.Getenv("LLM_CONFIG_DIR")
	if configDir == "" {
		configDir = "./config"
	}

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, asConfigurationError(err)
	}

	credential := cfg.Credential()
	if credential == "" {
		log.Printf("[initializeSupport] %s is not set", cfg.Provider.CredentialEnv)
		return nil, &agent.ConfigurationError{Err: agent.ErrMissingCredential}
	}

	provider, err := providerFactory(ctx, cfg, credential)
	if err != nil {
		return nil, asConfigurationError(err)
	}

	selection, err := agent.SelectModel(ctx, credential, provider, agent.SelectOptions{
		Priority:     cfg.Models.Priority,
		SortFallback: cfg.Models.SortFallback,
	})
	if err != nil {
		provider.Close()
		return nil, err
	}

	app := &supportApp{
		cfg:      cfg,
		provider: provider,
		agent:    agent.New(agent.NewComposer(provider, selection.Model), agent.NewClassifier()),
		catalog:  selection.Catalog,
		sessions: session.NewStore(cfg.SessionIdleTimeout()),
		html:     render.NewHTML(),
	}

	if cfg.Audit.Enabled {
		store, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			// Serve without auditing rather than fail startup
			log.Printf("[initializeSupport] WARNING: audit disabled: %v", err)
		} else {
			app.audit = store
		}
	}

	logInitSummary(app)
	beacon("support_initialized", map[string]interface{}{
		"provider":       provider.GetInfo().Name,
		"model":          selection.Model.String(),
		"catalog_size":   len(selection.Catalog.List()),
		"generative":     len(selection.Catalog.Generative()),
		"audit_enabled":  app.audit != nil,
		"sort_fallback":  cfg.Models.SortFallback,
		"session_expiry": cfg.SessionIdleTimeout().String(),
	})
	return app, nil
}

func asConfigurationError(err error) error {
	var cfgErr *agent.ConfigurationError
	if errors.As(err, &cfgErr) {
		return err
	}
	return &agent.ConfigurationError{Err: err}
}

// Close releases provider and audit resources
func (app *supportApp) Close() error {
	var errs []error
	if app.audit != nil {
		errs = append(errs, app.audit.Close())
	}
	if app.provider != nil {
		errs = append(errs, app.provider.Close())
	}
	return errors.Join(errs...)
}

// logInitSummary logs initialization summary
func logInitSummary(app *supportApp) {
	info := app.provider.GetInfo()
	log.Printf("[InitSummary] Provider: %s (timeout %s)", info.Name, info.Timeout)
	if info.BaseURL != "" {
		log.Printf("[InitSummary] Endpoint: %s (auth required: %v)", info.BaseURL, info.RequiresAuth)
	}
	log.Printf("[InitSummary] Selected model: %s", app.agent.Model())
	log.Printf("[InitSummary] Catalog: %d models, %d support generateContent",
		len(app.catalog.List()), len(app.catalog.Generative()))
	if debugMode {
		for _, m := range app.catalog.Generative() {
			log.Printf("[InitSummary] Model: %s (%s)", m.Name, m.Family)
		}
	}
	log.Printf("[InitSummary] Audit logging: %v", app.audit != nil)
}

// params returns generation settings for a front end
func (app *supportApp) params(surface string) agent.Params {
	sc := app.cfg.Surface(surface)
	return agent.Params{
		Temperature:     sc.Temperature,
		MaxOutputTokens: sc.MaxOutputTokens,
	}
}

func (app *supportApp) String() string {
	return fmt.Sprintf("supportApp(model=%s)", app.agent.Model())
}
