package agent

import (
	"context"
	"fmt"
	"log"

	"supportdesk/models"
)

// ModelLister is the slice of providers.Provider the selector needs
type ModelLister interface {
	ListModels(ctx context.Context) ([]*models.Model, error)
}

// SelectOptions tunes model selection
type SelectOptions struct {
	Priority []string // defaults to models.DefaultPriority
	// SortFallback makes the no-match fallback deterministic by sorting
	// names first instead of trusting provider order.
	SortFallback bool
}

// Selection is the outcome of a successful SelectModel
type Selection struct {
	Model   ModelHandle
	Catalog *models.Catalog
}

// SelectModel checks the credential, lists the catalog and picks the session
// model. Every failure comes back as a *ConfigurationError.
func SelectModel(ctx context.Context, credential string, lister ModelLister, opts SelectOptions) (*Selection, error) {
	if credential == "" {
		return nil, &ConfigurationError{Err: ErrMissingCredential}
	}
	if lister == nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("no provider configured")}
	}

	list, err := lister.ListModels(ctx)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	catalog := models.NewCatalog(list)
	available := catalog.GenerativeNames()
	if len(available) == 0 {
		return nil, &ConfigurationError{Err: ErrNoCompatibleModels}
	}

	priority := opts.Priority
	if len(priority) == 0 {
		priority = models.DefaultPriority
	}

	pick := models.Select
	if opts.SortFallback {
		pick = models.SelectSorted
	}
	name, _ := pick(available, priority)

	log.Printf("[SelectModel] Selected %s from %d compatible models", name, len(available))
	return &Selection{Model: ModelHandle(name), Catalog: catalog}, nil
}
