package main

import (
	"net/http"
	"strings"

	"supportdesk/models"
)

// ModelResponse for API responses
type ModelResponse struct {
	ID           string                   `json:"id"`
	Object       string                   `json:"object"`
	Name         string                   `json:"name"`
	Family       string                   `json:"family"`
	Version      string                   `json:"version,omitempty"`
	Capabilities models.ModelCapabilities `json:"capabilities"`
	Actions      []string                 `json:"supported_actions"`
	Selected     bool                     `json:"selected"`
	OwnedBy      string                   `json:"owned_by"`
}

func (app *supportApp) modelResponse(m *models.Model) ModelResponse {
	// Determine owned_by based on family
	ownedBy := "organization"
	switch m.Family {
	case "gemini":
		ownedBy = "google"
	case "gpt":
		ownedBy = "openai"
	case "claude":
		ownedBy = "anthropic"
	case "llama":
		ownedBy = "meta"
	}

	return ModelResponse{
		ID:           m.Name,
		Object:       "model",
		Name:         m.DisplayName,
		Family:       m.Family,
		Version:      m.Version,
		Capabilities: m.Capabilities,
		Actions:      m.SupportedActions,
		Selected:     m.Name == app.agent.Model().String(),
		OwnedBy:      ownedBy,
	}
}

// handleListModels handles GET /v1/models. Only models that can generate
// content are listed, since nothing else could ever be selected. ?family=
// narrows the list to one model family.
func (app *supportApp) handleListModels(w http.ResponseWriter, r *http.Request) {
	generative := app.catalog.Generative()
	if family := r.URL.Query().Get("family"); family != "" {
		generative = nil
		for _, m := range app.catalog.GetByFamily(strings.ToLower(family)) {
			if m.SupportsGeneration() {
				generative = append(generative, m)
			}
		}
	}

	data := make([]ModelResponse, 0, len(generative))
	for _, m := range generative {
		data = append(data, app.modelResponse(m))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"object":   "list",
		"selected": app.agent.Model().String(),
		"data":     data,
	})
}

// handleGetModel handles GET /v1/models/{model}. Both "models/x" and "x"
// resolve to the same catalog entry.
func (app *supportApp) handleGetModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("model")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "Model ID required")
		return
	}

	m, ok := app.catalog.Get(id)
	if !ok && !strings.HasPrefix(id, "models/") {
		m, ok = app.catalog.Get("models/" + id)
	}
	if !ok {
		writeJSONError(w, http.StatusNotFound, "Model not found")
		return
	}

	writeJSON(w, http.StatusOK, app.modelResponse(m))
}
