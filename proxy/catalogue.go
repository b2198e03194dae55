package proxy

import "net/http"

// ModelInfo describes one selectable model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Available   bool   `json:"available"`
	Description string `json:"description,omitempty"`
}

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

var staticModels = []ModelInfo{
	{ID: "llama3", Name: "Llama 3 (Local)", Provider: "local", Description: "Run locally via Ollama or LM Studio"},
	{ID: "gpt-4", Name: "GPT-4", Provider: "openai", Description: "OpenAI GPT-4 (requires API key)"},
	{ID: "claude-3", Name: "Claude 3", Provider: "anthropic", Description: "Anthropic Claude 3 (requires API key)"},
	{ID: "mock", Name: "Mock Model", Provider: "custom", Available: true, Description: "Mock streaming response for development"},
}

// Catalogue lists the models the workspace can talk to. The configured
// upstream model is available only when its credential is set.
func Catalogue(upstream *Upstream) []ModelInfo {
	models := make([]ModelInfo, 0, len(staticModels)+1)
	models = append(models, ModelInfo{
		ID:          upstream.Model(),
		Name:        upstream.Model(),
		Provider:    "zai",
		Available:   upstream.Configured(),
		Description: "Streaming landing-page generation through /api/glm",
	})
	models = append(models, staticModels...)
	return models
}

// CatalogueHandler serves GET /api/models.
func CatalogueHandler(upstream *Upstream) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ModelsResponse{Models: Catalogue(upstream)})
	}
}
