// Package aiproxy forwards chat completion requests to the configured LLM
// providers (OpenAI, DeepSeek, Gemini, SiliconFlow). It is a deliberate
// pass-through: no retries, no streaming, no backpressure. Requests and
// responses use the service-wide {success,data} / {error,detail} envelope.
package aiproxy

import (
	"fmt"
	"strings"

	"github.com/wenpaihq/wenpai/internal/config"
)

// Provider is one upstream chat endpoint.
type Provider struct {
	Name     string
	BaseURL  string
	ChatPath string
	APIKey   string
	Model    string
	// Feature is the plan-table feature id gating this provider.
	Feature string
}

// ChatURL is the full upstream endpoint.
func (p *Provider) ChatURL() string {
	path := p.ChatPath
	if path == "" {
		path = "/v1/chat/completions"
	}
	return strings.TrimRight(p.BaseURL, "/") + path
}

// Registry resolves providers by name.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry builds the registry from config. Providers without a base
// URL are rejected early rather than failing on first use.
func NewRegistry(cfgs []config.AIProvider) (*Registry, error) {
	m := make(map[string]*Provider, len(cfgs))
	for _, c := range cfgs {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			return nil, fmt.Errorf("aiproxy: provider with empty name")
		}
		if c.BaseURL == "" {
			return nil, fmt.Errorf("aiproxy: provider %s has no base_url", name)
		}
		feature := c.Feature
		if feature == "" {
			feature = "ai.chat"
		}
		m[name] = &Provider{
			Name:     name,
			BaseURL:  c.BaseURL,
			ChatPath: c.ChatPath,
			APIKey:   c.APIKey,
			Model:    c.Model,
			Feature:  feature,
		}
	}
	return &Registry{providers: m}, nil
}

// Lookup returns the provider, or nil when unknown.
func (r *Registry) Lookup(name string) *Provider {
	return r.providers[strings.ToLower(name)]
}

// Names lists configured provider names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	return out
}
