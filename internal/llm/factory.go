package llm

import (
	"strings"
	"sync"

	"bioneuro/backend/internal/llm/providers"
)

const (
	GeminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai/"
	GeminiDefaultModel = "gemini-2.5-flash"
)

var defaultModels = map[string]string{
	"gemini": GeminiDefaultModel,
	"openai": "gpt-4o-mini",
	"claude": "claude-3-5-haiku-latest",
	"cohere": "command-r",
}

// Factory builds providers and keeps one instance per name, model and base
// URL so SDK clients and usage stats are shared across visitors.
type Factory struct {
	mu           sync.Mutex
	instances    map[string]Provider
	constructors map[string]func(*ProviderConfig) Provider
}

func NewFactory() *Factory {
	return &Factory{
		instances:    map[string]Provider{},
		constructors: map[string]func(*ProviderConfig) Provider{},
	}
}

// Register adds a constructor for a provider name the factory does not
// build itself. It replaces any cached instance for that name.
func (f *Factory) Register(name string, constructor func(*ProviderConfig) Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name = strings.ToLower(name)
	f.constructors[name] = constructor
	for key := range f.instances {
		if strings.HasPrefix(key, name+":") {
			delete(f.instances, key)
		}
	}
}

// Supports reports whether name resolves to a provider.
func (f *Factory) Supports(name string) bool {
	name = NormalizeConfig(ProviderConfig{ProviderName: name}).ProviderName
	switch name {
	case "claude", "openai", "gemini", "cohere":
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.constructors[name]
	return ok
}

func (f *Factory) CreateProvider(config *ProviderConfig) Provider {
	if config == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg := NormalizeConfig(*config)
	key := cfg.ProviderName + ":" + cfg.ModelName + ":" + cfg.BaseURL
	if provider, ok := f.instances[key]; ok {
		return provider
	}

	var provider Provider
	switch cfg.ProviderName {
	case "claude":
		provider = providers.NewClaudeProvider(&cfg)
	case "openai", "gemini":
		provider = providers.NewOpenAIProvider(&cfg)
	case "cohere":
		provider = providers.NewCohereProvider(&cfg)
	default:
		constructor, ok := f.constructors[cfg.ProviderName]
		if !ok {
			return nil
		}
		provider = constructor(&cfg)
		if provider == nil {
			return nil
		}
	}
	f.instances[key] = provider
	return provider
}

// NormalizeConfig canonicalises the provider name and fills the model and
// base URL each provider needs when none is configured.
func NormalizeConfig(cfg ProviderConfig) ProviderConfig {
	name := strings.ToLower(strings.TrimSpace(cfg.ProviderName))
	switch name {
	case "", "google":
		name = "gemini"
	case "anthropic":
		name = "claude"
	}
	cfg.ProviderName = name
	if cfg.ModelName == "" {
		cfg.ModelName = defaultModels[name]
	}
	if cfg.BaseURL == "" && name == "gemini" {
		cfg.BaseURL = GeminiBaseURL
	}
	return cfg
}
