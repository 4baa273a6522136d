package llm

import "testing"

func TestNormalizeConfig(t *testing.T) {
	cfg := NormalizeConfig(ProviderConfig{})
	if cfg.ProviderName != "gemini" || cfg.ModelName != GeminiDefaultModel || cfg.BaseURL != GeminiBaseURL {
		t.Fatalf("unexpected gemini defaults: %+v", cfg)
	}

	cfg = NormalizeConfig(ProviderConfig{ProviderName: "Anthropic", ModelName: "claude-custom"})
	if cfg.ProviderName != "claude" || cfg.ModelName != "claude-custom" || cfg.BaseURL != "" {
		t.Fatalf("unexpected claude config: %+v", cfg)
	}
}

func TestFactoryCachesProviders(t *testing.T) {
	factory := NewFactory()
	first := factory.CreateProvider(&ProviderConfig{ProviderName: "gemini", APIKey: "k"})
	second := factory.CreateProvider(&ProviderConfig{ProviderName: "google", APIKey: "k"})
	if first == nil || first != second {
		t.Fatalf("expected a cached gemini provider")
	}
	if first.Name() != "gemini" {
		t.Fatalf("unexpected name %q", first.Name())
	}
	if claude := factory.CreateProvider(&ProviderConfig{ProviderName: "anthropic", APIKey: "k"}); claude == nil || claude.Name() != "claude" {
		t.Fatalf("expected claude provider")
	}
	if factory.CreateProvider(&ProviderConfig{ProviderName: "unknown"}) != nil {
		t.Fatalf("unknown providers must return nil")
	}
}

func TestFactoryRegister(t *testing.T) {
	factory := NewFactory()
	if factory.Supports("echo") {
		t.Fatalf("echo should not be supported before registration")
	}
	built := 0
	factory.Register("echo", func(cfg *ProviderConfig) Provider {
		built++
		return &fakeProvider{config: cfg}
	})
	if !factory.Supports("ECHO") {
		t.Fatalf("expected echo to be supported")
	}
	first := factory.CreateProvider(&ProviderConfig{ProviderName: "echo"})
	second := factory.CreateProvider(&ProviderConfig{ProviderName: "echo"})
	if first == nil || first != second || built != 1 {
		t.Fatalf("expected one cached instance, built=%d", built)
	}
	if !factory.Supports("google") || !factory.Supports("anthropic") {
		t.Fatalf("aliases must resolve")
	}
}
