package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaicsci/inquiry/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if !cfg.NATS.Embedded {
		t.Error("defaults should use the embedded server")
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BaseDelay != 2*time.Second {
		t.Errorf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Pipeline.CaptionConcurrency != 3 {
		t.Errorf("CaptionConcurrency = %d, want 3", cfg.Pipeline.CaptionConcurrency)
	}
}

func TestValidate(t *testing.T) {
	t.Run("zero timeout rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Model.Timeout = 0
		if err := cfg.Validate(); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("endpoint without provider rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Model.Endpoints = map[string]model.EndpointConfig{
			"bad": {Model: "m"},
		}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("role without preferred endpoints rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Model.Roles = map[string]model.RoleConfig{
			"writer": {},
		}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error")
		}
	})
}

func TestLoadSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.Endpoints = map[string]model.EndpointConfig{
		"local": {Provider: "ollama", URL: "http://localhost:11434/v1", Model: "llama3"},
	}
	cfg.Model.Roles = map[string]model.RoleConfig{
		"writer": {Preferred: []string{"local"}},
	}
	cfg.Pipeline.Pacing = 5 * time.Second

	path := filepath.Join(t.TempDir(), "inquiry.yaml")
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if loaded.Model.Endpoints["local"].Model != "llama3" {
		t.Errorf("endpoint lost in round trip: %+v", loaded.Model.Endpoints)
	}
	if loaded.Pipeline.Pacing != 5*time.Second {
		t.Errorf("Pacing = %v, want 5s", loaded.Pipeline.Pacing)
	}
}

func TestLoadFromFile_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inquiry.yaml")
	partial := "pipeline:\n  recency_window: 4\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Pipeline.RecencyWindow != 4 {
		t.Errorf("RecencyWindow = %d, want 4", cfg.Pipeline.RecencyWindow)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("unspecified retry settings should keep defaults, got %d", cfg.Retry.MaxAttempts)
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{}
	overlay.NATS.URL = "nats://remote:4222"
	overlay.Retry.MaxAttempts = 3
	overlay.Model.Roles = map[string]model.RoleConfig{
		"editor": {Preferred: []string{"big"}},
	}

	base.Merge(overlay)

	if base.NATS.URL != "nats://remote:4222" {
		t.Errorf("NATS.URL = %q", base.NATS.URL)
	}
	if base.NATS.Embedded {
		t.Error("an external URL should disable the embedded server")
	}
	if base.Retry.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", base.Retry.MaxAttempts)
	}
	if base.Retry.BaseDelay != 2*time.Second {
		t.Errorf("zero overlay values must not clobber base: BaseDelay = %v", base.Retry.BaseDelay)
	}
	if len(base.Model.Roles) != 1 {
		t.Errorf("Roles = %+v", base.Model.Roles)
	}

	base.Merge(nil) // must be a no-op
	if base.Retry.MaxAttempts != 3 {
		t.Error("Merge(nil) changed the config")
	}
}

func TestBuildRegistry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.Endpoints = map[string]model.EndpointConfig{
		"local": {Provider: "ollama", Model: "llama3"},
	}
	cfg.Model.Roles = map[string]model.RoleConfig{
		"fast": {Preferred: []string{"local"}},
	}
	cfg.Model.DefaultFallback = "local"

	registry := cfg.BuildRegistry()

	ep := registry.GetEndpoint("local")
	if ep == nil || ep.Model != "llama3" {
		t.Fatalf("GetEndpoint(local) = %+v", ep)
	}
	if got := registry.Resolve(model.RoleFast); got != "local" {
		t.Errorf("Resolve(fast) = %q, want local", got)
	}
	// Built-in defaults survive under the overlay.
	if registry.GetEndpoint("gemini-flash") == nil {
		t.Error("built-in endpoints should remain available")
	}
}
