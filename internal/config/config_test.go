package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("QUERYDESK_BASE_URL", "")
	t.Setenv("QUERYDESK_DATA_DIR", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.BaseURL != "http://localhost:5001/api" {
		t.Errorf("unexpected default base URL %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSeconds != 60 || cfg.Connect.MaxConcurrent != 2 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("first load must write the defaults file")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("QUERYDESK_BASE_URL", "")
	t.Setenv("QUERYDESK_DATA_DIR", "")
	t.Setenv("GEMINI_API_KEY", "")

	content := `{"log_level":"debug","backend":{"base_url":"http://example.test/api"}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" || cfg.Backend.BaseURL != "http://example.test/api" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Backend.TimeoutSeconds != 60 {
		t.Error("unset fields keep their defaults")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"backend":{"base_url":"http://file.test/api"}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUERYDESK_BASE_URL", "http://env.test/api")
	t.Setenv("GEMINI_API_KEY", "sk-from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.BaseURL != "http://env.test/api" {
		t.Errorf("env must win over the file, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.APIKey != "sk-from-env" {
		t.Errorf("GEMINI_API_KEY not applied, got %q", cfg.Backend.APIKey)
	}
}

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	nested := map[string]any{
		"backend": map[string]any{
			"base_url": "http://x",
			"timeout_seconds": float64(30),
		},
		"log_level": "info",
	}
	flat := Flatten(nested)
	if flat["backend.base_url"] != "http://x" {
		t.Errorf("unexpected flat map %v", flat)
	}
	back := Unflatten(flat)
	inner, ok := back["backend"].(map[string]any)
	if !ok || inner["base_url"] != "http://x" {
		t.Errorf("round trip lost structure: %v", back)
	}
}

func TestMaskSecrets(t *testing.T) {
	flat := map[string]any{
		"backend.api_key":  "sk-abcdef123456",
		"backend.base_url": "http://x",
	}
	masked := MaskSecrets(flat)
	if masked["backend.api_key"] != "***3456" {
		t.Errorf("key not masked: %v", masked["backend.api_key"])
	}
	if masked["backend.base_url"] != "http://x" {
		t.Error("non-secret values must pass through")
	}
}

func TestSetValueCoercion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("QUERYDESK_BASE_URL", "")
	t.Setenv("QUERYDESK_DATA_DIR", "")
	t.Setenv("GEMINI_API_KEY", "")

	if err := SetValue(path, "http.enabled", "true"); err != nil {
		t.Fatal(err)
	}
	if err := SetValue(path, "backend.timeout_seconds", "30"); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.HTTP.Enabled {
		t.Error("bool value not coerced")
	}
	if cfg.Backend.TimeoutSeconds != 30 {
		t.Errorf("number value not coerced, got %d", cfg.Backend.TimeoutSeconds)
	}

	if err := SetValue(path, "no.such.key", "x"); err == nil {
		t.Error("unknown keys must be rejected")
	}
}

func TestGetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("QUERYDESK_BASE_URL", "")
	t.Setenv("QUERYDESK_DATA_DIR", "")
	t.Setenv("GEMINI_API_KEY", "")

	val, err := GetValue(path, "backend.base_url")
	if err != nil {
		t.Fatal(err)
	}
	if val != "http://localhost:5001/api" {
		t.Errorf("unexpected value %v", val)
	}

	if _, err := GetValue(path, "bogus"); err == nil {
		t.Error("unknown keys must be rejected")
	}
}
