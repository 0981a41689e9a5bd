package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgpai22/captioner/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CAPTIONER_CONFIG", "CAPTIONER_PYTHON", "CAPTIONER_BACKEND", "CAPTIONER_FORMAT",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_API_BASE", "OPENAI_MODEL_NAME",
		"ASSEMBLYAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAPTIONER_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected no config file")
	}
	if cfg.Defaults.Backend != "faster-whisper" || cfg.Defaults.Format != "srt" {
		t.Fatalf("unexpected defaults: %+v", cfg.Defaults)
	}
	if cfg.FasterWhisper.Model != "large-v3" || cfg.FasterWhisper.BeamSize != 5 {
		t.Fatalf("unexpected faster-whisper defaults: %+v", cfg.FasterWhisper)
	}
	if cfg.OpenAIWhisper.Model != "turbo" {
		t.Fatalf("unexpected openai-whisper model %q", cfg.OpenAIWhisper.Model)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	clearEnv(t)
	_, _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for explicit missing config")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
python = "/opt/venv/bin/python"

[defaults]
backend = "openai"
format = "vtt"

[openai]
base_url = "https://api.lemonfox.ai/v1"
model = "whisper-large"

[assemblyai]
expected_languages = ["en", "es"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL_NAME", "whisper-1")

	cfg, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be read")
	}
	if cfg.Python != "/opt/venv/bin/python" {
		t.Errorf("unexpected python %q", cfg.Python)
	}
	if cfg.Defaults.Backend != "openai" || cfg.Defaults.Format != "vtt" {
		t.Errorf("unexpected defaults %+v", cfg.Defaults)
	}
	if cfg.OpenAI.BaseURL != "https://api.lemonfox.ai/v1" {
		t.Errorf("unexpected base url %q", cfg.OpenAI.BaseURL)
	}
	if cfg.OpenAI.Model != "whisper-1" {
		t.Errorf("env should override model, got %q", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("expected api key from env, got %q", cfg.OpenAI.APIKey)
	}
	if strings.Join(cfg.AssemblyAI.ExpectedLanguages, ",") != "en,es" {
		t.Errorf("unexpected expected languages %v", cfg.AssemblyAI.ExpectedLanguages)
	}
	if cfg.AssemblyAI.CharsPerCaption != 200 {
		t.Errorf("unset keys should keep defaults, got %d", cfg.AssemblyAI.CharsPerCaption)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[defaults]\nbackedn = \"openai\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestApplyEnvBaseURLFallback(t *testing.T) {
	cfg := config.Default()
	env := map[string]string{"OPENAI_API_BASE": "http://localhost:8000/v1"}
	cfg.ApplyEnv(func(key string) string { return env[key] })

	if cfg.OpenAI.BaseURL != "http://localhost:8000/v1" {
		t.Errorf("expected OPENAI_API_BASE fallback, got %q", cfg.OpenAI.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.Translate.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero concurrency")
	}
}
