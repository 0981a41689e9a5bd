// Package config loads captioner settings from an optional TOML file and the
// environment. Command-line flags are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Defaults holds the values used when a flag is not given.
type Defaults struct {
	Backend string `toml:"backend"`
	Format  string `toml:"format"`
}

// OpenAI configures the remote Whisper-compatible transcription API.
type OpenAI struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// AssemblyAI configures the AssemblyAI REST backend.
type AssemblyAI struct {
	APIKey              string   `toml:"api_key"`
	BaseURL             string   `toml:"base_url"`
	SpeechModel         string   `toml:"speech_model"`
	ExpectedLanguages   []string `toml:"expected_languages"`
	CharsPerCaption     int      `toml:"chars_per_caption"`
	PollIntervalSeconds int      `toml:"poll_interval_seconds"`
}

// Gemini configures the Google Gemini backend.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Anthropic is only used for translation.
type Anthropic struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// LocalWhisper configures a model run through the bundled Python helpers.
type LocalWhisper struct {
	Model       string `toml:"model"`
	Device      string `toml:"device"`
	ComputeType string `toml:"compute_type"`
	BeamSize    int    `toml:"beam_size"`
	ModelsDir   string `toml:"models_dir"`
}

// Translate configures the translate command.
type Translate struct {
	Provider    string `toml:"provider"`
	Model       string `toml:"model"`
	BatchSize   int    `toml:"batch_size"`
	Concurrency int    `toml:"concurrency"`
}

// Config is the full settings tree.
type Config struct {
	Python        string       `toml:"python"`
	Defaults      Defaults     `toml:"defaults"`
	OpenAI        OpenAI       `toml:"openai"`
	AssemblyAI    AssemblyAI   `toml:"assemblyai"`
	Gemini        Gemini       `toml:"gemini"`
	Anthropic     Anthropic    `toml:"anthropic"`
	FasterWhisper LocalWhisper `toml:"faster_whisper"`
	OpenAIWhisper LocalWhisper `toml:"openai_whisper"`
	Translate     Translate    `toml:"translate"`
}

// Default returns a Config populated with the built-in defaults.
func Default() Config {
	return Config{
		Python: "python3",
		Defaults: Defaults{
			Backend: "faster-whisper",
			Format:  "srt",
		},
		OpenAI: OpenAI{
			BaseURL: "https://api.openai.com/v1",
			Model:   "whisper-1",
		},
		AssemblyAI: AssemblyAI{
			BaseURL:             "https://api.assemblyai.com",
			SpeechModel:         "universal",
			ExpectedLanguages:   []string{"zh", "en"},
			CharsPerCaption:     200,
			PollIntervalSeconds: 3,
		},
		Gemini: Gemini{
			Model: "gemini-2.5-flash",
		},
		FasterWhisper: LocalWhisper{
			Model:       "large-v3",
			Device:      "cuda",
			ComputeType: "float16",
			BeamSize:    5,
			ModelsDir:   defaultModelsDir(),
		},
		OpenAIWhisper: LocalWhisper{
			Model:     "turbo",
			ModelsDir: defaultModelsDir(),
		},
		Translate: Translate{
			Provider:    "gemini",
			BatchSize:   50,
			Concurrency: 3,
		},
	}
}

// DefaultPath returns $CAPTIONER_CONFIG or <user config dir>/captioner/config.toml.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv("CAPTIONER_CONFIG")); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "captioner.toml"
	}
	return filepath.Join(dir, "captioner", "config.toml")
}

// Load reads the TOML file at path (DefaultPath when empty) over the defaults,
// then applies environment overrides. A missing file is not an error; the
// returned bool reports whether one was read.
func Load(path string) (*Config, bool, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	exists := false
	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, false, fmt.Errorf("parse config %s: %w", path, err)
		}
		exists = true
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, false, fmt.Errorf("open config: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, exists, err
	}

	return &cfg, exists, nil
}

// ApplyEnv overrides file values with the environment variables the original
// scripts read. getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := strings.TrimSpace(getenv(key)); v != "" {
				*dst = v
				return
			}
		}
	}

	set(&c.Python, "CAPTIONER_PYTHON")
	set(&c.Defaults.Backend, "CAPTIONER_BACKEND")
	set(&c.Defaults.Format, "CAPTIONER_FORMAT")
	set(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.OpenAI.BaseURL, "OPENAI_BASE_URL", "OPENAI_API_BASE")
	set(&c.OpenAI.Model, "OPENAI_MODEL_NAME")
	set(&c.AssemblyAI.APIKey, "ASSEMBLYAI_API_KEY")
	set(&c.Gemini.APIKey, "GEMINI_API_KEY")
	set(&c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
}

// Validate rejects settings that cannot work regardless of backend.
func (c *Config) Validate() error {
	if c.AssemblyAI.CharsPerCaption < 0 {
		return fmt.Errorf("assemblyai.chars_per_caption must not be negative")
	}
	if c.AssemblyAI.PollIntervalSeconds <= 0 {
		return fmt.Errorf("assemblyai.poll_interval_seconds must be positive")
	}
	if c.FasterWhisper.BeamSize <= 0 {
		return fmt.Errorf("faster_whisper.beam_size must be positive")
	}
	if c.Translate.BatchSize <= 0 {
		return fmt.Errorf("translate.batch_size must be positive")
	}
	if c.Translate.Concurrency <= 0 {
		return fmt.Errorf("translate.concurrency must be positive")
	}
	return nil
}

func defaultModelsDir() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "captioner", "models")
}
