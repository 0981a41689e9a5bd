package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mgpai22/captioner/internal/config"
	"github.com/mgpai22/captioner/internal/logging"
	"github.com/mgpai22/captioner/internal/subtitle"
)

// transcription result, already normalized to subtitle segments
type Result struct {
	Segments            []subtitle.Segment
	Language            string
	LanguageProbability float64
	Duration            time.Duration
}

// interface for audio transcription
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// DocumentFilter is implemented by backends whose rendered output needs a
// locale fix before it is written.
type DocumentFilter interface {
	FilterDocument(doc, language string) string
}

// transcription backend
type Backend string

const (
	BackendFasterWhisper Backend = "faster-whisper"
	BackendOpenAIWhisper Backend = "openai-whisper"
	BackendOpenAI        Backend = "openai"
	BackendAssemblyAI    Backend = "assemblyai"
	BackendGemini        Backend = "gemini"
)

// BackendInfo describes a backend for help output.
type BackendInfo struct {
	Backend     Backend
	Description string
	Env         []string
	AutoDetect  bool
}

var backends = []BackendInfo{
	{
		Backend:     BackendFasterWhisper,
		Description: "local faster-whisper model (python helper)",
		Env:         []string{"CAPTIONER_PYTHON"},
		AutoDetect:  true,
	},
	{
		Backend:     BackendOpenAIWhisper,
		Description: "local openai-whisper model (python helper)",
		Env:         []string{"CAPTIONER_PYTHON"},
		AutoDetect:  true,
	},
	{
		Backend:     BackendOpenAI,
		Description: "OpenAI-compatible transcription API",
		Env:         []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL_NAME"},
		AutoDetect:  true,
	},
	{
		Backend:     BackendAssemblyAI,
		Description: "AssemblyAI transcription API",
		Env:         []string{"ASSEMBLYAI_API_KEY"},
		AutoDetect:  true,
	},
	{
		Backend:     BackendGemini,
		Description: "Google Gemini multimodal model",
		Env:         []string{"GEMINI_API_KEY"},
		AutoDetect:  false,
	},
}

// Backends lists the supported backends in display order.
func Backends() []BackendInfo {
	out := make([]BackendInfo, len(backends))
	copy(out, backends)
	return out
}

func ParseBackend(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "whisper", "local":
		return BackendFasterWhisper, nil
	case "assembly", "assembly-ai":
		return BackendAssemblyAI, nil
	}
	for _, b := range backends {
		if string(b.Backend) == name {
			return b.Backend, nil
		}
	}
	return "", fmt.Errorf("%w: unknown backend %q", subtitle.ErrInvalidArgument, name)
}

// transcription options, override config values when set
type Options struct {
	Language    string // empty means auto-detect
	Model       string
	APIKey      string
	BaseURL     string
	Device      string
	ComputeType string
	BeamSize    int
	Logger      *logging.Logger
}

func (o Options) logger() *logging.Logger {
	if o.Logger == nil {
		return logging.Nop()
	}
	return o.Logger
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// creates transcriber based on backend
func Factory(
	ctx context.Context,
	backend Backend,
	cfg *config.Config,
	opts Options,
) (Transcriber, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}

	switch backend {
	case BackendFasterWhisper:
		return NewFasterWhisperTranscriber(cfg.Python, cfg.FasterWhisper, opts), nil
	case BackendOpenAIWhisper:
		return NewOpenAIWhisperTranscriber(cfg.Python, cfg.OpenAIWhisper, opts), nil
	case BackendOpenAI:
		return NewOpenAITranscriber(
			firstNonEmpty(opts.APIKey, cfg.OpenAI.APIKey),
			firstNonEmpty(opts.BaseURL, cfg.OpenAI.BaseURL),
			firstNonEmpty(opts.Model, cfg.OpenAI.Model),
			opts,
		)
	case BackendAssemblyAI:
		settings := cfg.AssemblyAI
		settings.APIKey = firstNonEmpty(opts.APIKey, settings.APIKey)
		settings.BaseURL = firstNonEmpty(opts.BaseURL, settings.BaseURL)
		settings.SpeechModel = firstNonEmpty(opts.Model, settings.SpeechModel)
		return NewAssemblyAITranscriber(settings, opts)
	case BackendGemini:
		return NewGeminiTranscriber(
			ctx,
			firstNonEmpty(opts.APIKey, cfg.Gemini.APIKey),
			firstNonEmpty(opts.Model, cfg.Gemini.Model),
			opts,
		)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}
