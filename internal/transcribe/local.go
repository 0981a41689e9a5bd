package transcribe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mgpai22/captioner/internal/config"
	"github.com/mgpai22/captioner/internal/language"
	"github.com/mgpai22/captioner/internal/subtitle"
)

//go:embed assets/faster_whisper.py
var fasterWhisperScript []byte

//go:embed assets/openai_whisper.py
var openAIWhisperScript []byte

// runs an external command and returns its stdout
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s exited with %d: %s", name, exitErr.ExitCode(), lastLines(stderr.String(), 5))
		}
		return nil, err
	}
	return out, nil
}

// implements Transcriber by running a whisper model through a bundled
// python helper that prints JSON
type LocalWhisperTranscriber struct {
	backend  Backend
	script   []byte
	python   string
	settings config.LocalWhisper
	options  Options
	run      CommandRunner
}

type helperOutput struct {
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
	Duration            float64 `json:"duration"`
	Segments            []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func NewFasterWhisperTranscriber(python string, settings config.LocalWhisper, opts Options) *LocalWhisperTranscriber {
	return newLocalWhisper(BackendFasterWhisper, fasterWhisperScript, python, settings, opts)
}

func NewOpenAIWhisperTranscriber(python string, settings config.LocalWhisper, opts Options) *LocalWhisperTranscriber {
	return newLocalWhisper(BackendOpenAIWhisper, openAIWhisperScript, python, settings, opts)
}

func newLocalWhisper(
	backend Backend,
	script []byte,
	python string,
	settings config.LocalWhisper,
	opts Options,
) *LocalWhisperTranscriber {
	if python == "" {
		python = "python3"
	}
	settings.Model = firstNonEmpty(opts.Model, settings.Model)
	settings.Device = firstNonEmpty(opts.Device, settings.Device)
	settings.ComputeType = firstNonEmpty(opts.ComputeType, settings.ComputeType)
	if opts.BeamSize > 0 {
		settings.BeamSize = opts.BeamSize
	}

	return &LocalWhisperTranscriber{
		backend:  backend,
		script:   script,
		python:   python,
		settings: settings,
		options:  opts,
		run:      execRunner,
	}
}

func (t *LocalWhisperTranscriber) Name() string {
	return string(t.backend)
}

func (t *LocalWhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	logger := t.options.logger()

	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	scriptPath, cleanup, err := writeHelper(t.backend, t.script)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if t.settings.ModelsDir != "" {
		if err := os.MkdirAll(t.settings.ModelsDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create models dir: %w", err)
		}
	}

	logger.Infow("transcribing",
		"audio", audioPath,
		"backend", t.backend,
		"model", t.settings.Model,
		"beam_size", t.settings.BeamSize,
		"language", t.options.Language,
	)

	out, err := t.run(ctx, t.python, t.args(scriptPath, audioPath)...)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", t.backend, err)
	}

	var parsed helperOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse %s output: %w", t.backend, err)
	}
	if len(parsed.Segments) == 0 {
		return nil, fmt.Errorf("%w: no segments found for %s", subtitle.ErrEmptyResult, audioPath)
	}

	lang := language.Normalize(t.options.Language)
	if lang == "" {
		lang = language.Normalize(parsed.Language)
		logger.Infow("detected language",
			"language", lang,
			"probability", parsed.LanguageProbability,
		)
	}

	segments := make([]subtitle.Segment, len(parsed.Segments))
	for i, s := range parsed.Segments {
		segments[i] = subtitle.Segment{Start: s.Start, End: s.End, Text: s.Text}
	}

	return &Result{
		Segments:            segments,
		Language:            lang,
		LanguageProbability: parsed.LanguageProbability,
		Duration:            time.Duration(parsed.Duration * float64(time.Second)),
	}, nil
}

func (t *LocalWhisperTranscriber) args(scriptPath, audioPath string) []string {
	args := []string{scriptPath, "--audio", audioPath, "--model", t.settings.Model}
	if t.settings.Device != "" {
		args = append(args, "--device", t.settings.Device)
	}
	if t.backend == BackendFasterWhisper {
		if t.settings.ComputeType != "" {
			args = append(args, "--compute-type", t.settings.ComputeType)
		}
		if t.settings.BeamSize > 0 {
			args = append(args, "--beam-size", strconv.Itoa(t.settings.BeamSize))
		}
	}
	if t.settings.ModelsDir != "" {
		args = append(args, "--download-root", t.settings.ModelsDir)
	}
	if t.options.Language != "" {
		args = append(args, "--language", t.options.Language)
	}
	return args
}

// writes the embedded helper to a temp file
func writeHelper(backend Backend, script []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "captioner-"+string(backend)+"-*.py")
	if err != nil {
		return "", nil, fmt.Errorf("write helper script: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.Write(script); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write helper script: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write helper script: %w", err)
	}
	return path, cleanup, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
