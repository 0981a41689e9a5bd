package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mgpai22/captioner/internal/config"
	"github.com/mgpai22/captioner/internal/language"
	"github.com/mgpai22/captioner/internal/subtitle"
)

const (
	assemblyStatusCompleted = "completed"
	assemblyStatusError     = "error"
)

// implements Transcriber using the AssemblyAI REST API. AssemblyAI renders
// its own SRT, which is parsed back into segments.
type AssemblyAITranscriber struct {
	httpClient   *http.Client
	settings     config.AssemblyAI
	pollInterval time.Duration
	options      Options
}

type assemblyTranscriptRequest struct {
	AudioURL                 string                    `json:"audio_url"`
	SpeechModel              string                    `json:"speech_model,omitempty"`
	Punctuate                bool                      `json:"punctuate"`
	FormatText               bool                      `json:"format_text"`
	LanguageCode             string                    `json:"language_code,omitempty"`
	LanguageDetection        bool                      `json:"language_detection,omitempty"`
	LanguageDetectionOptions *assemblyDetectionOptions `json:"language_detection_options,omitempty"`
}

type assemblyDetectionOptions struct {
	ExpectedLanguages []string `json:"expected_languages"`
}

type assemblyTranscript struct {
	ID                 string  `json:"id"`
	Status             string  `json:"status"`
	Error              string  `json:"error"`
	Text               string  `json:"text"`
	LanguageCode       string  `json:"language_code"`
	LanguageConfidence float64 `json:"language_confidence"`
	AudioDuration      float64 `json:"audio_duration"`
}

func NewAssemblyAITranscriber(
	settings config.AssemblyAI,
	opts Options,
) (*AssemblyAITranscriber, error) {
	if settings.APIKey == "" {
		return nil, fmt.Errorf("API key is required (set ASSEMBLYAI_API_KEY)")
	}
	if settings.BaseURL == "" {
		settings.BaseURL = config.Default().AssemblyAI.BaseURL
	}
	if settings.PollIntervalSeconds <= 0 {
		settings.PollIntervalSeconds = 3
	}

	return &AssemblyAITranscriber{
		httpClient:   &http.Client{Timeout: 10 * time.Minute},
		settings:     settings,
		pollInterval: time.Duration(settings.PollIntervalSeconds) * time.Second,
		options:      opts,
	}, nil
}

func (t *AssemblyAITranscriber) Name() string {
	return string(BackendAssemblyAI)
}

func (t *AssemblyAITranscriber) Transcribe(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	logger := t.options.logger()

	uploadURL, err := t.upload(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	transcript, err := t.createTranscript(ctx, uploadURL)
	if err != nil {
		return nil, err
	}
	logger.Debugw("transcript queued", "id", transcript.ID)

	transcript, err = t.waitForTranscript(ctx, transcript)
	if err != nil {
		return nil, err
	}
	if transcript.Status == assemblyStatusError {
		return nil, fmt.Errorf("AssemblyAI transcribe failed for %s: %s", audioPath, transcript.Error)
	}

	logger.Infow("assemblyai transcript ready",
		"chars", len([]rune(transcript.Text)),
		"language", transcript.LanguageCode,
	)
	logger.Debugw("transcript text", "preview", preview(transcript.Text, 800))

	srt, err := t.exportSRT(ctx, transcript.ID)
	if err != nil {
		return nil, err
	}

	entries, err := subtitle.ParseSRT(strings.NewReader(srt))
	if err != nil {
		return nil, fmt.Errorf("failed to parse AssemblyAI captions: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: AssemblyAI returned no captions for %s", subtitle.ErrEmptyResult, audioPath)
	}

	lang := language.Normalize(t.options.Language)
	if lang == "" {
		lang = language.Normalize(transcript.LanguageCode)
	}

	return &Result{
		Segments:            subtitle.Segments(entries),
		Language:            lang,
		LanguageProbability: transcript.LanguageConfidence,
		Duration:            time.Duration(transcript.AudioDuration * float64(time.Second)),
	}, nil
}

// FilterDocument removes the spaces AssemblyAI inserts between Chinese words.
func (t *AssemblyAITranscriber) FilterDocument(doc, lang string) string {
	if !language.IsChinese(lang) {
		return doc
	}
	return subtitle.CollapseCJKSpaces(doc)
}

func (t *AssemblyAITranscriber) upload(ctx context.Context, audioPath string) (string, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", fmt.Errorf("audio file not found: %s", audioPath)
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	t.options.logger().Infow("uploading audio",
		"audio", audioPath,
		"size", humanize.Bytes(uint64(info.Size())),
	)

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := t.do(ctx, http.MethodPost, "/v2/upload", file, "application/octet-stream", &out); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("upload failed: no upload_url in response")
	}
	return out.UploadURL, nil
}

func (t *AssemblyAITranscriber) buildRequest(uploadURL string) assemblyTranscriptRequest {
	req := assemblyTranscriptRequest{
		AudioURL:    uploadURL,
		SpeechModel: t.settings.SpeechModel,
		Punctuate:   true,
		FormatText:  true,
	}
	if t.options.Language != "" {
		req.LanguageCode = t.options.Language
		return req
	}

	req.LanguageDetection = true
	if len(t.settings.ExpectedLanguages) > 0 {
		req.LanguageDetectionOptions = &assemblyDetectionOptions{
			ExpectedLanguages: t.settings.ExpectedLanguages,
		}
	}
	return req
}

func (t *AssemblyAITranscriber) createTranscript(ctx context.Context, uploadURL string) (*assemblyTranscript, error) {
	body, err := json.Marshal(t.buildRequest(uploadURL))
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript request: %w", err)
	}

	var transcript assemblyTranscript
	if err := t.do(ctx, http.MethodPost, "/v2/transcript", bytes.NewReader(body), "application/json", &transcript); err != nil {
		return nil, fmt.Errorf("failed to create transcript: %w", err)
	}
	if transcript.ID == "" {
		return nil, fmt.Errorf("failed to create transcript: no id in response")
	}
	return &transcript, nil
}

// polls until the transcript leaves the queued/processing states
func (t *AssemblyAITranscriber) waitForTranscript(
	ctx context.Context,
	transcript *assemblyTranscript,
) (*assemblyTranscript, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for transcript.Status != assemblyStatusCompleted && transcript.Status != assemblyStatusError {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		var next assemblyTranscript
		if err := t.do(ctx, http.MethodGet, "/v2/transcript/"+url.PathEscape(transcript.ID), nil, "", &next); err != nil {
			return nil, fmt.Errorf("failed to poll transcript: %w", err)
		}
		t.options.logger().Debugw("transcript status", "id", transcript.ID, "status", next.Status)
		transcript = &next
	}

	return transcript, nil
}

func (t *AssemblyAITranscriber) exportSRT(ctx context.Context, id string) (string, error) {
	path := "/v2/transcript/" + url.PathEscape(id) + "/srt"
	if t.settings.CharsPerCaption > 0 {
		path += "?chars_per_caption=" + strconv.Itoa(t.settings.CharsPerCaption)
	}

	var buf bytes.Buffer
	if err := t.do(ctx, http.MethodGet, path, nil, "", &buf); err != nil {
		return "", fmt.Errorf("failed to export SRT: %w", err)
	}
	return buf.String(), nil
}

// sends one request; JSON responses are decoded into out, a *bytes.Buffer
// receives the raw body
func (t *AssemblyAITranscriber) do(
	ctx context.Context,
	method, path string,
	body io.Reader,
	contentType string,
	out any,
) error {
	endpoint := strings.TrimRight(t.settings.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", t.settings.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if buf, ok := out.(*bytes.Buffer); ok {
		_, err := io.Copy(buf, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func preview(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
