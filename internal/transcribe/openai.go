package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgpai22/captioner/internal/language"
	"github.com/mgpai22/captioner/internal/subtitle"
)

// upload limit of the hosted OpenAI endpoint
const openAIMaxUploadBytes = 25 * 1000 * 1000

// implements Transcriber using an OpenAI-compatible Audio API
type OpenAITranscriber struct {
	client  openai.Client
	model   string
	baseURL string
	options Options
}

// segment from Whisper verbose_json response
type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// verbose_json response structure from Whisper
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAITranscriber(
	apiKey, baseURL, model string,
	opts Options,
) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required (set OPENAI_API_KEY)")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}

	if model == "" {
		model = "whisper-1"
	}

	return &OpenAITranscriber{
		client:  openai.NewClient(reqOpts...),
		model:   model,
		baseURL: baseURL,
		options: opts,
	}, nil
}

func (t *OpenAITranscriber) Name() string {
	return string(BackendOpenAI)
}

// transcribes single audio file
func (t *OpenAITranscriber) Transcribe(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	logger := t.options.logger()

	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}
	if info.Size() > openAIMaxUploadBytes {
		logger.Warnw("audio exceeds the hosted upload limit, consider --compress",
			"size", humanize.Bytes(uint64(info.Size())),
			"limit", humanize.Bytes(openAIMaxUploadBytes),
		)
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	logger.Infow("transcribing", "audio", audioPath, "model", t.model, "base_url", t.baseURL)

	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(t.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}

	if t.options.Language != "" {
		params.Language = openai.String(t.options.Language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	parsed, err := parseVerboseJSONResponse(resp.RawJSON())
	if err != nil {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: %v", subtitle.ErrEmptyResult, err)
		}
		parsed = &whisperVerboseResponse{Text: text}
	}

	return t.toResult(parsed)
}

func (t *OpenAITranscriber) toResult(resp *whisperVerboseResponse) (*Result, error) {
	segments := resp.segments()
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments or text in response", subtitle.ErrEmptyResult)
	}

	lang := language.Normalize(t.options.Language)
	if lang == "" {
		lang = language.Normalize(resp.Language)
	}

	return &Result{
		Segments: segments,
		Language: lang,
		Duration: time.Duration(resp.Duration * float64(time.Second)),
	}, nil
}

// parses a verbose_json body. Some compatible servers (lemonfox) deliver the
// body as a JSON string holding the document, which is unwrapped once.
func parseVerboseJSONResponse(rawJSON string) (*whisperVerboseResponse, error) {
	rawJSON = strings.TrimSpace(rawJSON)
	if rawJSON == "" {
		return nil, fmt.Errorf("empty response")
	}

	if strings.HasPrefix(rawJSON, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(rawJSON), &inner); err != nil {
			return nil, fmt.Errorf("failed to unwrap string response: %w", err)
		}
		rawJSON = strings.TrimSpace(inner)
	}

	var verboseResp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &verboseResp); err != nil {
		return nil, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	if len(verboseResp.Segments) == 0 && strings.TrimSpace(verboseResp.Text) == "" {
		return nil, fmt.Errorf("no segments or text in response")
	}

	return &verboseResp, nil
}

// segments with empty text are kept as empty captions, like the local
// backends; a response with text but no segments becomes a single caption
// spanning the reported duration
func (r *whisperVerboseResponse) segments() []subtitle.Segment {
	if len(r.Segments) == 0 {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			return nil
		}
		return []subtitle.Segment{{Start: 0, End: r.Duration, Text: text}}
	}

	segments := make([]subtitle.Segment, 0, len(r.Segments))
	for _, seg := range r.Segments {
		segments = append(segments, subtitle.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return segments
}
