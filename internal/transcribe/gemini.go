package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"google.golang.org/genai"

	"github.com/mgpai22/captioner/internal/language"
	"github.com/mgpai22/captioner/internal/subtitle"
)

// implements Transcriber using Google Gemini
type GeminiTranscriber struct {
	client  *genai.Client
	model   string
	options Options
}

// segment from Gemini's JSON response
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func NewGeminiTranscriber(ctx context.Context, apiKey, model string, opts Options) (*GeminiTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required (set GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiTranscriber{
		client:  client,
		model:   model,
		options: opts,
	}, nil
}

func (t *GeminiTranscriber) Name() string {
	return string(BackendGemini)
}

func (t *GeminiTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	t.options.logger().Infow("uploading audio", "audio", audioPath, "model", t.model)

	uploadedFile, err := t.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio file: %w", err)
	}

	defer func() {
		_, _ = t.client.Files.Delete(ctx, uploadedFile.Name, nil)
	}()

	parts := []*genai.Part{
		genai.NewPartFromText(t.buildTranscriptionPrompt()),
		genai.NewPartFromURI(uploadedFile.URI, uploadedFile.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	responseText, err := responseText(result)
	if err != nil {
		return nil, err
	}

	segments, detected, err := extractTranscript(cleanJSONResponse(responseText))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse transcription: %v (response: %s)",
			subtitle.ErrEmptyResult, err, truncateString(responseText, 200))
	}

	lang := language.Normalize(t.options.Language)
	if lang == "" {
		lang = language.Normalize(detected)
	}

	return &Result{
		Segments: segments,
		Language: lang,
	}, nil
}

// creates the prompt for transcription
func (t *GeminiTranscriber) buildTranscriptionPrompt() string {
	var sb strings.Builder

	sb.WriteString("Generate a detailed transcript of this audio. ")
	sb.WriteString("For each sentence or phrase, provide the start timestamp, end timestamp, and the exact text spoken. ")
	sb.WriteString("Format your response as a JSON object with a 'language' field holding the ISO 639-1 code of the spoken language ")
	sb.WriteString("and a 'segments' array of objects containing 'start', 'end', and 'text' fields, ")
	sb.WriteString("where 'start' and 'end' are timestamps in seconds (as numbers). ")

	if t.options.Language != "" {
		sb.WriteString(fmt.Sprintf("The audio is in %s. ", language.DisplayName(t.options.Language)))
	}

	sb.WriteString("Return ONLY the JSON, no other text or markdown formatting.")

	return sb.String()
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no text in Gemini response")
	}
	return sb.String(), nil
}

var jsonFenceRegex = regexp.MustCompile("```(?:json)?\\s*")

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = jsonFenceRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// scans text for the first JSON value holding transcript segments, either a
// bare array or an object wrapping one (at any depth)
func extractTranscript(text string) ([]subtitle.Segment, string, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}
		if segs, lang, ok := trySegments(raw, 0); ok {
			out := make([]subtitle.Segment, len(segs))
			for j, s := range segs {
				out[j] = subtitle.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)}
			}
			return out, lang, nil
		}
	}
	return nil, "", fmt.Errorf("no transcript JSON found in response")
}

func trySegments(raw json.RawMessage, depth int) ([]transcriptSegment, string, bool) {
	if depth > 3 {
		return nil, "", false
	}

	var segs []transcriptSegment
	if err := json.Unmarshal(raw, &segs); err == nil {
		return segs, "", validateSegments(segs)
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, "", false
	}

	var lang string
	if v, ok := wrapper["language"]; ok {
		_ = json.Unmarshal(v, &lang)
	}

	for _, key := range []string{"segments", "transcript", "data"} {
		if field, ok := wrapper[key]; ok {
			if segs, inner, ok := trySegments(field, depth+1); ok {
				return segs, firstNonEmpty(lang, inner), true
			}
		}
	}
	for key, field := range wrapper {
		if key == "language" {
			continue
		}
		if segs, inner, ok := trySegments(field, depth+1); ok {
			return segs, firstNonEmpty(lang, inner), true
		}
	}

	return nil, "", false
}

// at least one segment must carry text or a timestamp
func validateSegments(segs []transcriptSegment) bool {
	for _, s := range segs {
		if s.Text != "" || s.Start != 0 || s.End != 0 {
			return true
		}
	}
	return false
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
