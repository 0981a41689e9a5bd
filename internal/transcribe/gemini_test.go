package transcribe

import (
	"reflect"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/mgpai22/captioner/internal/subtitle"
)

func TestExtractTranscript(t *testing.T) {
	hello := []subtitle.Segment{{Start: 0, End: 2.5, Text: "Hello world"}}

	tests := []struct {
		name     string
		input    string
		want     []subtitle.Segment
		wantLang string
		wantErr  bool
	}{
		{
			name:  "bare array",
			input: `[{"start": 0, "end": 2.5, "text": " Hello world "}]`,
			want:  hello,
		},
		{
			name:     "language and segments",
			input:    `{"language": "Japanese", "segments": [{"start": 1.25, "end": 3, "text": "こんにちは"}]}`,
			want:     []subtitle.Segment{{Start: 1.25, End: 3, Text: "こんにちは"}},
			wantLang: "Japanese",
		},
		{
			name:  "chatter around the JSON",
			input: "Sure! Here it is:\n[{\"start\": 0, \"end\": 2.5, \"text\": \"Hello world\"}]\nLet me know.",
			want:  hello,
		},
		{
			name:  "data key",
			input: `{"data": [{"start": 0, "end": 2.5, "text": "Hello world"}]}`,
			want:  hello,
		},
		{
			name:  "any key holding segments",
			input: `{"captions": [{"start": 0, "end": 2.5, "text": "Hello world"}]}`,
			want:  hello,
		},
		{
			name:  "skips values that are not segments",
			input: `{"status": "ok"} [1, 2] [{"start": 0, "end": 2.5, "text": "Hello world"}]`,
			want:  hello,
		},
		{
			name:     "language from nested wrapper",
			input:    `{"result": {"language": "en", "transcript": [{"start": 0, "end": 2.5, "text": "Hello world"}]}}`,
			want:     hello,
			wantLang: "en",
		},
		{
			name:  "timed segment with empty text is kept",
			input: `[{"start": 4, "end": 5, "text": ""}, {"start": 5, "end": 6, "text": "after"}]`,
			want:  []subtitle.Segment{{Start: 4, End: 5}, {Start: 5, End: 6, Text: "after"}},
		},
		{
			name:    "only zero segments",
			input:   `[{"start": 0, "end": 0, "text": ""}]`,
			wantErr: true,
		},
		{
			name:    "empty array",
			input:   `[]`,
			wantErr: true,
		},
		{
			name:    "truncated JSON",
			input:   `[{"start": 0, "end": 2, "text": "cut off"`,
			wantErr: true,
		},
		{
			name:    "prose only",
			input:   `I could not hear any speech in this file.`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, lang, err := extractTranscript(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("segments = %+v, want %+v", got, tt.want)
			}
			if lang != tt.wantLang {
				t.Errorf("language = %q, want %q", lang, tt.wantLang)
			}
		})
	}
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain JSON",
			input: `[{"start": 0, "end": 1, "text": "hello"}]`,
			want:  `[{"start": 0, "end": 1, "text": "hello"}]`,
		},
		{
			name:  "json code fence",
			input: "```json\n[{\"start\": 0, \"end\": 1, \"text\": \"hello\"}]\n```",
			want:  `[{"start": 0, "end": 1, "text": "hello"}]`,
		},
		{
			name:  "plain code fence",
			input: "```\n[{\"start\": 0}]\n```",
			want:  `[{"start": 0}]`,
		},
		{
			name:  "with leading/trailing whitespace",
			input: "  \n\n```json\n[{\"start\": 0}]\n```\n\n  ",
			want:  `[{"start": 0}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSONResponse(tt.input); got != tt.want {
				t.Errorf("cleanJSONResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponseText(t *testing.T) {
	if _, err := responseText(nil); err == nil {
		t.Error("expected error for nil response")
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "[{\"start\": 0,"}, {Text: " \"end\": 1}]"}}}},
		},
	}
	got, err := responseText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `[{"start": 0, "end": 1}]` {
		t.Errorf("unexpected text %q", got)
	}
}

func TestGeminiPromptMentionsLanguage(t *testing.T) {
	tr := &GeminiTranscriber{options: Options{Language: "zh"}}
	prompt := tr.buildTranscriptionPrompt()
	if !strings.Contains(prompt, "Chinese") {
		t.Errorf("prompt should name the audio language: %q", prompt)
	}
}
