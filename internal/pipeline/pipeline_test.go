package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mgpai22/captioner/internal/subtitle"
	"github.com/mgpai22/captioner/internal/transcribe"
)

type fakeTranscriber struct {
	result *transcribe.Result
	err    error
	calls  int
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(context.Context, string) (*transcribe.Result, error) {
	f.calls++
	return f.result, f.err
}

// fake backend that also fixes Chinese spacing
type filteringTranscriber struct {
	fakeTranscriber
}

func (f *filteringTranscriber) FilterDocument(doc, lang string) string {
	if lang != "zh" {
		return doc
	}
	return subtitle.CollapseCJKSpaces(doc)
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "interview.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("failed to write audio: %v", err)
	}
	return path
}

func fixedClock() func() time.Time {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	return func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 1500 * time.Millisecond)
	}
}

func TestRunDetectedLanguage(t *testing.T) {
	tr := &fakeTranscriber{result: &transcribe.Result{
		Language: "english",
		Segments: []subtitle.Segment{
			{Start: 0, End: 1.5, Text: " Hello. "},
			{Start: 1.5, End: 3, Text: "Bye."},
		},
	}}
	var echo bytes.Buffer
	p := &Pipeline{Transcriber: tr, Echo: &echo, now: fixedClock()}

	audioPath := audioFile(t)
	out, err := p.Run(context.Background(), Request{AudioPath: audioPath, Format: "srt"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	wantPath := strings.TrimSuffix(audioPath, ".mp3") + ".en.srt"
	if out.Path != wantPath {
		t.Errorf("path = %q, want %q", out.Path, wantPath)
	}
	if out.Language != "en" || out.Captions != 2 || out.Format != subtitle.FormatSRT {
		t.Errorf("unexpected outcome %+v", out)
	}
	if out.Elapsed != 1500*time.Millisecond {
		t.Errorf("elapsed = %v", out.Elapsed)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello.\n\n2\n00:00:01,500 --> 00:00:03,000\nBye."
	if string(data) != want {
		t.Errorf("unexpected document:\n%q", data)
	}
	if echo.String() != want+"\n\n" {
		t.Errorf("unexpected echo:\n%q", echo.String())
	}
}

func TestRunRequestLanguageWins(t *testing.T) {
	tr := &fakeTranscriber{result: &transcribe.Result{
		Language: "en",
		Segments: []subtitle.Segment{{Start: 0, End: 1, Text: "hola"}},
	}}
	p := &Pipeline{Transcriber: tr}

	audioPath := audioFile(t)
	out, err := p.Run(context.Background(), Request{AudioPath: audioPath, Language: "es", Format: "vtt"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if filepath.Base(out.Path) != "interview.es.vtt" {
		t.Errorf("unexpected path %q", out.Path)
	}
}

func TestRunNoLanguage(t *testing.T) {
	tr := &fakeTranscriber{result: &transcribe.Result{
		Segments: []subtitle.Segment{{Start: 0, End: 1, Text: "x"}},
	}}
	p := &Pipeline{Transcriber: tr}

	out, err := p.Run(context.Background(), Request{AudioPath: audioFile(t), Format: "verbose_json"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if filepath.Base(out.Path) != "interview.json" {
		t.Errorf("unexpected path %q", out.Path)
	}
}

func TestRunExplicitOutputPath(t *testing.T) {
	tr := &fakeTranscriber{result: &transcribe.Result{
		Language: "en",
		Segments: []subtitle.Segment{{Start: 0, End: 1, Text: "x"}},
	}}
	p := &Pipeline{Transcriber: tr}

	outPath := filepath.Join(t.TempDir(), "nested", "captions.txt")
	out, err := p.Run(context.Background(), Request{AudioPath: audioFile(t), Format: "text", OutputPath: outPath})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.Path != outPath {
		t.Errorf("path = %q, want %q", out.Path, outPath)
	}
	if data, _ := os.ReadFile(outPath); string(data) != "x" {
		t.Errorf("unexpected document %q", data)
	}
}

func TestRunSourcePathNamesOutput(t *testing.T) {
	tr := &fakeTranscriber{result: &transcribe.Result{
		Language: "en",
		Segments: []subtitle.Segment{{Start: 0, End: 1, Text: "x"}},
	}}
	p := &Pipeline{Transcriber: tr}

	source := filepath.Join(t.TempDir(), "lecture.mkv")
	out, err := p.Run(context.Background(), Request{
		AudioPath:  audioFile(t),
		SourcePath: source,
		Format:     "srt",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.Path != strings.TrimSuffix(source, ".mkv")+".en.srt" {
		t.Errorf("unexpected path %q", out.Path)
	}
}

func TestRunUnsupportedFormatSkipsTranscription(t *testing.T) {
	tr := &fakeTranscriber{}
	p := &Pipeline{Transcriber: tr}

	_, err := p.Run(context.Background(), Request{AudioPath: audioFile(t), Format: "ass"})
	if !errors.Is(err, subtitle.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if tr.calls != 0 {
		t.Errorf("transcriber must not be called, got %d calls", tr.calls)
	}
}

func TestRunEmptyResultWritesNothing(t *testing.T) {
	tr := &fakeTranscriber{result: &transcribe.Result{Language: "en"}}
	var echo bytes.Buffer
	p := &Pipeline{Transcriber: tr, Echo: &echo}

	audioPath := audioFile(t)
	_, err := p.Run(context.Background(), Request{AudioPath: audioPath, Format: "srt"})
	if !errors.Is(err, subtitle.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if _, err := os.Stat(strings.TrimSuffix(audioPath, ".mp3") + ".en.srt"); !os.IsNotExist(err) {
		t.Errorf("no output file should exist, stat err = %v", err)
	}
	if echo.Len() != 0 {
		t.Errorf("nothing should be echoed, got %q", echo.String())
	}
}

func TestRunTranscriberError(t *testing.T) {
	boom := errors.New("backend down")
	p := &Pipeline{Transcriber: &fakeTranscriber{err: boom}}

	_, err := p.Run(context.Background(), Request{AudioPath: audioFile(t), Format: "srt"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestRunAppliesDocumentFilter(t *testing.T) {
	segments := []subtitle.Segment{{Start: 0, End: 2, Text: "韋昌輝 殺 死 楊秀卿"}}

	tests := []struct {
		name   string
		fixCJK bool
		want   string
	}{
		{name: "enabled", fixCJK: true, want: "韋昌輝殺死楊秀卿"},
		{name: "disabled", fixCJK: false, want: "韋昌輝 殺 死 楊秀卿"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &filteringTranscriber{fakeTranscriber{result: &transcribe.Result{
				Language: "zh",
				Segments: segments,
			}}}
			var echo bytes.Buffer
			p := &Pipeline{Transcriber: tr, Echo: &echo, FixCJK: tt.fixCJK}

			out, err := p.Run(context.Background(), Request{AudioPath: audioFile(t), Format: "txt"})
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			data, _ := os.ReadFile(out.Path)
			if string(data) != tt.want {
				t.Errorf("document = %q, want %q", data, tt.want)
			}
			if echo.String() != tt.want+"\n" {
				t.Errorf("echo = %q, want %q", echo.String(), tt.want+"\n")
			}
		})
	}
}

func TestRunNoClobber(t *testing.T) {
	tr := &fakeTranscriber{result: &transcribe.Result{
		Language: "en",
		Segments: []subtitle.Segment{{Start: 0, End: 1, Text: "x"}},
	}}
	p := &Pipeline{Transcriber: tr, WriteMode: subtitle.WriteNoClobber}

	audioPath := audioFile(t)
	existing := strings.TrimSuffix(audioPath, ".mp3") + ".en.srt"
	if err := os.WriteFile(existing, []byte("keep"), 0o644); err != nil {
		t.Fatalf("failed to write existing output: %v", err)
	}

	_, err := p.Run(context.Background(), Request{AudioPath: audioPath, Format: "srt"})
	if !errors.Is(err, subtitle.ErrOutputExists) {
		t.Fatalf("expected ErrOutputExists, got %v", err)
	}
	if data, _ := os.ReadFile(existing); string(data) != "keep" {
		t.Errorf("existing file was modified: %q", data)
	}
}

func TestRunWithoutTranscriber(t *testing.T) {
	_, err := (&Pipeline{}).Run(context.Background(), Request{Format: "srt"})
	if !errors.Is(err, subtitle.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
