package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMediaFileDetection(t *testing.T) {
	tests := []struct {
		path  string
		audio bool
		video bool
	}{
		{"talk.mp3", true, false},
		{"talk.M4A", true, false},
		{"voice.opus", true, false},
		{"movie.mkv", false, true},
		{"clip.MP4", false, true},
		{"notes.txt", false, false},
		{"noext", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsAudioFile(tt.path); got != tt.audio {
				t.Errorf("IsAudioFile = %v, want %v", got, tt.audio)
			}
			if got := IsVideoFile(tt.path); got != tt.video {
				t.Errorf("IsVideoFile = %v, want %v", got, tt.video)
			}
			if got := IsMediaFile(tt.path); got != (tt.audio || tt.video) {
				t.Errorf("IsMediaFile = %v", got)
			}
		})
	}
}

func TestParseProbeDuration(t *testing.T) {
	got, err := parseProbeDuration([]byte(`{"format": {"duration": "8.470000"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 8470*time.Millisecond {
		t.Errorf("duration = %v", got)
	}

	if _, err := parseProbeDuration([]byte(`{"format": {}}`)); err == nil {
		t.Error("expected error for missing duration")
	}
	if _, err := parseProbeDuration([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestCompressionArgs(t *testing.T) {
	args := compressionArgs(DefaultCompressionOptions())
	if args["acodec"] != "libmp3lame" || args["ar"] != 16000 || args["ac"] != 1 || args["b:a"] != "64k" {
		t.Errorf("unexpected args %v", args)
	}

	args = compressionArgs(CompressionOptions{Format: "aac", SampleRate: 44100, Channels: 2})
	if args["acodec"] != "aac" {
		t.Errorf("expected aac codec, got %v", args["acodec"])
	}
	if _, ok := args["b:a"]; ok {
		t.Error("bitrate must be omitted when empty")
	}
}

func TestPreparePassesAudioThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talk.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("failed to write audio: %v", err)
	}

	prepared, err := Prepare(path, false)
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if prepared.Path != path || prepared.Compressed {
		t.Errorf("unexpected prepared %+v", prepared)
	}
	if err := prepared.Cleanup(); err != nil {
		t.Errorf("Cleanup returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Cleanup must not remove the input: %v", err)
	}
}

func TestPrepareRejectsMissingAndDirectories(t *testing.T) {
	if _, err := Prepare(filepath.Join(t.TempDir(), "missing.mp3"), false); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Prepare(t.TempDir(), false); err == nil {
		t.Error("expected error for directory")
	}
}
