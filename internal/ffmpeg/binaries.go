// Package ffmpeg locates the ffmpeg and ffprobe executables.
package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNotFound is returned when a binary is neither configured nor on PATH.
var ErrNotFound = errors.New("ffmpeg binary not found")

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

// Locate resolves both binaries from CAPTIONER_FFMPEG_PATH /
// CAPTIONER_FFPROBE_PATH, falling back to PATH lookup.
func Locate() (BinaryPaths, error) {
	ffmpegPath, err := find("ffmpeg", "CAPTIONER_FFMPEG_PATH")
	if err != nil {
		return BinaryPaths{}, err
	}
	ffprobePath, err := find("ffprobe", "CAPTIONER_FFPROBE_PATH")
	if err != nil {
		return BinaryPaths{}, err
	}
	return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
}

func FFmpegPath() (string, error) {
	return find("ffmpeg", "CAPTIONER_FFMPEG_PATH")
}

func FFprobePath() (string, error) {
	return find("ffprobe", "CAPTIONER_FFPROBE_PATH")
}

func find(name, envKey string) (string, error) {
	if p := strings.TrimSpace(os.Getenv(envKey)); p != "" {
		info, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("%s=%s: %w", envKey, p, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s=%s: is a directory", envKey, p)
		}
		return p, nil
	}

	found, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: install %s or set %s", ErrNotFound, name, envKey)
	}
	return found, nil
}
