package subtitle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyResult       = errors.New("empty transcription result")
	ErrOutputExists      = errors.New("output file already exists")
)

// recognized span of speech, times in seconds
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// parsed caption from an existing subtitle file
type Entry struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// output document format
type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatText Format = "txt"
	FormatJSON Format = "json"
)

// ParseFormat normalizes a user supplied format identifier.
// "text" and "txt" both map to FormatText, "verbose_json" maps to FormatJSON.
func ParseFormat(id string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	normalized = strings.TrimPrefix(normalized, ".")

	switch normalized {
	case "srt":
		return FormatSRT, nil
	case "vtt":
		return FormatVTT, nil
	case "txt", "text":
		return FormatText, nil
	case "json", "verbose_json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, id)
	}
}

// file extension without the leading dot
func (f Format) Extension() string {
	return string(f)
}

// SupportedFormats lists the identifiers accepted by ParseFormat.
func SupportedFormats() []string {
	return []string{"srt", "vtt", "txt", "text", "json", "verbose_json"}
}

func validateSegments(segments []Segment) error {
	for i, seg := range segments {
		if !validSeconds(seg.Start) || !validSeconds(seg.End) {
			return fmt.Errorf(
				"%w: segment %d has invalid time range %v-%v",
				ErrInvalidArgument,
				i+1,
				seg.Start,
				seg.End,
			)
		}
		if seg.Start > seg.End {
			return fmt.Errorf(
				"%w: segment %d starts after it ends (%v > %v)",
				ErrInvalidArgument,
				i+1,
				seg.Start,
				seg.End,
			)
		}
	}
	return nil
}
