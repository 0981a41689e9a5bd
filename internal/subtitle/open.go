package subtitle

import (
	"fmt"
	"path/filepath"
	"strings"
)

// parsed subtitle file that can be edited and written back
type File interface {
	Format() Format
	Entries() []Entry
	SetText(index int, text string) error
	Write(path string, mode WriteMode) error
}

func Open(path string) (File, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".srt":
		return parseSRTFile(path)
	case ".vtt":
		return parseVTTFile(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Segments converts parsed entries back into renderable segments.
func Segments(entries []Entry) []Segment {
	segments := make([]Segment, len(entries))
	for i, e := range entries {
		segments[i] = Segment{Start: e.Start, End: e.End, Text: e.Text}
	}
	return segments
}

func writeEntries(entries []Entry, format Format, path string, mode WriteMode) error {
	doc, err := NewRenderer(nil).Render(Segments(entries), format)
	if err != nil {
		return err
	}
	return WriteDocument(path, doc, mode)
}
