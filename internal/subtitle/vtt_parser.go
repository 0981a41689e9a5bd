package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// accepts both "." and "," millisecond separators and the short MM:SS.mmm form
var vttTimeRangeRegex = regexp.MustCompile(
	`^\s*((?:\d{2,}:)?\d{2}:\d{2}[.,]\d{3})\s*-->\s*((?:\d{2,}:)?\d{2}:\d{2}[.,]\d{3})`,
)

type VTTFile struct {
	entries []Entry
}

func parseVTTFile(path string) (*VTTFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open VTT file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	entries, err := ParseVTT(file)
	if err != nil {
		return nil, err
	}
	return &VTTFile{entries: entries}, nil
}

// ParseVTT reads WebVTT cues, skipping NOTE and STYLE blocks and cue
// identifiers. Entries are numbered 1..N in file order.
func ParseVTT(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)

	var current *Entry
	var textLines []string
	lineNum := 0
	headerParsed := false

	flush := func() {
		if current != nil {
			current.Text = strings.Join(textLines, "\n")
			entries = append(entries, *current)
		}
		current = nil
		textLines = nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		trimmed := strings.TrimSpace(line)

		if !headerParsed {
			if strings.HasPrefix(trimmed, "WEBVTT") {
				headerParsed = true
				continue
			}
			if trimmed != "" {
				return nil, fmt.Errorf("missing WEBVTT header at line %d", lineNum)
			}
			continue
		}

		if current == nil &&
			(strings.HasPrefix(trimmed, "NOTE") || strings.HasPrefix(trimmed, "STYLE")) {
			for scanner.Scan() {
				lineNum++
				if strings.TrimSpace(scanner.Text()) == "" {
					break
				}
			}
			continue
		}

		if trimmed == "" {
			flush()
			continue
		}

		matches := vttTimeRangeRegex.FindStringSubmatch(line)
		if current == nil && len(matches) == 3 {
			start, err := ParseTimestamp(matches[1])
			if err != nil {
				return nil, fmt.Errorf(
					"invalid start timestamp at line %d: %w",
					lineNum,
					err,
				)
			}
			end, err := ParseTimestamp(matches[2])
			if err != nil {
				return nil, fmt.Errorf(
					"invalid end timestamp at line %d: %w",
					lineNum,
					err,
				)
			}

			current = &Entry{
				Index: len(entries) + 1,
				Start: start,
				End:   end,
			}
			continue
		}

		if current != nil {
			textLines = append(textLines, line)
		}
		// anything else before a timing line is a cue identifier
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading VTT file: %w", err)
	}
	flush()

	return entries, nil
}

func (f *VTTFile) Format() Format {
	return FormatVTT
}

func (f *VTTFile) Entries() []Entry {
	return f.entries
}

func (f *VTTFile) SetText(index int, text string) error {
	if index < 0 || index >= len(f.entries) {
		return fmt.Errorf(
			"index %d out of range (0-%d)",
			index,
			len(f.entries)-1,
		)
	}
	f.entries[index].Text = text
	return nil
}

func (f *VTTFile) Write(path string, mode WriteMode) error {
	return writeEntries(f.entries, FormatVTT, path, mode)
}
