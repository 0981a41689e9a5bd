package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var srtTimeRangeRegex = regexp.MustCompile(
	`^\s*(\d{2,}:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d{2,}:\d{2}:\d{2}[,.]\d{3})`,
)

type SRTFile struct {
	entries []Entry
}

func parseSRTFile(path string) (*SRTFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SRT file: %w", err)
	}
	defer file.Close()

	entries, err := ParseSRT(file)
	if err != nil {
		return nil, err
	}
	return &SRTFile{entries: entries}, nil
}

// ParseSRT reads SubRip caption blocks. Index lines are kept as written;
// multi-line caption text is joined with "\n".
func ParseSRT(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)

	var current *Entry
	var timed bool
	var textLines []string
	lineNum := 0

	flush := func() {
		if current != nil && timed {
			current.Text = strings.Join(textLines, "\n")
			entries = append(entries, *current)
		}
		current = nil
		timed = false
		textLines = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimRight(line, "\r")

		if strings.TrimSpace(line) == "" {
			if current != nil && timed {
				flush()
			}
			continue
		}

		if current == nil {
			index, err := strconv.Atoi(strings.TrimSpace(line))
			if err == nil {
				current = &Entry{Index: index}
				continue
			}
			// tolerate blocks without an index line
			current = &Entry{Index: len(entries) + 1}
		}

		if !timed {
			matches := srtTimeRangeRegex.FindStringSubmatch(line)
			if len(matches) == 3 {
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
				current.Start = start
				current.End = end
				timed = true
				continue
			}
			return nil, fmt.Errorf("expected timestamp line at line %d, got %q", lineNum, line)
		}

		textLines = append(textLines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SRT file: %w", err)
	}
	flush()

	return entries, nil
}

func (f *SRTFile) Format() Format {
	return FormatSRT
}

func (f *SRTFile) Entries() []Entry {
	return f.entries
}

func (f *SRTFile) SetText(index int, text string) error {
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

func (f *SRTFile) Write(path string, mode WriteMode) error {
	return writeEntries(f.entries, FormatSRT, path, mode)
}
