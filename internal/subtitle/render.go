package subtitle

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const vttHeader = "WEBVTT"

// Renderer turns segments into a subtitle document. When Echo is set every
// caption block is written to it as soon as it is rendered, in input order.
type Renderer struct {
	Echo io.Writer
}

func NewRenderer(echo io.Writer) *Renderer {
	return &Renderer{Echo: echo}
}

type jsonSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type jsonDocument struct {
	Text     string        `json:"text"`
	Segments []jsonSegment `json:"segments"`
}

// Render validates the whole sequence before producing any output, so a
// malformed segment never leaves a partial echo behind.
func (r *Renderer) Render(segments []Segment, format Format) (string, error) {
	switch format {
	case FormatSRT, FormatVTT, FormatText, FormatJSON:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}

	if len(segments) == 0 {
		return "", ErrEmptyResult
	}
	if err := validateSegments(segments); err != nil {
		return "", err
	}

	switch format {
	case FormatSRT:
		return r.renderBlocks(segments, "", "\n\n", srtBlock)
	case FormatVTT:
		return r.renderBlocks(segments, vttHeader, "\n\n", vttBlock)
	case FormatText:
		return r.renderBlocks(segments, "", "\n", textBlock)
	default:
		return r.renderJSON(segments)
	}
}

type blockFunc func(index int, seg Segment) (string, error)

func (r *Renderer) renderBlocks(
	segments []Segment,
	header string,
	separator string,
	block blockFunc,
) (string, error) {
	captions := make([]string, 0, len(segments)+1)
	if header != "" {
		captions = append(captions, header)
	}

	for i, seg := range segments {
		caption, err := block(i+1, seg)
		if err != nil {
			return "", err
		}
		r.echo(caption + separator)
		captions = append(captions, caption)
	}

	return strings.Join(captions, separator), nil
}

func (r *Renderer) renderJSON(segments []Segment) (string, error) {
	doc := jsonDocument{Segments: make([]jsonSegment, 0, len(segments))}
	texts := make([]string, 0, len(segments))

	for i, seg := range segments {
		js := jsonSegment{
			ID:    i,
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		}
		line, err := json.Marshal(js)
		if err != nil {
			return "", fmt.Errorf("failed to encode segment %d: %w", i+1, err)
		}
		r.echo(string(line) + "\n")

		doc.Segments = append(doc.Segments, js)
		texts = append(texts, js.Text)
	}
	doc.Text = strings.Join(texts, " ")

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(out), nil
}

func (r *Renderer) echo(s string) {
	if r.Echo == nil {
		return
	}
	_, _ = io.WriteString(r.Echo, s)
}

func timeRange(seg Segment) (string, error) {
	start, err := FormatTimestamp(seg.Start)
	if err != nil {
		return "", err
	}
	end, err := FormatTimestamp(seg.End)
	if err != nil {
		return "", err
	}
	return start + " --> " + end, nil
}

func srtBlock(index int, seg Segment) (string, error) {
	span, err := timeRange(seg)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{
		strconv.Itoa(index),
		span,
		strings.TrimSpace(seg.Text),
	}, "\n"), nil
}

func vttBlock(_ int, seg Segment) (string, error) {
	span, err := timeRange(seg)
	if err != nil {
		return "", err
	}
	return span + "\n" + strings.TrimSpace(seg.Text), nil
}

func textBlock(_ int, seg Segment) (string, error) {
	return strings.TrimSpace(seg.Text), nil
}
