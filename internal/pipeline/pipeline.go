// Package pipeline runs one transcription end to end: transcribe, render,
// post-process and write the caption document.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mgpai22/captioner/internal/language"
	"github.com/mgpai22/captioner/internal/logging"
	"github.com/mgpai22/captioner/internal/subtitle"
	"github.com/mgpai22/captioner/internal/transcribe"
)

type Request struct {
	AudioPath  string
	Language   string // empty means auto-detect
	Format     string // format identifier, e.g. "srt" or "verbose_json"
	OutputPath string // overrides the derived path when set
	SourcePath string // names the output when AudioPath is a re-encoded copy
}

type Outcome struct {
	Path     string
	Language string
	Format   subtitle.Format
	Captions int
	Elapsed  time.Duration
}

type Pipeline struct {
	Transcriber transcribe.Transcriber
	Echo        io.Writer
	Logger      *logging.Logger
	WriteMode   subtitle.WriteMode
	FixCJK      bool

	now func() time.Time
}

func (p *Pipeline) Run(ctx context.Context, req Request) (*Outcome, error) {
	if p.Transcriber == nil {
		return nil, fmt.Errorf("%w: no transcriber configured", subtitle.ErrInvalidArgument)
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	now := p.now
	if now == nil {
		now = time.Now
	}

	// an unknown format must fail before any backend work
	format, err := subtitle.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}

	start := now()

	result, err := p.Transcriber.Transcribe(ctx, req.AudioPath)
	if err != nil {
		return nil, err
	}

	lang := language.Normalize(req.Language)
	if lang == "" {
		lang = language.Normalize(result.Language)
	}

	filter, hasFilter := p.Transcriber.(transcribe.DocumentFilter)
	hasFilter = hasFilter && p.FixCJK

	echo := p.Echo
	if hasFilter && echo != nil {
		echo = &filteredWriter{w: echo, filter: filter, lang: lang}
	}

	doc, err := subtitle.NewRenderer(echo).Render(result.Segments, format)
	if err != nil {
		return nil, err
	}

	if hasFilter {
		doc = filter.FilterDocument(doc, lang)
	}

	outPath := req.OutputPath
	if outPath == "" {
		namePath := req.SourcePath
		if namePath == "" {
			namePath = req.AudioPath
		}
		outPath = subtitle.OutputPath(namePath, lang, format)
	}

	if err := subtitle.WriteDocument(outPath, doc, p.WriteMode); err != nil {
		return nil, err
	}

	elapsed := now().Sub(start)
	logger.Infof("done in %.1fs: %s", elapsed.Seconds(), outPath)

	return &Outcome{
		Path:     outPath,
		Language: lang,
		Format:   format,
		Captions: len(result.Segments),
		Elapsed:  elapsed,
	}, nil
}

// applies the backend's document filter to each echoed block, so the console
// shows the same text that lands in the file
type filteredWriter struct {
	w      io.Writer
	filter transcribe.DocumentFilter
	lang   string
}

func (f *filteredWriter) Write(b []byte) (int, error) {
	if _, err := io.WriteString(f.w, f.filter.FilterDocument(string(b), f.lang)); err != nil {
		return 0, err
	}
	return len(b), nil
}
