package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mgpai22/captioner/internal/language"
	"github.com/mgpai22/captioner/internal/subtitle"
)

// single text item to translate
type TranslationItem struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// translated text item
type TranslationResult struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// translation service provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 3
)

func ParseProvider(name string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported translation provider: %q", name)
	}
}

type Options struct {
	InputLanguage  string
	TargetLanguage string
	Model          string
	Prompt         string
	BatchSize      int // items per API request
	Concurrency    int // batches in flight
}

// sends one prompt to a model and returns its text reply
type completer interface {
	complete(ctx context.Context, prompt string) (string, error)
}

// Translator splits items into batches and translates them with a pool of
// workers against one provider.
type Translator struct {
	provider Provider
	client   completer
	options  Options
}

// creates Translator based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (*Translator, error) {
	if opts.TargetLanguage == "" {
		return nil, fmt.Errorf("target language is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for %s", provider)
	}

	var (
		client completer
		err    error
	)
	switch provider {
	case ProviderGemini:
		client, err = newGeminiCompleter(ctx, apiKey, opts.Model)
	case ProviderOpenAI:
		client = newOpenAICompleter(apiKey, opts.Model)
	case ProviderAnthropic:
		client = newAnthropicCompleter(apiKey, opts.Model)
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}

	return newTranslator(provider, client, opts), nil
}

func newTranslator(provider Provider, client completer, opts Options) *Translator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Translator{provider: provider, client: client, options: opts}
}

func (t *Translator) Provider() Provider {
	return t.provider
}

// Translate returns one result per item, ordered by index. Workers pull
// batches from a shared queue; the first failing batch cancels the rest.
func (t *Translator) Translate(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	if len(items) == 0 {
		return []TranslationResult{}, nil
	}

	var batches [][]TranslationItem
	for i := 0; i < len(items); i += t.options.BatchSize {
		end := min(i+t.options.BatchSize, len(items))
		batches = append(batches, items[i:end])
	}

	if len(batches) == 1 {
		return t.translateBatch(ctx, batches[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type batchResult struct {
		Index   int
		Results []TranslationResult
		Error   error
	}

	workChan := make(chan int)
	resultChan := make(chan batchResult, len(batches))

	var wg sync.WaitGroup
	for i := 0; i < t.options.Concurrency && i < len(batches); i++ {
		wg.Go(func() {
			for batchIdx := range workChan {
				if ctx.Err() != nil {
					return
				}
				results, err := t.translateBatch(ctx, batches[batchIdx])
				if err != nil {
					cancel()
				}
				resultChan <- batchResult{Index: batchIdx, Results: results, Error: err}
			}
		})
	}

	go func() {
		defer close(workChan)
		for i := range batches {
			select {
			case <-ctx.Done():
				return
			case workChan <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var (
		all      []TranslationResult
		firstErr error
	)
	for result := range resultChan {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("batch %d failed: %w", result.Index, result.Error)
			}
			continue
		}
		all = append(all, result.Results...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if len(all) != len(items) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("expected %d results, got %d", len(items), len(all))
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Index < all[j].Index
	})

	return all, nil
}

func (t *Translator) translateBatch(
	ctx context.Context,
	items []TranslationItem,
) ([]TranslationResult, error) {
	reply, err := t.client.complete(ctx, BuildPrompt(t.options, items))
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("empty response from %s", t.provider)
	}

	text := cleanJSONResponse(reply)
	results, err := extractTranslationResults(text)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to parse JSON response: %w (response: %s)",
			err,
			truncateString(text, 200),
		)
	}

	if len(results) != len(items) {
		return nil, fmt.Errorf("expected %d results, got %d", len(items), len(results))
	}

	return results, nil
}

// TranslateFile replaces every caption of file with its translation, or with
// "translation\noriginal" when overlay is set. It returns the number of
// captions changed.
func (t *Translator) TranslateFile(ctx context.Context, file subtitle.File, overlay bool) (int, error) {
	entries := file.Entries()
	if len(entries) == 0 {
		return 0, fmt.Errorf("%w: subtitle file contains no entries", subtitle.ErrEmptyResult)
	}

	items := make([]TranslationItem, len(entries))
	for i, e := range entries {
		items[i] = TranslationItem{Index: i, Text: e.Text}
	}

	results, err := t.Translate(ctx, items)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(entries) {
			continue
		}
		text := r.Text
		if overlay {
			text = r.Text + "\n" + entries[r.Index].Text
		}
		if err := file.SetText(r.Index, text); err != nil {
			return changed, fmt.Errorf("failed to set text for entry %d: %w", r.Index, err)
		}
		changed++
	}
	return changed, nil
}

// OutputPath names a translated copy of path: movie.en.srt -> movie.ja.srt,
// movie.srt -> movie.ja.srt; overlay output gets an extra ".overlay".
func OutputPath(path, target string, overlay bool) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if prev := filepath.Ext(base); isLanguageCode(strings.TrimPrefix(prev, ".")) {
		base = strings.TrimSuffix(base, prev)
	}

	code := language.Normalize(target)
	if overlay {
		return base + "." + code + ".overlay" + ext
	}
	return base + "." + code + ext
}

// only codes from the known table count, so "movie.v2.srt" keeps its ".v2"
func isLanguageCode(s string) bool {
	if len(s) < 2 || len(s) > 3 {
		return false
	}
	return language.DisplayName(s) != strings.ToUpper(s)
}

// BuildPrompt creates the translation prompt for LLM providers
func BuildPrompt(opts Options, items []TranslationItem) string {
	var sb strings.Builder

	target := language.DisplayName(opts.TargetLanguage)
	if opts.InputLanguage != "" {
		sb.WriteString(fmt.Sprintf(
			"Translate the following %s subtitle texts to %s.\n\n",
			language.DisplayName(opts.InputLanguage),
			target,
		))
	} else {
		sb.WriteString(fmt.Sprintf("Translate the following subtitle texts to %s.\n\n", target))
	}

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Translate ONLY the text content, preserving the meaning.\n")
	sb.WriteString("2. Keep any markup tags (like <i>, <b>) unchanged.\n")
	sb.WriteString("3. Preserve line breaks in the same positions.\n")
	sb.WriteString("4. Return ONLY a JSON array with the same structure.\n")
	sb.WriteString("5. Each object must have 'index' and 'text' fields.\n")
	sb.WriteString("6. The 'index' values must match the input indices exactly.\n")
	sb.WriteString("7. Do not add any explanation or markdown formatting.\n\n")

	if opts.Prompt != "" {
		sb.WriteString(fmt.Sprintf("Additional instructions: %s\n\n", opts.Prompt))
	}

	sb.WriteString("Input JSON:\n")

	inputJSON, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(inputJSON)

	sb.WriteString("\n\nOutput the translated JSON array only:")

	return sb.String()
}
