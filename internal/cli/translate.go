package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/language"
	"github.com/mgpai22/captioner/internal/subtitle"
	"github.com/mgpai22/captioner/internal/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [subtitle_file]",
	Short: "Translate an SRT or VTT caption file",
	Long: `Translate the captions of an SRT or WebVTT file with an LLM provider.

Timing is kept as-is; only caption text changes. With --overlay each caption
holds the translation above the original line.

Examples:
  captioner translate talk.zh.srt -t en
  captioner translate talk.srt -t ja --overlay
  captioner translate talk.vtt -t es --provider openai --model gpt-5-mini
  captioner translate talk.srt -t fr --provider anthropic -o talk.french.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	flags := translateCmd.Flags()
	flags.StringP("target-language", "t", "", "Target language code or name (required)")
	flags.StringP("language", "l", "", "Source language (empty to let the model detect it)")
	flags.Bool("overlay", false, "Keep the original text under each translation")
	flags.StringP("api-key", "k", "", "API key for the translation provider")
	flags.String("model", "", "Model to use for translation")
	flags.String("provider", "", "Translation provider (gemini, openai, anthropic)")
	flags.Int("concurrency", 0, "Number of batches translated in parallel")
	flags.Int("batch-size", 0, "Number of captions per request")
	flags.StringP("output", "o", "", "Output file path (default: <name>.<target>.<ext>)")
	flags.String("prompt", "", "Extra instructions appended to the translation prompt")
	addWriteModeFlags(translateCmd)

	_ = translateCmd.MarkFlagRequired("target-language")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	ctx := cmd.Context()
	flags := cmd.Flags()

	target, _ := flags.GetString("target-language")
	source, _ := flags.GetString("language")
	overlay, _ := flags.GetBool("overlay")
	apiKey, _ := flags.GetString("api-key")
	model, _ := flags.GetString("model")
	providerName, _ := flags.GetString("provider")
	concurrency, _ := flags.GetInt("concurrency")
	batchSize, _ := flags.GetInt("batch-size")
	outputPath, _ := flags.GetString("output")
	prompt, _ := flags.GetString("prompt")

	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("%w: target language is required", subtitle.ErrInvalidArgument)
	}
	if source != "" && language.Normalize(source) == language.Normalize(target) {
		return fmt.Errorf(
			"%w: source and target language are both %s",
			subtitle.ErrInvalidArgument,
			language.DisplayName(language.Normalize(target)),
		)
	}

	if providerName == "" {
		providerName = cfg.Translate.Provider
	}
	provider, err := translate.ParseProvider(providerName)
	if err != nil {
		return err
	}

	if apiKey == "" {
		apiKey = providerAPIKey(provider)
	}
	if model == "" && string(provider) == cfg.Translate.Provider {
		model = cfg.Translate.Model
	}
	if batchSize <= 0 {
		batchSize = cfg.Translate.BatchSize
	}
	if concurrency <= 0 {
		concurrency = cfg.Translate.Concurrency
	}

	file, err := subtitle.Open(inputPath)
	if err != nil {
		return err
	}

	translator, err := translate.Factory(ctx, provider, apiKey, translate.Options{
		InputLanguage:  source,
		TargetLanguage: target,
		Model:          model,
		Prompt:         prompt,
		BatchSize:      batchSize,
		Concurrency:    concurrency,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s translator: %w", provider, err)
	}

	logger.Infow("translating",
		"file", inputPath,
		"captions", len(file.Entries()),
		"target", language.DisplayName(language.Normalize(target)),
		"provider", provider,
	)

	changed, err := translator.TranslateFile(ctx, file, overlay)
	if err != nil {
		return err
	}

	if outputPath == "" {
		outputPath = translate.OutputPath(inputPath, target, overlay)
	}
	if err := file.Write(outputPath, writeModeFromFlags(cmd)); err != nil {
		return err
	}

	logger.Infof("translated %d captions: %s", changed, outputPath)
	return nil
}

func providerAPIKey(provider translate.Provider) string {
	switch provider {
	case translate.ProviderGemini:
		return cfg.Gemini.APIKey
	case translate.ProviderOpenAI:
		return cfg.OpenAI.APIKey
	case translate.ProviderAnthropic:
		return cfg.Anthropic.APIKey
	default:
		return ""
	}
}
