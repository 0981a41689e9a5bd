package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/audio"
	"github.com/mgpai22/captioner/internal/pipeline"
	"github.com/mgpai22/captioner/internal/subtitle"
	"github.com/mgpai22/captioner/internal/transcribe"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [audio_path]",
	Short: "Transcribe an audio or video file into a caption file",
	Long: `Transcribe the given audio file with the selected backend and write the
captions next to it as <name>.<language>.<ext>. Captions are also printed to
stdout as they are rendered.

Video files are re-encoded to 16 kHz mono mp3 first (requires ffmpeg); use
--compress to do the same for large audio files before uploading.

Examples:
  captioner transcribe talk.mp3
  captioner transcribe talk.mp3 -l zh -f vtt
  captioner transcribe talk.mp3 -b assemblyai
  captioner transcribe talk.mp3 -b openai --base-url https://api.lemonfox.ai/v1 -l en
  captioner transcribe lecture.mkv -b faster-whisper --device cpu --compute-type int8`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	flags := transcribeCmd.Flags()
	flags.StringP("language", "l", "", "Language code, e.g. en, zh (empty to auto-detect)")
	flags.StringP("format", "f", "", fmt.Sprintf("Output format (%s)", strings.Join(subtitle.SupportedFormats(), ", ")))
	flags.StringP("backend", "b", "", "Transcription backend (see 'captioner backends')")
	flags.StringP("output", "o", "", "Output file path (default: derived from the audio path)")
	flags.String("model", "", "Model name for the backend")
	flags.StringP("api-key", "k", "", "API key for remote backends")
	flags.String("base-url", "", "Base URL for OpenAI-compatible or AssemblyAI endpoints")
	flags.String("device", "", "Device for local models (cuda, cpu)")
	flags.String("compute-type", "", "faster-whisper compute type (float16, int8, int8_float16)")
	flags.Int("beam-size", 0, "faster-whisper beam size")
	flags.Bool("no-cjk-fix", false, "Keep the spaces AssemblyAI puts between Chinese words")
	flags.Bool("compress", false, "Re-encode the input with ffmpeg before transcription")
	addWriteModeFlags(transcribeCmd)
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx := cmd.Context()
	flags := cmd.Flags()

	lang, _ := flags.GetString("language")
	formatID, _ := flags.GetString("format")
	backendName, _ := flags.GetString("backend")
	outputPath, _ := flags.GetString("output")
	noCJKFix, _ := flags.GetBool("no-cjk-fix")
	compress, _ := flags.GetBool("compress")

	if formatID == "" {
		formatID = cfg.Defaults.Format
	}
	format, err := subtitle.ParseFormat(formatID)
	if err != nil {
		return err
	}

	if backendName == "" {
		backendName = cfg.Defaults.Backend
	}
	backend, err := transcribe.ParseBackend(backendName)
	if err != nil {
		return err
	}

	opts := transcribe.Options{Language: strings.TrimSpace(lang), Logger: logger}
	opts.Model, _ = flags.GetString("model")
	opts.APIKey, _ = flags.GetString("api-key")
	opts.BaseURL, _ = flags.GetString("base-url")
	opts.Device, _ = flags.GetString("device")
	opts.ComputeType, _ = flags.GetString("compute-type")
	opts.BeamSize, _ = flags.GetInt("beam-size")

	if !audio.IsMediaFile(mediaPath) {
		logger.Warnw("unrecognized media extension, passing file through",
			"path", mediaPath,
			"ext", filepath.Ext(mediaPath),
		)
	}

	prepared, err := audio.Prepare(mediaPath, compress)
	if err != nil {
		return err
	}
	defer func() {
		if err := prepared.Cleanup(); err != nil {
			logger.Warnw("failed to remove temp audio", "error", err)
		}
	}()
	if prepared.Compressed {
		logger.Infow("re-encoded input", "source", mediaPath, "audio", prepared.Path)
	}

	if duration, err := audio.GetDuration(ctx, prepared.Path); err == nil {
		logger.Infow("audio", "path", mediaPath, "duration", duration.Round(time.Second))
	} else {
		logger.Debugw("duration probe skipped", "error", err)
	}

	transcriber, err := transcribe.Factory(ctx, backend, cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to create %s transcriber: %w", backend, err)
	}

	p := &pipeline.Pipeline{
		Transcriber: transcriber,
		Echo:        cmd.OutOrStdout(),
		Logger:      logger,
		WriteMode:   writeModeFromFlags(cmd),
		FixCJK:      !noCJKFix,
	}

	outcome, err := p.Run(ctx, pipeline.Request{
		AudioPath:  prepared.Path,
		SourcePath: mediaPath,
		Language:   opts.Language,
		Format:     string(format),
		OutputPath: outputPath,
	})
	if err != nil {
		return err
	}

	logger.Debugw("transcription summary",
		"backend", transcriber.Name(),
		"captions", outcome.Captions,
		"language", outcome.Language,
		"format", outcome.Format,
		"write_mode", p.WriteMode,
	)

	return nil
}
