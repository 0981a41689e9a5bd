package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/config"
	"github.com/mgpai22/captioner/internal/logging"
)

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "captioner",
	Short: "Speech-to-text subtitle generator",
	Long: `Captioner sends an audio or video file to a speech-to-text backend
(a local Whisper model, the OpenAI API, AssemblyAI or Gemini) and writes the
result as an SRT, WebVTT, plain text or JSON caption file next to the input.

Settings are read from flags, then environment variables, then the TOML file
at --config (default: $CAPTIONER_CONFIG or <user config dir>/captioner/config.toml).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewLogger(verbose)

		loaded, found, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if found {
			logger.Debugw("loaded config", "path", configFileName())
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func configFileName() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", "Path to a TOML config file")
}
