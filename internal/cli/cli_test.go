package cli

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/config"
	"github.com/mgpai22/captioner/internal/subtitle"
	"github.com/mgpai22/captioner/internal/transcribe"
	"github.com/mgpai22/captioner/internal/translate"
)

func newWriteModeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	addWriteModeFlags(cmd)
	return cmd
}

func TestWriteModeFromFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want subtitle.WriteMode
	}{
		{name: "default", args: nil, want: subtitle.WriteOverwrite},
		{name: "atomic", args: []string{"--atomic"}, want: subtitle.WriteAtomic},
		{name: "no clobber", args: []string{"--no-clobber"}, want: subtitle.WriteNoClobber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newWriteModeCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags returned error: %v", err)
			}
			if got := writeModeFromFlags(cmd); got != tt.want {
				t.Errorf("writeModeFromFlags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriteModeFlagsAreExclusive(t *testing.T) {
	cmd := newWriteModeCmd()
	cmd.SetArgs([]string{"--atomic", "--no-clobber"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when both --atomic and --no-clobber are set")
	}
}

func TestRenderBackends(t *testing.T) {
	out := renderBackends(transcribe.Backends(), "assemblyai")

	for _, b := range transcribe.Backends() {
		if !strings.Contains(out, string(b.Backend)) {
			t.Errorf("table is missing backend %s:\n%s", b.Backend, out)
		}
	}
	if !strings.Contains(out, "assemblyai (default)") {
		t.Errorf("table does not mark the default backend:\n%s", out)
	}
	if strings.Contains(out, "openai (default)") {
		t.Errorf("only the default backend should be marked:\n%s", out)
	}
	if !strings.Contains(out, "ASSEMBLYAI_API_KEY") {
		t.Errorf("table is missing environment variables:\n%s", out)
	}
}

func TestProviderAPIKey(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	defaults := config.Default()
	cfg = &defaults
	cfg.Gemini.APIKey = "gemini-key"
	cfg.OpenAI.APIKey = "openai-key"
	cfg.Anthropic.APIKey = "anthropic-key"

	tests := map[translate.Provider]string{
		translate.ProviderGemini:    "gemini-key",
		translate.ProviderOpenAI:    "openai-key",
		translate.ProviderAnthropic: "anthropic-key",
		translate.Provider("other"): "",
	}
	for provider, want := range tests {
		if got := providerAPIKey(provider); got != want {
			t.Errorf("providerAPIKey(%s) = %q, want %q", provider, got, want)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"transcribe": false, "translate": false, "backends": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q is not registered", name)
		}
	}
}
