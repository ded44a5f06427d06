package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for revtrack.

To load completions:

Bash:
  $ source <(revtrack completion bash)
  # Or add to ~/.bashrc:
  $ echo 'source <(revtrack completion bash)' >> ~/.bashrc

Zsh:
  $ source <(revtrack completion zsh)
  # Or add to ~/.zshrc:
  $ echo 'source <(revtrack completion zsh)' >> ~/.zshrc

Fish:
  $ revtrack completion fish | source
  # Or add to config:
  $ revtrack completion fish > ~/.config/fish/completions/revtrack.fish
`,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		DisableFlagsInUseLine: true,
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				rootCmd.GenFishCompletion(os.Stdout, true)
			}
		},
	})
}
