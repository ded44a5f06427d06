package cli

import (
	"fmt"

	"github.com/mkalnins/revtrack/internal/config"
	"github.com/mkalnins/revtrack/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new revtrack repository",
	Long: `Initialize a new revtrack repository in the current directory.
This creates a .revtrack directory holding the config and revision database.`,
	Run: runInit,
}

var initEditor string

func init() {
	initCmd.Flags().StringVar(&initEditor, "editor", "", "Default editor name recorded on revisions")
}

func runInit(cmd *cobra.Command, args []string) {
	if _, err := config.FindRoot(); err == nil {
		exitError("revtrack repository already exists")
	}

	cfg, err := config.Initialize()
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	if initEditor != "" {
		cfg.DefaultEditor = initEditor
		if err := cfg.Save(); err != nil {
			exitError("failed to save config: %v", err)
		}
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to initialize store: %v", err)
	}

	fmt.Printf("Initialized empty revtrack repository in %s/\n", config.Dir)
	fmt.Printf("\nRun 'revtrack track <type> <field>...' to register a tracked type.\n")
}
