// Package cli implements the command-line interface for revtrack.
package cli

import (
	"fmt"
	"os"

	"github.com/mkalnins/revtrack/internal/config"
	"github.com/mkalnins/revtrack/internal/registry"
	"github.com/mkalnins/revtrack/internal/store"
	"github.com/spf13/cobra"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config   *config.Config
	Store    *store.Store
	Registry *registry.Registry
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext initializes config, store, and the field registry
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}

	if err := st.Initialize(); err != nil {
		st.Close()
		exitError("failed to initialize store: %v", err)
	}

	reg, err := cfg.Registry()
	if err != nil {
		st.Close()
		exitError("invalid tracked type configuration: %v", err)
	}

	return &cmdContext{Config: cfg, Store: st, Registry: reg}
}

var rootCmd = &cobra.Command{
	Use:   "revtrack",
	Short: "Field-level revision tracking",
	Long: `revtrack keeps a full revision history for mutable records. Every edit
is stored as a per-field reverse diff, so any object can be reconstructed
as it stood at any past revision, diffed between revisions, or reverted.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(serverCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortSHA returns the first 8 characters of a fingerprint
func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
