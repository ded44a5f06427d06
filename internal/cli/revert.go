package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mkalnins/revtrack/internal/actor"
	"github.com/mkalnins/revtrack/internal/core"
	"github.com/mkalnins/revtrack/internal/models"
	"github.com/spf13/cobra"
)

var revertCmd = &cobra.Command{
	Use:   "revert <type> <id> <revision>",
	Short: "Restore an object to a past revision",
	Long: `Restore an object's live state to how it stood right after the given
revision, recording the restoration as a new revision. The revisions
being undone are flagged as reverted but never deleted.`,
	Args: cobra.ExactArgs(3),
	Run:  runRevert,
}

var revertEditor string

func init() {
	revertCmd.Flags().StringVar(&revertEditor, "editor", "", "Editor recorded on the revert revision (default from config)")
}

func runRevert(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ref := models.ObjectRef{Type: args[0], ID: args[1]}
	target, err := strconv.Atoi(args[2])
	if err != nil || target < 1 {
		exitError("revision must be a positive integer, got %q", args[2])
	}

	editor := revertEditor
	if editor == "" {
		editor = c.Config.DefaultEditor
	}

	ctx := actor.With(context.Background(), editor, "")
	rev, err := core.Revert(ctx, c.Store, c.Registry, ref, target, core.Meta{})
	if err != nil {
		exitError("%v", err)
	}

	if rev == nil {
		fmt.Printf("Already at revision #%d, nothing to revert\n", target)
		return
	}
	fmt.Printf("Reverted %s to revision #%d (recorded as #%d)\n", ref, target, rev.Revision)
}
