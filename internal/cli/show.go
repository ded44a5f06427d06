package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/mkalnins/revtrack/internal/core"
	"github.com/mkalnins/revtrack/internal/models"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <type> <id> <revision>",
	Short: "Show what a revision changed",
	Long: `Show the details of a revision and, for every field it touched, the
change rendered as an inline diff in original chronological order
(deletions from the older value, insertions from the newer one).`,
	Args: cobra.ExactArgs(3),
	Run:  runShow,
}

func runShow(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ref := models.ObjectRef{Type: args[0], ID: args[1]}
	target, err := strconv.Atoi(args[2])
	if err != nil || target < 1 {
		exitError("revision must be a positive integer, got %q", args[2])
	}

	ctx := context.Background()
	rev, err := c.Store.GetRevision(ctx, ref, target)
	if err != nil {
		exitError("%v", err)
	}

	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	yellow.Printf("revision #%d %s", rev.Revision, rev.SHA1)
	if rev.Reverted {
		red.Print(" [reverted]")
	}
	fmt.Println()
	if !rev.Anonymous() {
		fmt.Printf("Editor: %s\n", rev.Editor)
	}
	fmt.Printf("Date:   %s\n", rev.CreatedAt.Format("Mon Jan 2 15:04:05 2006"))
	if rev.Comment != "" {
		fmt.Printf("\n    %s\n", rev.Comment)
	}
	fmt.Println()

	diffs, err := core.RenderDiff(ctx, c.Store, c.Registry, ref, target)
	if err != nil {
		exitError("failed to render diff: %v", err)
	}

	if len(diffs) == 0 {
		fmt.Println("No field changes in this revision")
		return
	}

	cyan := color.New(color.FgCyan)
	for _, fd := range diffs {
		cyan.Printf("%s.%s:\n", ref.Type, fd.Field)
		fmt.Printf("  %s\n", renderInline(fd.Diffs))
	}
}

// renderInline renders a diff on one line: deletions red, insertions green,
// equal runs plain.
func renderInline(diffs []diffmatchpatch.Diff) string {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	var out string
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			out += red.Sprint(d.Text)
		case diffmatchpatch.DiffInsert:
			out += green.Sprint(d.Text)
		default:
			out += d.Text
		}
	}
	return out
}
