package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/mkalnins/revtrack/internal/models"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log <type> <id>",
	Short: "Show an object's revision history",
	Long:  `Display the revision history of an object, newest first.`,
	Args:  cobra.ExactArgs(2),
	Run:   runLog,
}

var (
	logOneline bool
	logLimit   int
)

func init() {
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "Show each revision on a single line")
	logCmd.Flags().IntVarP(&logLimit, "n", "n", 0, "Limit the number of revisions to show")
}

func runLog(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ref := models.ObjectRef{Type: args[0], ID: args[1]}
	revs, err := c.Store.Log(context.Background(), ref, logLimit)
	if err != nil {
		exitError("failed to get revision log: %v", err)
	}

	if len(revs) == 0 {
		fmt.Println("No revisions yet")
		return
	}

	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	for _, rev := range revs {
		if logOneline {
			yellow.Printf("#%d ", rev.Revision)
			fmt.Printf("%s ", shortSHA(rev.SHA1))
			if rev.Reverted {
				red.Print("[reverted] ")
			}
			fmt.Println(rev.Comment)
			continue
		}

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
	}
}
