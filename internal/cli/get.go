package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/mkalnins/revtrack/internal/core"
	"github.com/mkalnins/revtrack/internal/models"
	"github.com/mkalnins/revtrack/internal/registry"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <type> <id>",
	Short: "Print an object's field values",
	Long: `Print the live field values of an object, or with --at, the values as
they stood just before the given revision was made.`,
	Args: cobra.ExactArgs(2),
	Run:  runGet,
}

var getAt int

func init() {
	getCmd.Flags().IntVar(&getAt, "at", 0, "Reconstruct the state just before this revision")
}

func runGet(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ref := models.ObjectRef{Type: args[0], ID: args[1]}
	ctx := context.Background()

	if getAt > 0 {
		fields, err := core.Reconstruct(ctx, c.Store, c.Registry, ref, getAt)
		if err != nil {
			exitError("%v", err)
		}
		printFields(toText(fields))
		return
	}

	fields, err := c.Store.GetObject(ctx, ref)
	if err != nil {
		exitError("%v", err)
	}
	printFields(fields)
}

func printFields(fields map[string]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%s: %s\n", name, fields[name])
	}
}

func toText(fields map[string]any) map[string]string {
	out := make(map[string]string, len(fields))
	for name, v := range fields {
		out[name] = registry.Format(v)
	}
	return out
}
