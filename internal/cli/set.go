package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mkalnins/revtrack/internal/actor"
	"github.com/mkalnins/revtrack/internal/core"
	"github.com/mkalnins/revtrack/internal/models"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <type> <id> <field=value>...",
	Short: "Save field values and record a revision",
	Long: `Save field values for an object, recording one revision covering every
field that actually changed. Pass '-' as the id to create a new object
with a generated UUID. Use '<null>' as a value to clear a nullable field.

Examples:
  revtrack set Article - title="First post" body="Hello"
  revtrack set Article 42 title="Edited title" --comment "typo fix"`,
	Args: cobra.MinimumNArgs(3),
	Run:  runSet,
}

var (
	setComment string
	setEditor  string
)

func init() {
	setCmd.Flags().StringVarP(&setComment, "comment", "m", "", "Comment recorded on the revision")
	setCmd.Flags().StringVar(&setEditor, "editor", "", "Editor recorded on the revision (default from config)")
}

func runSet(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	typeName := args[0]
	if !c.Registry.Tracked(typeName) {
		exitError("type %q is not tracked; run 'revtrack track %s <field>...' first", typeName, typeName)
	}

	id := args[1]
	if id == "-" {
		id = uuid.NewString()
	}
	ref := models.ObjectRef{Type: typeName, ID: id}

	fields := make(map[string]string)
	for _, arg := range args[2:] {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			exitError("expected field=value, got %q", arg)
		}
		if _, tracked := c.Registry.Lookup(typeName, name); !tracked {
			exitError("field %q is not tracked for %s", name, typeName)
		}
		fields[name] = value
	}

	editor := setEditor
	if editor == "" {
		editor = c.Config.DefaultEditor
	}

	ctx := actor.With(context.Background(), editor, "")

	existed, err := c.Store.HasObject(ctx, ref)
	if err != nil {
		exitError("%v", err)
	}

	rev, err := core.Save(ctx, c.Store, c.Registry, ref, fields, core.Meta{Comment: setComment})
	if err != nil {
		exitError("%v", err)
	}

	if !existed {
		fmt.Printf("Created %s\n", ref)
	}
	if rev == nil {
		fmt.Println("No changes")
		return
	}
	fmt.Printf("Recorded revision #%d (%s)\n", rev.Revision, shortSHA(rev.SHA1))
}
