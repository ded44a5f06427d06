package cli

import (
	"fmt"
	"strings"

	"github.com/mkalnins/revtrack/internal/config"
	"github.com/mkalnins/revtrack/internal/registry"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track <type> <field[:kind][:nullable]>...",
	Short: "Register a tracked entity type",
	Long: `Register an entity type and the fields to version. Each field takes an
optional kind (text, bool, int, float; default text) and an optional
"nullable" marker.

Examples:
  revtrack track Article title body
  revtrack track Article title body:text:nullable published:bool
  revtrack track Product name price:float stock:int`,
	Args: cobra.MinimumNArgs(2),
	Run:  runTrack,
}

func runTrack(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	typeName := args[0]
	spec := config.TypeSpec{Name: typeName}

	for _, arg := range args[1:] {
		field, err := parseFieldArg(arg)
		if err != nil {
			exitError("%v", err)
		}
		spec.Fields = append(spec.Fields, field)
	}

	c.Config.SetType(spec)

	// Validate before persisting so a bad kind never lands in the config.
	if _, err := c.Config.Registry(); err != nil {
		exitError("%v", err)
	}

	if err := c.Config.Save(); err != nil {
		exitError("failed to save config: %v", err)
	}

	fmt.Printf("Tracking %s (%d fields)\n", typeName, len(spec.Fields))
}

// parseFieldArg parses "name", "name:kind", or "name:kind:nullable".
func parseFieldArg(arg string) (config.FieldSpec, error) {
	parts := strings.Split(arg, ":")
	if parts[0] == "" {
		return config.FieldSpec{}, fmt.Errorf("empty field name in %q", arg)
	}

	spec := config.FieldSpec{Name: parts[0]}
	switch len(parts) {
	case 1:
	case 2:
		spec.Kind = parts[1]
	case 3:
		spec.Kind = parts[1]
		if parts[2] != "nullable" {
			return config.FieldSpec{}, fmt.Errorf("expected 'nullable' in %q, got %q", arg, parts[2])
		}
		spec.Nullable = true
	default:
		return config.FieldSpec{}, fmt.Errorf("malformed field spec %q", arg)
	}

	if spec.Kind != "" {
		if _, err := registry.ParseKind(spec.Kind); err != nil {
			return config.FieldSpec{}, err
		}
	}
	return spec, nil
}
