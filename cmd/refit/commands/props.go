package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/cmd/refit/opts"
	"github.com/modelworks/refit/pkg/cadhost"
	"github.com/modelworks/refit/pkg/props"
)

// NewPropsCmd creates a new props command
func NewPropsCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		dir  string
		sets []string
	)

	cmd := &cobra.Command{
		Use:   "props",
		Short: "Set iProperties on every part and assembly under a directory",
		Long: `Props walks the directory recursively and applies each --set pair to
every part and assembly document found. Failures are per file; one
unreadable document does not stop the walk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			values, err := parseSets(sets)
			if err != nil {
				return err
			}

			updater, err := props.NewUpdater(opts.Session)
			if err != nil {
				return errors.Errorf("creating updater: %w", err)
			}
			rep, err := updater.UpdateIProperties(ctx, dir, values)
			if err != nil {
				return errors.Errorf("updating properties: %w", err)
			}

			opts.Printer.Print(rep)
			if !rep.Success() {
				return errors.Errorf("property update finished with failures")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "D", "", "directory to walk")
	cmd.Flags().StringArrayVarP(&sets, "set", "s", nil, "property to set, as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

// parseSets turns name=value pairs into typed property values. Booleans and
// numbers are recognized, everything else stays a string.
func parseSets(pairs []string) (map[string]cadhost.Value, error) {
	values := make(map[string]cadhost.Value, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, errors.Errorf("invalid --set %q, expected name=value", pair)
		}
		switch {
		case raw == "true" || raw == "false":
			values[name] = cadhost.Bool(raw == "true")
		default:
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				values[name] = cadhost.Number(n)
			} else {
				values[name] = cadhost.String(raw)
			}
		}
	}
	return values, nil
}
