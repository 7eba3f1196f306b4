package commands

import (
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/cmd/refit/opts"
	"github.com/modelworks/refit/pkg/operation"
)

// NewDrawingsCmd creates a new drawings command
func NewDrawingsCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		drawingsPath string
		modelPath    string
		projectPath  string
		oldPrefix    string
		newPrefix    string
	)

	cmd := &cobra.Command{
		Use:   "drawings",
		Short: "Repair drawings against models already renamed on disk",
		Long: `Drawings scans the drawings directory for documents referencing the
model directory and substitutes the prefix in each stored reference.
A reference is only rewritten when the renamed target actually exists;
otherwise the drawing is reported as an ambiguous reference.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rep, err := opts.Operator.UpdateDrawingReferences(ctx, operation.DrawingUpdateRequest{
				DrawingsPath: drawingsPath,
				ModelPath:    modelPath,
				ProjectPath:  projectPath,
				OldPrefix:    oldPrefix,
				NewPrefix:    newPrefix,
			})
			if err != nil {
				return errors.Errorf("updating drawings: %w", err)
			}

			opts.Printer.Print(rep)
			if !rep.Success() {
				return errors.Errorf("drawing update finished with failures")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&drawingsPath, "drawings", "", "drawings directory to repair")
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "model directory the drawings reference")
	cmd.Flags().StringVar(&projectPath, "project", "", "project file to repair")
	cmd.Flags().StringVar(&oldPrefix, "old-prefix", "", "prefix to replace in references")
	cmd.Flags().StringVar(&newPrefix, "new-prefix", "", "replacement prefix")
	_ = cmd.MarkFlagRequired("drawings")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("old-prefix")
	_ = cmd.MarkFlagRequired("new-prefix")
	return cmd
}
