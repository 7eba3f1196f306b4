package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/cmd/refit/opts"
	"github.com/modelworks/refit/pkg/log"
	"github.com/modelworks/refit/pkg/operation"
	"github.com/modelworks/refit/pkg/report"
)

// NewRenameCmd creates a new rename command
func NewRenameCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		modelPath    string
		prefix       string
		drawingsPath string
		projectPath  string
		oldPrefix    string
		newPrefix    string
	)

	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename a document tree and repair its references",
		Long: `Rename walks the assembly trees under the model directory bottom-up,
saving each member under its new name and rewriting parent references
to point at it. With --old-prefix and --new-prefix the drawings
directory and project file are repaired too; with --prefix every member
just gains the prefix.

Old files are left behind and listed in the report; remove them with
'refit clean'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			console := log.New(os.Stdout, zerolog.InfoLevel)
			console.StartTreeOperation(ctx, log.TreeOperation{
				Root:     modelPath,
				Rule:     ruleDescription(prefix, oldPrefix, newPrefix),
				Drawings: drawingsPath,
			})

			var rep *report.BatchReport
			var err error
			switch {
			case oldPrefix != "" && newPrefix != "":
				if drawingsPath == "" {
					return errors.Errorf("--drawings is required with --old-prefix/--new-prefix")
				}
				rep, err = opts.Operator.RenameWithPrefixAndDrawings(ctx, operation.FullRenameRequest{
					ModelPath:    modelPath,
					DrawingsPath: drawingsPath,
					ProjectPath:  projectPath,
					OldPrefix:    oldPrefix,
					NewPrefix:    newPrefix,
				})
			case prefix != "":
				rep, err = opts.Operator.RenameWithPrefix(ctx, operation.PrefixRequest{
					ModelPath: modelPath,
					Prefix:    prefix,
				})
			default:
				return errors.Errorf("either --prefix or --old-prefix/--new-prefix is required")
			}
			if err != nil {
				return errors.Errorf("renaming: %w", err)
			}

			logReport(ctx, console, rep)
			console.EndTreeOperation(ctx)

			opts.Printer.Print(rep)
			if !rep.Success() {
				return errors.Errorf("rename finished with failures")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "model directory containing the assembly trees")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "prefix to prepend to every member name")
	cmd.Flags().StringVar(&drawingsPath, "drawings", "", "drawings directory to repair")
	cmd.Flags().StringVar(&projectPath, "project", "", "project file to repair")
	cmd.Flags().StringVar(&oldPrefix, "old-prefix", "", "prefix to replace in member names")
	cmd.Flags().StringVar(&newPrefix, "new-prefix", "", "replacement prefix")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func ruleDescription(prefix, oldPrefix, newPrefix string) string {
	if oldPrefix != "" && newPrefix != "" {
		return oldPrefix + " -> " + newPrefix
	}
	return "+" + prefix
}

// logReport renders the per-file outcomes on the console logger
func logReport(ctx context.Context, console *log.Logger, rep *report.BatchReport) {
	for _, e := range rep.Renamed {
		console.LogFileOperation(ctx, log.FileOperation{
			Path: filepath.Base(e.Path), Phase: "rename", Status: "renamed", IsRenamed: true,
		})
	}
	for _, e := range rep.UpdatedReferences {
		console.LogFileOperation(ctx, log.FileOperation{
			Path: filepath.Base(e.Path), Phase: "references", Status: "updated", IsUpdated: true,
		})
	}
	for _, e := range rep.FailedRenames {
		console.LogFileOperation(ctx, log.FileOperation{
			Path: filepath.Base(e.Path), Phase: "rename", Status: string(e.Reason), IsFailed: true,
		})
	}
	for _, e := range rep.Failed {
		console.LogFileOperation(ctx, log.FileOperation{
			Path: filepath.Base(e.Path), Phase: "references", Status: string(e.Reason), IsFailed: true,
		})
	}
}
