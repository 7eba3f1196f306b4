package commands

import (
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/cmd/refit/opts"
	"github.com/modelworks/refit/pkg/cleanup"
)

// NewCleanCmd creates a new clean command
func NewCleanCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean <file>...",
		Short: "Delete old files left behind by a rename",
		Long: `Clean deletes exactly the listed files, typically the filesToDelete
list from a rename report. Paths are taken literally; no patterns are
expanded. Each deletion succeeds or fails on its own.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rep := cleanup.NewCleaner().Delete(ctx, args)

			opts.Printer.Print(rep)
			if !rep.Success() {
				return errors.Errorf("clean finished with failures")
			}
			return nil
		},
	}

	return cmd
}
