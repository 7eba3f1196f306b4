package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/cmd/refit/opts"
	"github.com/modelworks/refit/pkg/operation"
)

// NewAnalyzeCmd creates a new analyze command
func NewAnalyzeCmd(opts *opts.RootOpts) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "analyze <assembly>...",
		Short: "Preview a prefix rename without touching anything",
		Long: `Analyze builds the document tree under the given assemblies and
reports the exact rename mapping an execution on the same inputs would
use. Nothing on disk is opened for writing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			analysis, err := opts.Operator.Analyze(ctx, operation.AnalyzeRequest{
				PartPrefix:   prefix,
				AssemblyList: args,
			})
			if err != nil {
				return errors.Errorf("analyzing: %w", err)
			}

			for _, m := range analysis.Moves {
				pterm.Info.WithPrefix(pterm.Prefix{Text: "move"}).Println(
					fmt.Sprintf("%s -> %s", m.From, m.To))
			}
			for _, w := range analysis.Warnings {
				pterm.Warning.Println(fmt.Sprintf("%s: %s", w.Path, w.Message))
			}
			for _, f := range analysis.Failures {
				pterm.Error.Println(fmt.Sprintf("%s (%s) %s", f.Path, f.Reason, f.Detail))
			}
			pterm.Success.Println(fmt.Sprintf("%d moves planned, %d failures, nothing was modified",
				len(analysis.Moves), len(analysis.Failures)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "prefix to prepend to every member name")
	_ = cmd.MarkFlagRequired("prefix")
	return cmd
}
