package commands

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/modelworks/refit/cmd/refit/opts"
	"github.com/modelworks/refit/pkg/server"
)

// NewServeCmd creates a new serve command
func NewServeCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rename engine over HTTP",
		Long: `Serve exposes every operation as a POST endpoint under /api/v1.
The host session is shared across requests, so concurrent operations
queue on the session gate and fail with 409 when the wait runs out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := zerolog.Ctx(ctx).With().Str("command", "serve").Logger()

			srv, err := server.New(server.Options{
				Host:     opts.Host,
				Session:  opts.Session,
				Operator: opts.Operator,
				Logger:   logger,
			})
			if err != nil {
				return errors.Errorf("creating server: %w", err)
			}

			logger.Info().Str("listen", opts.Config.Listen).Msg("serving")
			if err := http.ListenAndServe(opts.Config.Listen, srv.Handler()); err != nil {
				return errors.Errorf("serving: %w", err)
			}
			return nil
		},
	}

	return cmd
}
