package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/api"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := openProject(ctx, g)
			if err != nil {
				return err
			}
			defer p.Close()

			if addr == "" {
				addr = p.cfg.Server.Addr
			}
			gin.SetMode(gin.ReleaseMode)
			srv := api.New(p.svc, p.log.With().Str("component", "api").Logger())
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from fintrack.yaml)")
	return cmd
}
