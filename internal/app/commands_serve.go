package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agis/bookcal/internal/contract"
	"github.com/agis/bookcal/internal/output"
	"github.com/agis/bookcal/internal/server"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts and stats as JSON over HTTP",
		RunE: func(c *cobra.Command, _ []string) error {
			p, src, ro, err := buildContext(c, opts, "serve")
			if err != nil {
				return err
			}
			level := zap.NewAtomicLevelAt(zap.InfoLevel)
			if ro.Verbose {
				level.SetLevel(zap.DebugLevel)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}
			log := newLoggerAt(c.ErrOrStderr(), level, p.Mode == output.ModeJSON || p.Mode == output.ModeJSONL)
			defer func() { _ = log.Sync() }()

			srv := server.New(server.Config{
				Source:    src,
				Settings:  ro.Layout,
				Location:  ro.location(),
				WeekStart: ro.weekStart(),
				Logger:    log,
				Version:   BuildVersionString(),
				Timeout:   ro.Timeout,
			})
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.Run(ctx, addr); err != nil {
				log.Error("server stopped", zap.Error(err))
				return failWithHint(p, contract.ErrGeneric, err, "Check that --addr is free", exitGeneric)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	return cmd
}
