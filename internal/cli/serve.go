package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newServeCmd(rt *runtime) *cobra.Command {
	var noScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the launch and deep linking endpoints and run scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := rt.container(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if !noScheduler {
				sched := c.Scheduler()
				go func() {
					if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						rt.logger.Error("scheduler stopped", "err", err)
					}
				}()
			}

			srv := &http.Server{
				Addr:              rt.cfg.HTTPAddr,
				Handler:           c.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				rt.logger.Info("listening", "addr", rt.cfg.HTTPAddr, "db", rt.cfg.DBDriver)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			rt.logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run the periodic jobs in this process")
	return cmd
}
