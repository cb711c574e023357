// Package cli is the ltienrol command line.
package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-ltienrol/internal/app"
	"github.com/mind-engage/mindengage-ltienrol/internal/config"
)

type runtime struct {
	envFiles []string
	cfg      config.Config
	logger   *slog.Logger
	settings config.Provider
}

type commandContextKey struct{}

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

// container opens storage and remote clients for commands that need them.
func (rt *runtime) container(ctx context.Context) (*app.Container, error) {
	return app.NewContainer(ctx, rt.cfg, rt.settings, rt.logger)
}

func NewRootCmd() *cobra.Command {
	rt := &runtime{settings: config.EnvProvider{}}
	root := &cobra.Command{
		Use:           "ltienrol",
		Short:         "Enrol and grade platform users launched through LTIAAS",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rt.envFiles...)
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
			slog.SetDefault(rt.logger)

			info := commandContext{correlationID: uuid.New(), startedAt: time.Now()}
			cmd.SetContext(context.WithValue(cmd.Context(), commandContextKey{}, info))
			rt.logger.Debug("command start", "command", cmd.CommandPath(), "correlation_id", info.correlationID.String())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
			if !ok {
				return
			}
			rt.logger.Debug("command end", "command", cmd.CommandPath(),
				"correlation_id", info.correlationID.String(),
				"duration_ms", time.Since(info.startedAt).Milliseconds())
		},
	}
	root.PersistentFlags().StringSliceVar(&rt.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		newServeCmd(rt),
		newSyncGradesCmd(rt),
		newUnenrolCmd(rt),
		newMigrateCmd(rt),
		newToolCmd(rt),
		newContextCmd(rt),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("error:", err)
		return 1
	}
	return 0
}

