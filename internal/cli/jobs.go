package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-ltienrol/internal/app"
	"github.com/mind-engage/mindengage-ltienrol/internal/task"
)

const skippedMsg = "skipped: lti authentication or enrolment is disabled"

// runLocked runs fn once under the task lock shared with "serve".
func runLocked(cmd *cobra.Command, rt *runtime, name string, fn func(ctx context.Context, c *app.Container) error) error {
	c, err := rt.container(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()
	s := task.NewScheduler(c.Locker(), rt.logger)
	return s.RunOnce(cmd.Context(), task.Func(name, func(ctx context.Context) error { return fn(ctx, c) }))
}

func newSyncGradesCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-grades",
		Short: "Push changed grades to the platforms once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocked(cmd, rt, "sync_grades", func(ctx context.Context, c *app.Container) error {
				rep, err := c.GradeSync().Run(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if rep.Skipped {
					fmt.Fprintln(out, skippedMsg)
					return nil
				}
				for _, t := range rep.Tools {
					if t.Failed {
						fmt.Fprintf(out, "tool %d course %d: failed, members could not be listed\n", t.ToolID, t.CourseID)
						continue
					}
					fmt.Fprintf(out, "tool %d course %d: processed %d users, sent %d grades, %d push failures\n",
						t.ToolID, t.CourseID, t.UsersProcessed, t.GradesSent, t.PushFailures)
				}
				return nil
			})
		},
	}
}

func newUnenrolCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "unenrol-expired",
		Short: "Unenrol members whose enrolment period has ended",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocked(cmd, rt, "unenrol_expired", func(ctx context.Context, c *app.Container) error {
				rep, err := c.Unenrol().Run(ctx)
				if err != nil {
					return err
				}
				if rep.Skipped {
					fmt.Fprintln(cmd.OutOrStdout(), skippedMsg)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "unenrolled %d members, %d failures\n", rep.Unenrolled, rep.Failed)
				if rep.ToolsFailed > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%d tools could not be processed\n", rep.ToolsFailed)
				}
				return nil
			})
		},
	}
}

func newMigrateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.container(cmd.Context())
			if err != nil {
				return err
			}
			c.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
