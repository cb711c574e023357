package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-ltienrol/internal/catalog"
	"github.com/mind-engage/mindengage-ltienrol/internal/host"
	"github.com/mind-engage/mindengage-ltienrol/internal/ltiaas"
)

func newToolCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Manage published tools",
	}
	cmd.AddCommand(
		newToolCreateCmd(rt),
		newToolListCmd(rt),
		newToolDeleteCmd(rt),
		newToolStatusCmd(rt, "enable", host.StatusEnabled),
		newToolStatusCmd(rt, "disable", host.StatusDisabled),
	)
	return cmd
}

func newToolCreateCmd(rt *runtime) *cobra.Command {
	var (
		courseID    int64
		maildisplay int
		in          = host.DefaultToolInput(0)
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a course or activity context as a tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("maildisplay") {
				in.MailDisplay = &maildisplay
			}
			if err := in.Validate(); err != nil {
				return err
			}
			c, err := rt.container(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			hctx, err := c.Store.Context(cmd.Context(), in.ContextID)
			if err != nil {
				return err
			}
			if courseID == 0 {
				courseID = hctx.CourseID
			}
			t, err := c.Store.CreateTool(cmd.Context(), courseID, in, time.Now().Unix())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created tool %d\n", t.ID)
			if st, err := rt.settings.Settings(cmd.Context()); err == nil {
				if u, err := ltiaas.LaunchURL(st.LTIAASURL, t.ID); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "launch url: %s\n", u)
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&in.ContextID, "context", 0, "context id of the course or activity")
	f.Int64Var(&courseID, "course", 0, "course id (default: the context's course)")
	f.StringVar(&in.Name, "name", "", "tool name")
	f.StringVar(&in.CustomDescription, "description", "", "custom description")
	f.Int64Var(&in.EnrolStartDate, "start", 0, "enrolment start, unix seconds")
	f.Int64Var(&in.EnrolEndDate, "end", 0, "enrolment end, unix seconds")
	f.Int64Var(&in.EnrolPeriod, "period", 0, "enrolment duration in seconds")
	f.IntVar(&in.MaxEnrolled, "max-enrolled", 0, "maximum enrolled users, 0 for no limit")
	f.Int64Var(&in.RoleInstructor, "role-instructor", in.RoleInstructor, "role id for instructors")
	f.Int64Var(&in.RoleLearner, "role-learner", in.RoleLearner, "role id for learners")
	f.BoolVar(&in.GradeSync, "gradesync", in.GradeSync, "send grades back to the platform")
	f.BoolVar(&in.GradeSyncCompletion, "gradesync-completion", false, "only send grades after completion")
	f.StringVar(&in.Institution, "institution", "", "institution for new users")
	f.StringVar(&in.City, "city", "", "city for new users")
	f.StringVar(&in.Country, "country", "", "two letter country code for new users")
	f.StringVar(&in.Timezone, "timezone", "", "timezone for new users")
	f.StringVar(&in.Lang, "lang", "", "language for new users")
	f.IntVar(&maildisplay, "maildisplay", 2, "email visibility for new users (0, 1 or 2)")
	_ = cmd.MarkFlagRequired("context")
	return cmd
}

func newToolListCmd(rt *runtime) *cobra.Command {
	var (
		courseID    int64
		enabledOnly bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List tools",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rt.container(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			var f host.ToolFilter
			if enabledOnly {
				f = host.EnabledTools()
			}
			if courseID != 0 {
				f.CourseID = &courseID
			}
			tools, err := c.Store.Tools(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(tools) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tools found.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCOURSE\tCONTEXT\tNAME\tSTATUS\tGRADESYNC")
			for _, t := range tools {
				name := t.Name
				if hctx, err := c.Store.Context(cmd.Context(), t.ContextID); err == nil {
					name = catalog.Name(t, hctx)
				}
				fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%t\n", t.ID, t.CourseID, t.ContextID, name, statusName(t.Status), t.GradeSync)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int64Var(&courseID, "course", 0, "only tools of this course")
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "only enabled tools")
	return cmd
}

func statusName(s host.Status) string {
	if s == host.StatusEnabled {
		return "enabled"
	}
	return "disabled"
}

func toolIDArg(args []string) (int64, error) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid tool id %q", args[0])
	}
	return id, nil
}

func newToolDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tool with its members and their credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := toolIDArg(args)
			if err != nil {
				return err
			}
			c, err := rt.container(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.Store.DeleteTool(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted tool %d\n", id)
			return nil
		},
	}
}

func newToolStatusCmd(rt *runtime, verb string, st host.Status) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: verb + " a tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := toolIDArg(args)
			if err != nil {
				return err
			}
			c, err := rt.container(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.Store.SetToolStatus(cmd.Context(), id, st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tool %d %sd\n", id, verb)
			return nil
		},
	}
}
