package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-ltienrol/internal/host"
)

// newContextCmd registers host contexts. A host that owns its own
// contexts table does not need it.
func newContextCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage host contexts",
	}
	var (
		c     host.Context
		level string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a course or activity context",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch level {
			case "course":
				c.Level = host.ContextCourse
				if c.InstanceID == 0 {
					c.InstanceID = c.CourseID
				}
			case "module":
				c.Level = host.ContextModule
				if c.ModName == "" || c.InstanceID == 0 {
					return fmt.Errorf("module contexts need --modname and --instance")
				}
			default:
				return fmt.Errorf("unknown level %q, want course or module", level)
			}
			if c.Depth == 0 {
				c.Depth = 3
				if c.Level == host.ContextModule {
					c.Depth = 4
				}
			}
			ct, err := rt.container(cmd.Context())
			if err != nil {
				return err
			}
			defer ct.Close()
			id, err := ct.Store.CreateContext(cmd.Context(), c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created context %d\n", id)
			return nil
		},
	}
	f := add.Flags()
	f.StringVar(&level, "level", "course", "course or module")
	f.Int64Var(&c.CourseID, "course", 0, "course id")
	f.Int64Var(&c.InstanceID, "instance", 0, "course module id for module contexts")
	f.StringVar(&c.ModName, "modname", "", "module type, e.g. quiz")
	f.StringVar(&c.Name, "name", "", "display name")
	f.StringVar(&c.Description, "description", "", "description")
	f.StringVar(&c.IconURL, "icon", "", "icon url")
	f.IntVar(&c.Depth, "depth", 0, "context depth (default 3 for courses, 4 for modules)")
	_ = add.MarkFlagRequired("course")
	cmd.AddCommand(add)
	return cmd
}
