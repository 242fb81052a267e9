package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-console/pkg/gateway"
	"github.com/ekaya-inc/ekaya-console/pkg/services"
)

func newProjectsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List and manage projects",
	}

	cmd.AddCommand(newProjectsListCmd(opts))
	cmd.AddCommand(newProjectsShowCmd(opts))
	cmd.AddCommand(newProjectsCreateCmd(opts))
	cmd.AddCommand(newProjectsRenameCmd(opts))
	cmd.AddCommand(newProjectsDeleteCmd(opts))

	return cmd
}

// ---------- projects list ----------

func newProjectsListCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects, busy ones first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build()
			if err != nil {
				return err
			}
			views, err := c.dashboard.Projects(cmd.Context())
			if err != nil {
				return err
			}
			if output == outputTable {
				return writeProjectTable(cmd.OutOrStdout(), views)
			}
			return render(cmd.OutOrStdout(), output, views)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format (table, json, yaml)")

	return cmd
}

func writeProjectTable(w io.Writer, views []services.ProjectView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tTABLES\tUPDATED")
	for _, v := range views {
		updated := v.CreatedAt
		if v.UpdatedAt != nil && *v.UpdatedAt != "" {
			updated = *v.UpdatedAt
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", v.ID, v.Name, v.Status, len(v.Tables), updated)
	}
	return tw.Flush()
}

// ---------- projects show ----------

func newProjectsShowCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show one project with its tables newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build()
			if err != nil {
				return err
			}
			view, err := c.dashboard.Project(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, view)
		},
	}

	outputFlag(cmd, &output, outputJSON)

	return cmd
}

// ---------- projects create ----------

func newProjectsCreateCmd(opts *options) *cobra.Command {
	var (
		in     gateway.CreateProjectInput
		output string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project with its first tracked table",
		Example: `  ekaya-console projects create --name shop --table orders --schema public \
    --connection-string "postgresql://analyst@db.internal/shop"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build()
			if err != nil {
				return err
			}
			out, err := c.dashboard.CreateProject(cmd.Context(), in)
			return c.settle(cmd.Context(), cmd, output, out, err)
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "project name")
	cmd.Flags().StringVar(&in.TableName, "table", "", "first table to track")
	cmd.Flags().StringVar(&in.TableSchema, "schema", "", "schema of the first table")
	cmd.Flags().StringVar(&in.ConnectionString, "connection-string", "", "postgres or sqlserver connection URL")
	cmd.Flags().StringVar(&in.UserID, "user-id", "", "owner (default from backend.user_id)")
	outputFlag(cmd, &output, outputJSON)

	return cmd
}

// ---------- projects rename ----------

func newProjectsRenameCmd(opts *options) *cobra.Command {
	var (
		name   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "rename <project-id>",
		Short: "Rename a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build()
			if err != nil {
				return err
			}
			out, err := c.dashboard.UpdateProject(cmd.Context(), gateway.ProjectPatch{ID: args[0], Name: name})
			return c.settle(cmd.Context(), cmd, output, out, err)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new project name")
	outputFlag(cmd, &output, outputJSON)

	return cmd
}

// ---------- projects delete ----------

func newProjectsDeleteCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "delete <project-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a project and everything under it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build()
			if err != nil {
				return err
			}
			out, err := c.dashboard.DeleteProject(cmd.Context(), args[0])
			return c.settle(cmd.Context(), cmd, output, out, err)
		},
	}

	outputFlag(cmd, &output, outputJSON)

	return cmd
}
