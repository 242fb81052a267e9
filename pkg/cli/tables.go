package cli

import (
	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-console/pkg/gateway"
)

func newTablesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tables",
		Aliases: []string{"table"},
		Short:   "Manage the tables tracked by a project",
	}

	cmd.AddCommand(newTablesCreateCmd(opts))
	cmd.AddCommand(newTablesUpdateCmd(opts))
	cmd.AddCommand(newTablesDeleteCmd(opts))

	return cmd
}

// ---------- tables create ----------

func newTablesCreateCmd(opts *options) *cobra.Command {
	var (
		in     gateway.CreateTableInput
		output string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Track a new table in a project",
		Example: `  ekaya-console tables create --project p1 --name customers --schema public \
    --connection-string "sqlserver://analyst@sql.internal?database=crm"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build()
			if err != nil {
				return err
			}
			out, err := c.dashboard.CreateTable(cmd.Context(), in)
			return c.settle(cmd.Context(), cmd, output, out, err)
		},
	}

	cmd.Flags().StringVar(&in.ProjectID, "project", "", "owning project id")
	cmd.Flags().StringVar(&in.Name, "name", "", "table name")
	cmd.Flags().StringVar(&in.Schema, "schema", "", "table schema")
	cmd.Flags().StringVar(&in.ConnectionString, "connection-string", "", "postgres or sqlserver connection URL")
	outputFlag(cmd, &output, outputJSON)

	return cmd
}

// ---------- tables update ----------

func newTablesUpdateCmd(opts *options) *cobra.Command {
	var (
		projectID     string
		name          string
		schema        string
		defaultLimits string
		output        string
	)

	cmd := &cobra.Command{
		Use:     "update <table-id>",
		Aliases: []string{"rename"},
		Short:   "Change a table's name, schema or default limits",
		Long:    "Only the flags given on the command line are sent; the rest of the table is left alone.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := gateway.TablePatch{ID: args[0]}
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("schema") {
				patch.Schema = &schema
			}
			if cmd.Flags().Changed("default-limits") {
				patch.DefaultLimits = &defaultLimits
			}

			c, err := opts.build()
			if err != nil {
				return err
			}
			out, err := c.dashboard.UpdateTable(cmd.Context(), projectID, patch)
			return c.settle(cmd.Context(), cmd, output, out, err)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "owning project id")
	cmd.Flags().StringVar(&name, "name", "", "new table name")
	cmd.Flags().StringVar(&schema, "schema", "", "new schema")
	cmd.Flags().StringVar(&defaultLimits, "default-limits", "", "new default limits")
	outputFlag(cmd, &output, outputJSON)

	return cmd
}

// ---------- tables delete ----------

func newTablesDeleteCmd(opts *options) *cobra.Command {
	var (
		projectID string
		output    string
	)

	cmd := &cobra.Command{
		Use:     "delete <table-id>",
		Aliases: []string{"rm"},
		Short:   "Stop tracking a table",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build()
			if err != nil {
				return err
			}
			out, err := c.dashboard.DeleteTable(cmd.Context(), projectID, args[0])
			return c.settle(cmd.Context(), cmd, output, out, err)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "owning project id")
	outputFlag(cmd, &output, outputJSON)

	return cmd
}
