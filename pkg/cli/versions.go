package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-console/pkg/charts"
	"github.com/ekaya-inc/ekaya-console/pkg/gateway"
	"github.com/ekaya-inc/ekaya-console/pkg/reconcile"
)

func newVersionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Manage the SQL versions submitted for a table",
	}

	cmd.AddCommand(newVersionsShowCmd(opts))
	cmd.AddCommand(newVersionsCreateCmd(opts))
	cmd.AddCommand(newVersionsUpdateCmd(opts))
	cmd.AddCommand(newVersionsDeleteCmd(opts))

	return cmd
}

// ---------- versions show ----------

func newVersionsShowCmd(opts *options) *cobra.Command {
	var (
		projectID string
		tableID   string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "show <version-id>",
		Short: "Show a version's SQL with the suggested rewrite and line markers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build()
			if err != nil {
				return err
			}
			ed, err := c.dashboard.Editor(cmd.Context(), projectID, tableID, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, ed)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "owning project id")
	cmd.Flags().StringVar(&tableID, "table", "", "table id")
	outputFlag(cmd, &output, outputJSON)

	return cmd
}

// ---------- versions create ----------

func newVersionsCreateCmd(opts *options) *cobra.Command {
	var (
		in      reconcile.CreateVersionInput
		sqlFile string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new SQL version for analysis",
		Example: `  ekaya-console versions create --project p1 --table t1 --commit 3f9c2ab --file query.sql
  git show HEAD:reports/orders.sql | ekaya-console versions create --project p1 --table t1 --commit "$(git rev-parse --short HEAD)" --file -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sqlFile != "" {
				if in.SQL != "" {
					return errors.New("use either --sql or --file, not both")
				}
				text, err := readSQL(cmd.InOrStdin(), sqlFile)
				if err != nil {
					return err
				}
				in.SQL = text
			}

			c, err := opts.build()
			if err != nil {
				return err
			}
			out, err := c.dashboard.CreateVersion(cmd.Context(), in)
			return c.settle(cmd.Context(), cmd, output, out, err)
		},
	}

	cmd.Flags().StringVar(&in.ProjectID, "project", "", "owning project id")
	cmd.Flags().StringVar(&in.TableID, "table", "", "table id")
	cmd.Flags().StringVar(&in.CommitHash, "commit", "", "commit hash the SQL came from")
	cmd.Flags().StringVar(&in.SQL, "sql", "", "SQL text")
	cmd.Flags().StringVarP(&sqlFile, "file", "f", "", "read SQL from a file (- for stdin)")
	outputFlag(cmd, &output, outputJSON)

	return cmd
}

func readSQL(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read SQL from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read SQL file: %w", err)
	}
	return string(data), nil
}

// ---------- versions update ----------

func newVersionsUpdateCmd(opts *options) *cobra.Command {
	var (
		projectID string
		tableID   string
		commit    string
		prNumber  int64
		output    string
	)

	cmd := &cobra.Command{
		Use:   "update <version-id>",
		Short: "Set a version's commit hash or pull request number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := gateway.VersionPatch{ID: args[0]}
			if cmd.Flags().Changed("commit") {
				patch.CommitHash = &commit
			}
			if cmd.Flags().Changed("pr") {
				patch.PRNumber = &prNumber
			}

			c, err := opts.build()
			if err != nil {
				return err
			}
			out, err := c.dashboard.UpdateVersion(cmd.Context(), projectID, tableID, patch)
			return c.settle(cmd.Context(), cmd, output, out, err)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "owning project id")
	cmd.Flags().StringVar(&tableID, "table", "", "table id")
	cmd.Flags().StringVar(&commit, "commit", "", "new commit hash")
	cmd.Flags().Int64Var(&prNumber, "pr", 0, "pull request number")
	outputFlag(cmd, &output, outputJSON)

	return cmd
}

// ---------- versions delete ----------

func newVersionsDeleteCmd(opts *options) *cobra.Command {
	var (
		projectID string
		tableID   string
		output    string
	)

	cmd := &cobra.Command{
		Use:     "delete <version-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a SQL version",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.build()
			if err != nil {
				return err
			}
			out, err := c.dashboard.DeleteVersion(cmd.Context(), projectID, tableID, args[0])
			return c.settle(cmd.Context(), cmd, output, out, err)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "owning project id")
	cmd.Flags().StringVar(&tableID, "table", "", "table id")
	outputFlag(cmd, &output, outputJSON)

	return cmd
}

// ---------- charts ----------

func newChartsCmd(opts *options) *cobra.Command {
	var (
		projectID string
		metric    string
		sortOrder string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "charts <table-id>",
		Short: "Print the chart series for a table's versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := charts.ParseMetric(metric)
			if !ok {
				return fmt.Errorf("unknown metric %q", metric)
			}

			c, err := opts.build()
			if err != nil {
				return err
			}
			data, err := c.dashboard.Charts(cmd.Context(), projectID, args[0], key, charts.ParseSortOrder(sortOrder))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, data)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "owning project id")
	cmd.Flags().StringVar(&metric, "metric", "total_cost", "metric to plot")
	cmd.Flags().StringVar(&sortOrder, "sort", "asc", "date order (asc, desc)")
	outputFlag(cmd, &output, outputJSON)

	return cmd
}
