package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"synapse-mcp/internal/synapse"
)

var queryCmd = &cobra.Command{
	Use:   "query <table-id> [sql]",
	Short: "Run a table query against Synapse and print the rows",
	Long: `Runs a SQL-like query against a Synapse table using the personal
access token in SYNAPSE_PAT and renders the result as a table.

The query may be a full SELECT, a bare WHERE clause, or empty to select
everything:

  synapse-mcp query syn61609402 "SELECT id, title WHERE yearProcessed = '2023'"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	tableID := args[0]
	if !synapse.ValidateID(tableID) {
		return fmt.Errorf("invalid Synapse ID: %s", tableID)
	}
	sql := ""
	if len(args) > 1 {
		sql = args[1]
	}

	ctx, err := patContext(cmd.Context())
	if err != nil {
		return err
	}
	client := synapse.NewClient(synapseBaseURL())

	s := fetchSpinner(fmt.Sprintf("Querying %s...", tableID))
	s.Start()
	result, err := client.QueryTable(ctx, tableID, sql)
	s.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, text.FgRed.Sprintf("Query against %s failed", tableID))
		return err
	}

	if len(result.Rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No rows returned.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)

	header := make(table.Row, len(result.Headers))
	for i, name := range result.Headers {
		header[i] = strings.ToUpper(name)
	}
	t.AppendHeader(header)
	for _, row := range result.Rows {
		t.AppendRow(table.Row(row))
	}
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "%d row(s)\n", len(result.Rows))
	return nil
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
