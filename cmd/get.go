package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"synapse-mcp/internal/config"
	"synapse-mcp/internal/synapse"
)

var getCmd = &cobra.Command{
	Use:   "get <entity-id>",
	Short: "Fetch a Synapse entity and print it",
	Long: `Fetches an entity directly from Synapse using the personal access
token in SYNAPSE_PAT. A developer convenience for inspecting entities
without going through an MCP client.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

// patContext builds a request context authenticated with SYNAPSE_PAT.
func patContext(ctx context.Context) (context.Context, error) {
	token := os.Getenv("SYNAPSE_PAT")
	if token == "" {
		return nil, fmt.Errorf("SYNAPSE_PAT must be set for direct Synapse commands")
	}
	return synapse.ContextWithToken(ctx, token), nil
}

// fetchSpinner shows progress while a direct Synapse call runs.
func fetchSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	s.Writer = os.Stderr
	return s
}

func runGet(cmd *cobra.Command, args []string) error {
	entityID := args[0]
	if !synapse.ValidateID(entityID) {
		return fmt.Errorf("invalid Synapse ID: %s", entityID)
	}

	ctx, err := patContext(cmd.Context())
	if err != nil {
		return err
	}
	client := synapse.NewClient(synapseBaseURL())

	s := fetchSpinner(fmt.Sprintf("Fetching %s...", entityID))
	s.Start()
	entity, err := client.GetEntity(ctx, entityID)
	s.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, text.FgRed.Sprintf("Failed to fetch %s", entityID))
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"ID", entity.ID},
		{"Name", entity.Name},
		{"Type", entity.Type()},
		{"Parent", entity.ParentID},
		{"Created", entity.CreatedOn},
		{"Modified", entity.ModifiedOn},
	})
	t.Render()
	return nil
}

// synapseBaseURL resolves the Synapse API endpoint for direct commands.
func synapseBaseURL() string {
	if url := os.Getenv("SYNAPSE_BASE_URL"); url != "" {
		return url
	}
	return config.DefaultSynapseBaseURL
}

func init() {
	rootCmd.AddCommand(getCmd)
}
