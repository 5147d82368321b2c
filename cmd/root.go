package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"synapse-mcp/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error.
	ExitCodeError = 1
	// ExitCodeConfig indicates invalid or incomplete configuration.
	ExitCodeConfig = 2
)

// rootCmd is the entry point when the application is called without
// subcommands.
var rootCmd = &cobra.Command{
	Use:   "synapse-mcp",
	Short: "MCP server exposing read-only Synapse tools",
	Long: `synapse-mcp is a Model Context Protocol server that gives AI
assistants read-only access to Synapse: entities, annotations,
provenance, search, and table queries.

It authenticates either with a personal access token (SYNAPSE_PAT) or
by delegating sign-in to Synapse per session via OAuth.`,
	// SilenceUsage keeps handled errors from dumping the usage text.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from the
// main package to inject the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a semantic code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "synapse-mcp version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps error types to exit codes for scripting.
func getExitCode(err error) int {
	var configErr *config.ConfigurationError
	if errors.As(err, &configErr) {
		return ExitCodeConfig
	}
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
