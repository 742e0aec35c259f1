package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Exit codes. Partial means the run produced results but some projects
// could not be fetched.
const (
	ExitSuccess      = 0
	ExitPartial      = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var flagVerbose bool

var rootCmd = &cobra.Command{
	Use:   "revq",
	Short: "Unified code review queue",
	Long:  "Revq aggregates open merge requests and differential revisions from GitLab and Phabricator into one normalized review queue.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(deleteCommentCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print revq version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "revq version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
}
