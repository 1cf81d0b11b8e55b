// Command packmap-inspect is a read-only diagnostic for a project's
// persisted package map: dumping the tree, checking its seal against the
// current lockfile, and classifying a single path the way the filesystem
// overlay would. It never installs or mutates anything.
package main

import (
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/packmap/packmap/pkg/logging"
)

func rootMain(command *cobra.Command, arguments []string) error {
	return command.Help()
}

var rootCommand = &cobra.Command{
	Use:          "packmap-inspect",
	Short:        "Inspect a project's persisted package map",
	RunE:         rootMain,
	SilenceUsage: true,
}

// runLogger is shared by every subcommand. Its prefix is a short random id
// unique to this invocation, so that output from concurrent runs against the
// same project (e.g. two terminals inspecting a CI cache) can be told apart
// in aggregated logs, mirroring the teacher's practice of tagging sessions
// and prompts with a fresh random identifier rather than a process id.
var runLogger = logging.RootLogger.Sublogger(uuid.NewString()[:8])

func init() {
	rootCommand.AddCommand(mapCommand, verifyCommand, resolveCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
