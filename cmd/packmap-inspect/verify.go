package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/packmap/packmap/pkg/pkgmap"
)

var verifyCommand = &cobra.Command{
	Use:   "verify <project>",
	Short: "Check the persisted map's seal against the current lockfile",
	Args:  cobra.ExactArgs(1),
	RunE:  verifyMain,
}

func verifyMain(command *cobra.Command, arguments []string) error {
	projectRoot := arguments[0]

	lockfileBytes, _, err := readProjectLockfile(projectRoot)
	if err != nil {
		return err
	}

	dependencyDir := filepath.Join(projectRoot, "node_modules")
	root, seal, err := pkgmap.Load(dependencyDir)
	if err != nil {
		return fmt.Errorf("loading package map: %w", err)
	}

	if pkgmap.Verify(root, lockfileBytes, seal) {
		fmt.Println(color.GreenString("valid: persisted map matches %s", lockfileFileName))
		return nil
	}

	runLogger.Warn(fmt.Errorf("persisted map for %s does not match its lockfile", projectRoot))
	fmt.Println(color.RedString("stale: persisted map does not match %s; rebuild required", lockfileFileName))
	return nil
}
