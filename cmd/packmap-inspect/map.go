package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/packmap/packmap/pkg/pkgmap"
)

var mapCommand = &cobra.Command{
	Use:   "map <project>",
	Short: "Dump the persisted package map tree",
	Args:  cobra.ExactArgs(1),
	RunE:  mapMain,
}

func mapMain(command *cobra.Command, arguments []string) error {
	projectRoot := arguments[0]
	dependencyDir := filepath.Join(projectRoot, "node_modules")

	root, _, err := pkgmap.Load(dependencyDir)
	if err != nil {
		return fmt.Errorf("loading package map: %w", err)
	}
	if root == nil {
		fmt.Println(color.YellowString("no package map is persisted for %s", projectRoot))
		return nil
	}

	printEntry("node_modules", root.Contents["node_modules"], 0)
	fmt.Printf("%d entries\n", root.Count())
	return nil
}

func printEntry(name string, entry *pkgmap.Entry, depth int) {
	if entry == nil {
		return
	}
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	if entry.Kind == pkgmap.KindDir {
		fmt.Printf("%s%s/\n", indent, name)
		names := make([]string, 0, len(entry.Contents))
		for childName := range entry.Contents {
			names = append(names, childName)
		}
		sort.Strings(names)
		for _, childName := range names {
			printEntry(childName, entry.Contents[childName], depth+1)
		}
		return
	}
	fmt.Printf("%s%s (%d bytes, %s)\n", indent, name, entry.Size, entry.Digest)
}
