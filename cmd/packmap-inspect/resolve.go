package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/packmap/packmap/pkg/pkgmap"
	"github.com/packmap/packmap/pkg/resolver"
)

var resolveCommand = &cobra.Command{
	Use:   "resolve <project> <path>",
	Short: "Classify a path against the persisted map the way the overlay would",
	Args:  cobra.ExactArgs(2),
	RunE:  resolveMain,
}

func resolveMain(command *cobra.Command, arguments []string) error {
	projectRoot := arguments[0]
	target := arguments[1]
	if !filepath.IsAbs(target) {
		target = filepath.Join(projectRoot, target)
	}

	dependencyDir := filepath.Join(projectRoot, "node_modules")
	root, _, err := pkgmap.Load(dependencyDir)
	if err != nil {
		return fmt.Errorf("loading package map: %w", err)
	}

	res := resolver.New(projectRoot, root).Resolve(target)

	switch res.Kind {
	case resolver.Untracked:
		fmt.Println(color.CyanString("untracked"), target)
	case resolver.Missing:
		fmt.Println(color.RedString("missing"), res.Path)
	case resolver.Dir:
		names := make([]string, 0, len(res.Children))
		for name := range res.Children {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println(color.GreenString("dir"), res.Path, names)
	case resolver.File:
		fmt.Println(color.GreenString("file"), res.Path, fmt.Sprintf("%d bytes, %s", res.Entry.Size, res.Entry.Digest))
	}
	return nil
}
