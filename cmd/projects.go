package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"githubtray/config"
	"githubtray/logger"
)

func newProjectsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage local folders mapped to repositories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List mapped repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := root.load(false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			lp := src.Current().LocalProjects
			names := make([]string, 0, len(lp))
			for name := range lp {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, lp[name])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set OWNER/REPO PATH",
		Short: "Map a repository to a local folder, enabling workflow monitoring",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.Contains(args[0], "/") {
				return fmt.Errorf("repository must be OWNER/REPO, got %q", args[0])
			}
			path, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			if info, err := os.Stat(path); err != nil || !info.IsDir() {
				return fmt.Errorf("%s is not a directory", path)
			}
			return updateProjects(root, func(lp config.LocalProjects) { lp[args[0]] = path })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unset OWNER/REPO",
		Short: "Remove a repository mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateProjects(root, func(lp config.LocalProjects) { delete(lp, args[0]) })
		},
	})
	return cmd
}

func updateProjects(root *rootOptions, fn func(lp config.LocalProjects)) error {
	src, err := root.load(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	lp := src.Current().LocalProjects.Clone()
	fn(lp)
	return src.SaveLocalProjects(lp)
}
