package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"githubtray/launcher"
	"githubtray/logger"
)

func newOpenCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open OWNER/REPO",
		Short: "Open the local folder of a mapped repository in the editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := root.load(false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg := src.Current()
			path, ok := cfg.LocalProjects.Path(args[0])
			if !ok {
				return fmt.Errorf("%s has no local project, map it with: githubtray projects set %s PATH", args[0], args[0])
			}
			return launcher.New().OpenPath(cmd.Context(), cfg.LocalEditor, path)
		},
	}
}
