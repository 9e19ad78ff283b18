package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"githubtray/config"
	"githubtray/logger"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "githubtray",
		Short: "Watch your GitHub repositories, notifications and workflow runs",
		Long: `githubtray polls GitHub for your repositories, followers, notification
feed and the workflow runs of locally mapped projects, and raises a desktop
notification whenever something changes.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newRunCmd(opts),
		newHistoryCmd(opts),
		newOpenCmd(opts),
		newProjectsCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// load reads the configuration and sets up logging. With fileOnly, console
// output is suppressed and logs go to the configured (or default) log file.
func (o *rootOptions) load(fileOnly bool) (*config.Source, error) {
	src, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	cfg := src.Current()

	level := cfg.LogLevel
	if o.verbose {
		level = "debug"
	}
	var logOpts []logger.Option
	logFile := cfg.LogFile
	if fileOnly && logFile == "" {
		logFile = filepath.Join(config.DefaultDir(), "githubtray.log")
	}
	if logFile != "" {
		logOpts = append(logOpts, logger.WithFile(logFile))
	}
	if fileOnly {
		logOpts = append(logOpts, logger.FileOnly())
	}
	if err := logger.Initialize(level, logOpts...); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return src, nil
}
