package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"githubtray/config"
	"githubtray/db"
	"githubtray/fetcher"
	"githubtray/github"
	"githubtray/launcher"
	"githubtray/logger"
	"githubtray/notify"
	"githubtray/presenter"
	"githubtray/scheduler"
	"githubtray/service"
	"githubtray/tui"
)

const retentionInterval = time.Hour

func newRunCmd(root *rootOptions) *cobra.Command {
	var noTUI bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start polling and notifying",
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := !noTUI && isatty.IsTerminal(os.Stdout.Fd())
			src, err := root.load(interactive)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return run(cmd.Context(), src, interactive)
		},
	}
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "run headless and log menu updates instead of drawing them")
	return cmd
}

func run(ctx context.Context, src *config.Source, interactive bool) error {
	cfg := src.Current()
	src.Watch()

	client, err := github.NewClient()
	if err != nil {
		return err
	}

	deps := service.Dependencies{
		Fetcher:  fetcher.NewLimited(client, cfg.RequestsPerSecond),
		Notifier: desktopNotifier(),
		Config:   src,
		Launcher: launcher.New(),
	}

	if cfg.HistoryDriver != "" {
		history, err := db.New(ctx, cfg.HistoryDriver, cfg.HistoryDSN)
		if err != nil {
			// deliveries still work without a ledger
			logger.Warn("Delivery history disabled", zap.Error(err))
		} else {
			deps.Ledger = history
			history.RunRetention(ctx, clock.RealClock{}, retentionInterval, cfg.HistoryRetention)
		}
	}

	var surface *tui.Surface
	if interactive {
		surface = tui.NewSurface()
		deps.Presenter = surface
	} else {
		deps.Presenter = presenter.NewHeadless()
	}

	svc, err := service.NewService(deps)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Error during service shutdown", zap.Error(err))
		}
	}()

	if interactive {
		program := tea.NewProgram(tui.NewModel(surface, svc), tea.WithAltScreen(), tea.WithContext(ctx))
		surface.Attach(program)
		if err := svc.Start(); err != nil {
			return err
		}
		if _, err := program.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("terminal UI failed: %w", err)
		}
		return nil
	}

	if err := svc.Start(); err != nil {
		return err
	}
	logger.Info("Running headless, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}

func desktopNotifier() scheduler.Notifier {
	d := notify.NewDesktop(notify.WithIcon("github"))
	if d.Available() {
		return d
	}
	logger.Warn("Desktop notifications unavailable, logging them instead", zap.String("command", notify.DefaultCommand))
	return notify.Log{}
}
