package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/levenlabs/go-lflag"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/common"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/enlighten"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/monitor"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/storage"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/widget"
)

func main() {
	logFile := lflag.String("log-file", "enlightenwidget.log", "File to write logs to, the terminal belongs to the widget")
	installationID := lflag.String("installation-id", "", "Installation id to monitor, overrides the stored one when set")
	interval := lflag.String("refresh-interval", "", "Refresh interval like \"30 minutes\", overrides the stored one when set")

	s := storage.Configured()
	c := enlighten.Configured()
	m := monitor.Configured(c, s)

	lflag.Configure()

	f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	log.SetOutput(f)

	level, err := log.LLogLevel()
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)

	if err := run(m, c, s, *installationID, *interval); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(m *monitor.Monitor, c *enlighten.Client, s storage.Database, installationID, interval string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	if err := c.PrepareUserAgent(common.PackageName, common.Version()); err != nil {
		return fmt.Errorf("failed to prepare user agent: %w", err)
	}

	if installationID != "" || interval != "" {
		cfg, err := m.Config(ctx)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if installationID != "" {
			cfg.InstallationID = installationID
		}
		if interval != "" {
			cfg.RefreshInterval = interval
		}
		if err := m.Configure(ctx, cfg); err != nil {
			return fmt.Errorf("failed to configure: %w", err)
		}
	}

	if err := m.Restore(ctx); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to restore snapshot", slog.Any("error", err))
	}

	model := widget.NewModel(ctx, m, s, widget.NewFace(), nil)
	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("widget failed: %w", err)
	}
	return nil
}
