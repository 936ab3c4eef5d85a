package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/common"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/enlighten"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/metrics"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/monitor"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/server"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/storage"
)

func main() {
	// init packages
	s := storage.Configured()
	c := enlighten.Configured()
	m := monitor.Configured(c, s)

	// init server
	srv := server.Configured(m, s)

	// parse flags
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	level, err := log.LLogLevel()
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)
	slog.SetDefault(log.Ctx(context.Background()))
	slog.Debug("logger configured", slog.String("level", level.String()))

	metrics.Init()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	if err := c.PrepareUserAgent(common.PackageName, common.Version()); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to prepare user agent", slog.Any("error", err))
		os.Exit(1)
	}

	if err := m.Restore(ctx); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to restore snapshot", slog.Any("error", err))
	}
	go m.Run(ctx)

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
