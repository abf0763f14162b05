package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ttybridge/ttybridge/internal/daemon"
	"github.com/ttybridge/ttybridge/internal/host/sysfs"
	"github.com/ttybridge/ttybridge/internal/host/uevent"
	"github.com/ttybridge/ttybridge/internal/log"
)

// Daemon runs the bridge manager until interrupted.
type Daemon struct {
	daemon.Config `embed:""`
}

// Run is called by Kong when the daemon command is executed.
func (d *Daemon) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return d.Start(ctx, logger, rawLogger)
}

// Start runs the manager against the live system until ctx is done.
func (d *Daemon) Start(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	logger.Info("starting ttybridge", "sysfs", d.SysfsRoot, "devices", d.Devices)

	host := sysfs.NewWithRoot(d.SysfsRoot, rawLogger)
	manager, err := daemon.New(d.Config, host, logger)
	if err != nil {
		return err
	}

	monitor, err := uevent.NewMonitor(logger, rawLogger)
	if err != nil {
		return err
	}

	return manager.Run(ctx, monitor.Events(ctx))
}
