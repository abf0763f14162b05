//go:build linux

// Package uevent listens for kernel device hotplug notifications on a
// netlink kobject-uevent socket.
package uevent

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/ttybridge/ttybridge/internal/log"
)

// Monitor receives hotplug events from the kernel.
type Monitor struct {
	fd     int
	logger *slog.Logger
	raw    log.RawLogger
}

// NewMonitor opens the netlink socket and subscribes to the kernel
// uevent multicast group.
func NewMonitor(logger *slog.Logger, raw log.RawLogger) (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("open uevent socket: %w", err)
	}

	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: 1, // kernel uevent multicast group
		Pid:    uint32(os.Getpid()),
	}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind uevent socket: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Monitor{fd: fd, logger: logger, raw: raw}, nil
}

// Events delivers parsed USB device events until the context is
// cancelled. The channel is closed when the read loop exits; the
// socket is closed with it.
func (m *Monitor) Events(ctx context.Context) <-chan Event {
	out := make(chan Event, 16)

	go func() {
		<-ctx.Done()
		_ = unix.Close(m.fd)
	}()

	go func() {
		defer close(out)
		buf := make([]byte, 8192)
		for {
			n, _, err := unix.Recvfrom(m.fd, buf, 0)
			if err != nil {
				if ctx.Err() == nil {
					m.logger.Error("uevent socket read failed", "error", err)
				}
				return
			}
			m.raw.Log("uevent", "message", buf[:n])

			ev, ok := Parse(buf[:n])
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
