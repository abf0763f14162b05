package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/ttybridge/ttybridge/bridge"
	"github.com/ttybridge/ttybridge/identity"
	"github.com/ttybridge/ttybridge/internal/daemon"
	"github.com/ttybridge/ttybridge/internal/host/sysfs"
	"github.com/ttybridge/ttybridge/internal/log"
)

// List prints the node names matching devices would get, without
// attaching anything.
type List struct {
	daemon.Config `embed:""`
}

func (l *List) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	match, err := l.Config.Match()
	if err != nil {
		return err
	}

	host := sysfs.NewWithRoot(l.SysfsRoot, rawLogger)
	entries, err := host.Enumerate(match)
	if err != nil {
		return err
	}

	resolver := identity.NewResolver(logger)
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tVID:PID\tIF\tNODE")
	for _, e := range entries {
		for _, iface := range e.Interfaces {
			fmt.Fprintf(w, "%s\t%04x:%04x\t%d\t%s\n",
				e.Name,
				e.Device.VendorID(), e.Device.ProductID(),
				iface.InterfaceNumber(),
				bridge.BaseName+"-"+resolver.Suffix(iface))
		}
	}
	return w.Flush()
}
