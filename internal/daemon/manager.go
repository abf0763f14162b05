// Package daemon runs the bridge manager: it attaches serial streams
// for every matching USB device present at startup and keeps the set
// current as devices come and go.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ttybridge/ttybridge/bridge"
	"github.com/ttybridge/ttybridge/bus"
	"github.com/ttybridge/ttybridge/identity"
	"github.com/ttybridge/ttybridge/internal/host/sysfs"
	"github.com/ttybridge/ttybridge/internal/host/uevent"
	"github.com/ttybridge/ttybridge/stream"
)

// Host is the device enumeration surface the manager runs against.
// *sysfs.Host implements it; tests substitute a fake.
type Host interface {
	Enumerate(match func(vendor, product uint16) bool) ([]sysfs.Entry, error)
	DeviceEntry(name string) (sysfs.Entry, error)
}

// provider represents the parent a device's streams attach under.
type provider struct{ name string }

func (p provider) ProviderName() string { return p.name }

// Manager owns one attachment controller per bridged interface.
type Manager struct {
	config   *Config
	logger   *slog.Logger
	host     Host
	bus      *bus.Bus
	factory  stream.Factory
	resolver *identity.Resolver
	match    func(vendor, product uint16) bool

	mu          sync.Mutex
	controllers map[string][]*bridge.Controller
}

// New creates a Manager. The configured device list is validated here
// so a malformed identifier fails startup instead of silently
// matching nothing.
func New(config Config, host Host, logger *slog.Logger) (*Manager, error) {
	match, err := config.Match()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := bus.New()
	return &Manager{
		config:      &config,
		logger:      logger,
		host:        host,
		bus:         b,
		factory:     bus.NewFactory(b, logger),
		resolver:    identity.NewResolver(logger),
		match:       match,
		controllers: make(map[string][]*bridge.Controller),
	}, nil
}

// Bus returns the registry of services the manager has published.
func (m *Manager) Bus() *bus.Bus { return m.bus }

// AttachPresent attaches every matching device already in the tree.
func (m *Manager) AttachPresent() error {
	entries, err := m.host.Enumerate(m.match)
	if err != nil {
		return fmt.Errorf("enumerate devices: %w", err)
	}
	for _, e := range entries {
		m.attachEntry(e)
	}
	return nil
}

// AttachDevice attaches one device by sysfs entry name, if it matches
// the configured identifier list.
func (m *Manager) AttachDevice(name string) {
	entry, err := m.host.DeviceEntry(name)
	if err != nil {
		m.logger.Debug("ignoring unreadable device", "device", name, "error", err)
		return
	}
	if !m.match(entry.Device.VendorID(), entry.Device.ProductID()) {
		return
	}
	m.attachEntry(entry)
}

func (m *Manager) attachEntry(e sysfs.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.controllers[e.Name]; ok {
		return
	}

	prov := provider{name: "usb-" + e.Name}
	var attached []*bridge.Controller
	for _, iface := range e.Interfaces {
		c := bridge.NewController(m.factory, m.resolver, m.logger)
		if err := c.Attach(prov, iface); err != nil {
			m.logger.Error("failed to attach interface",
				"device", e.Name, "interface", iface.InterfaceNumber(), "error", err)
			continue
		}
		attached = append(attached, c)
	}
	if len(attached) == 0 {
		return
	}
	m.controllers[e.Name] = attached
	m.logger.Info("bridged device", "device", e.Name, "interfaces", len(attached))
}

// DetachDevice tears down all controllers of one device. Unknown
// names are ignored.
func (m *Manager) DetachDevice(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	controllers, ok := m.controllers[name]
	if !ok {
		return
	}
	for _, c := range controllers {
		c.Detach()
	}
	delete(m.controllers, name)
	m.logger.Info("unbridged device", "device", name)
}

// DetachAll tears down every controller the manager owns.
func (m *Manager) DetachAll() {
	m.mu.Lock()
	names := make([]string, 0, len(m.controllers))
	for name := range m.controllers {
		names = append(names, name)
	}
	m.mu.Unlock()
	for _, name := range names {
		m.DetachDevice(name)
	}
}

// HandleEvent applies one hotplug event to the managed set.
func (m *Manager) HandleEvent(ev uevent.Event) {
	if !ev.IsUSBDevice() {
		return
	}
	switch ev.Action {
	case uevent.ActionAdd:
		m.AttachDevice(ev.DeviceName())
	case uevent.ActionRemove:
		m.DetachDevice(ev.DeviceName())
	}
}

// Run attaches present devices, then consumes hotplug events until
// the context is cancelled or the event channel closes. Everything is
// detached before Run returns.
func (m *Manager) Run(ctx context.Context, events <-chan uevent.Event) error {
	defer m.DetachAll()

	if err := m.AttachPresent(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.HandleEvent(ev)
		}
	}
}
