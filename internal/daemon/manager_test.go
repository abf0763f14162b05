package daemon_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttybridge/ttybridge/internal/daemon"
	"github.com/ttybridge/ttybridge/internal/host/sysfs"
	"github.com/ttybridge/ttybridge/internal/host/uevent"
	mocks "github.com/ttybridge/ttybridge/internal/testing"
)

// fakeHost implements daemon.Host from an in-memory device table.
type fakeHost struct {
	entries map[string]sysfs.Entry
}

func (h *fakeHost) Enumerate(match func(vendor, product uint16) bool) ([]sysfs.Entry, error) {
	var out []sysfs.Entry
	for _, e := range h.entries {
		if match == nil || match(e.Device.VendorID(), e.Device.ProductID()) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (h *fakeHost) DeviceEntry(name string) (sysfs.Entry, error) {
	e, ok := h.entries[name]
	if !ok {
		return sysfs.Entry{}, errors.New("no such device")
	}
	return e, nil
}

func entry(name string, dev *mocks.MockDevice, numInterfaces int) sysfs.Entry {
	e := sysfs.Entry{Name: name, Device: dev}
	for i := 0; i < numInterfaces; i++ {
		e.Interfaces = append(e.Interfaces, &mocks.MockInterface{Dev: dev, Num: uint8(i)})
	}
	return e
}

func newManager(t *testing.T, host daemon.Host) *daemon.Manager {
	t.Helper()
	m, err := daemon.New(daemon.Config{
		Devices: []string{"10c4:ea60", "10c4:ea70"},
	}, host, nil)
	require.NoError(t, err)
	return m
}

func TestAttachPresent(t *testing.T) {
	host := &fakeHost{entries: map[string]sysfs.Entry{
		"1-4": entry("1-4", &mocks.MockDevice{Vendor: 0x10c4, Product: 0xea60, SerialIdx: 3, Serial: "SN1"}, 1),
		"1-5": entry("1-5", &mocks.MockDevice{Vendor: 0x10c4, Product: 0xea70, SerialIdx: 3, Serial: "SN2"}, 2),
		"2-1": entry("2-1", &mocks.MockDevice{Vendor: 0x046d, Product: 0xc077}, 1),
	}}
	m := newManager(t, host)

	require.NoError(t, m.AttachPresent())

	svcs := m.Bus().Services()
	require.Len(t, svcs, 3)
	nodes := map[string]bool{}
	for _, s := range svcs {
		nodes[s.Node] = true
	}
	assert.True(t, nodes["CP210x-SN10"])
	assert.True(t, nodes["CP210x-SN20"])
	assert.True(t, nodes["CP210x-SN21"])

	m.DetachAll()
	assert.Empty(t, m.Bus().Services())
}

func TestHotplugEvents(t *testing.T) {
	host := &fakeHost{entries: map[string]sysfs.Entry{}}
	m := newManager(t, host)

	// Plug a device in.
	host.entries["1-4"] = entry("1-4", &mocks.MockDevice{Vendor: 0x10c4, Product: 0xea60, SerialIdx: 3, Serial: "SN1"}, 1)
	m.HandleEvent(uevent.Event{
		Action: uevent.ActionAdd, Subsystem: "usb", DevType: "usb_device",
		DevPath: "/devices/usb1/1-4",
	})
	assert.Len(t, m.Bus().Services(), 1)

	// Interface events are not device events.
	m.HandleEvent(uevent.Event{
		Action: uevent.ActionAdd, Subsystem: "usb", DevType: "usb_interface",
		DevPath: "/devices/usb1/1-4/1-4:1.0",
	})
	assert.Len(t, m.Bus().Services(), 1)

	// Unplug it.
	m.HandleEvent(uevent.Event{
		Action: uevent.ActionRemove, Subsystem: "usb", DevType: "usb_device",
		DevPath: "/devices/usb1/1-4",
	})
	assert.Empty(t, m.Bus().Services())

	// Removing again is harmless.
	m.HandleEvent(uevent.Event{
		Action: uevent.ActionRemove, Subsystem: "usb", DevType: "usb_device",
		DevPath: "/devices/usb1/1-4",
	})
}

func TestAttachDeviceIgnoresNonMatching(t *testing.T) {
	host := &fakeHost{entries: map[string]sysfs.Entry{
		"2-1": entry("2-1", &mocks.MockDevice{Vendor: 0x046d, Product: 0xc077}, 1),
	}}
	m := newManager(t, host)

	m.AttachDevice("2-1")
	m.AttachDevice("not-there")
	assert.Empty(t, m.Bus().Services())
}

func TestAttachDeviceIsIdempotent(t *testing.T) {
	host := &fakeHost{entries: map[string]sysfs.Entry{
		"1-4": entry("1-4", &mocks.MockDevice{Vendor: 0x10c4, Product: 0xea60, SerialIdx: 3, Serial: "SN1"}, 1),
	}}
	m := newManager(t, host)

	m.AttachDevice("1-4")
	m.AttachDevice("1-4")
	assert.Len(t, m.Bus().Services(), 1)
}

func TestRunDrainsAndDetaches(t *testing.T) {
	host := &fakeHost{entries: map[string]sysfs.Entry{
		"1-4": entry("1-4", &mocks.MockDevice{Vendor: 0x10c4, Product: 0xea60, SerialIdx: 3, Serial: "SN1"}, 1),
	}}
	m := newManager(t, host)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan uevent.Event)
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, events) }()

	require.Eventually(t, func() bool { return len(m.Bus().Services()) == 1 },
		time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Empty(t, m.Bus().Services())
}

func TestNewRejectsMalformedDeviceList(t *testing.T) {
	for _, bad := range []string{"10c4", "xxxx:ea60", "10c4:zzzz", "10c4:ea60:extra"} {
		_, err := daemon.New(daemon.Config{Devices: []string{bad}}, &fakeHost{}, nil)
		assert.Error(t, err, fmt.Sprintf("expected %q to be rejected", bad))
	}
}
