// Package sysfs implements the usb boundary on top of the Linux
// sysfs USB device tree.
package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ttybridge/ttybridge/internal/log"
	"github.com/ttybridge/ttybridge/usb"
)

// DefaultRoot is where the kernel exposes USB devices and interfaces.
const DefaultRoot = "/sys/bus/usb/devices"

// serialStringIndex is the conventional iSerialNumber descriptor
// index reported through the boundary when the sysfs serial attribute
// exists. sysfs does not expose the raw index; CP210x parts use 3.
const serialStringIndex = 3

// Host enumerates USB devices from a sysfs tree.
type Host struct {
	root string
	raw  log.RawLogger
}

// New creates a Host reading from DefaultRoot.
func New(raw log.RawLogger) *Host {
	return NewWithRoot(DefaultRoot, raw)
}

// NewWithRoot creates a Host reading from an alternate tree root.
// Tests point this at a fixture directory.
func NewWithRoot(root string, raw log.RawLogger) *Host {
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Host{root: root, raw: raw}
}

// Entry is one USB device together with its interfaces.
type Entry struct {
	// Name is the sysfs entry name (e.g. "1-4").
	Name       string
	Device     usb.Device
	Interfaces []usb.Interface
}

// Enumerate returns every device whose identifiers satisfy match,
// with its interfaces. Devices that cannot be parsed are skipped.
func (h *Host) Enumerate(match func(vendor, product uint16) bool) ([]Entry, error) {
	entries, err := os.ReadDir(h.root)
	if err != nil {
		return nil, fmt.Errorf("read sysfs usb tree: %w", err)
	}

	var out []Entry
	for _, entry := range entries {
		name := entry.Name()
		// Interface entries contain a colon; root hubs have no port
		// chain. Only plain device entries are of interest here.
		if strings.Contains(name, ":") || !strings.Contains(name, "-") {
			continue
		}

		dev, err := h.readDevice(name)
		if err != nil {
			continue
		}
		if match != nil && !match(dev.vendor, dev.product) {
			continue
		}

		out = append(out, Entry{
			Name:       name,
			Device:     dev,
			Interfaces: h.deviceInterfaces(dev, entries),
		})
	}
	return out, nil
}

// DeviceEntry returns the device behind one sysfs entry name, with
// its interfaces.
func (h *Host) DeviceEntry(name string) (Entry, error) {
	dev, err := h.readDevice(name)
	if err != nil {
		return Entry{}, err
	}
	entries, err := os.ReadDir(h.root)
	if err != nil {
		return Entry{}, fmt.Errorf("read sysfs usb tree: %w", err)
	}
	return Entry{Name: name, Device: dev, Interfaces: h.deviceInterfaces(dev, entries)}, nil
}

func (h *Host) readDevice(name string) (*device, error) {
	dir := filepath.Join(h.root, name)

	vendor, err := readHexAttr(dir, "idVendor")
	if err != nil {
		return nil, err
	}
	product, err := readHexAttr(dir, "idProduct")
	if err != nil {
		return nil, err
	}
	busnum, err := readDecAttr(dir, "busnum")
	if err != nil {
		return nil, err
	}
	devpath, err := readStringAttr(dir, "devpath")
	if err != nil {
		return nil, err
	}

	dev := &device{
		host:              h,
		name:              name,
		dir:               dir,
		vendor:            uint16(vendor),
		product:           uint16(product),
		locationID:        locationFromTopology(uint8(busnum), devpath),
		serialStringIndex: 0,
	}
	if _, err := os.Stat(filepath.Join(dir, "serial")); err == nil {
		dev.serialStringIndex = serialStringIndex
	}
	return dev, nil
}

// deviceInterfaces finds the "N-P:C.I" interface entries belonging to
// a device among the already-listed sysfs entries.
func (h *Host) deviceInterfaces(dev *device, entries []os.DirEntry) []usb.Interface {
	prefix := dev.name + ":"
	var out []usb.Interface
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		num, err := readDecAttr(filepath.Join(h.root, name), "bInterfaceNumber")
		if err != nil {
			// Fall back to the entry-name suffix after the last dot.
			dot := strings.LastIndexByte(name, '.')
			if dot < 0 {
				continue
			}
			num, err = strconv.ParseUint(name[dot+1:], 10, 8)
			if err != nil {
				continue
			}
		}
		out = append(out, &iface{dev: dev, num: uint8(num)})
	}
	return out
}

// locationFromTopology synthesizes a 32-bit topology location: the
// bus number in the top byte, then one nibble per hub port walking
// down the chain. The value is stable until the device is physically
// replugged elsewhere.
func locationFromTopology(busnum uint8, devpath string) uint32 {
	loc := uint32(busnum) << 24
	shift := 20
	for _, part := range strings.Split(devpath, ".") {
		port, err := strconv.ParseUint(part, 10, 8)
		if err != nil || shift < 0 {
			break
		}
		loc |= uint32(port&0xf) << shift
		shift -= 4
	}
	return loc
}

func readStringAttr(dir, attr string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, attr))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", attr, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func readHexAttr(dir, attr string) (uint64, error) {
	s, err := readStringAttr(dir, attr)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", attr, err)
	}
	return v, nil
}

func readDecAttr(dir, attr string) (uint64, error) {
	s, err := readStringAttr(dir, attr)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", attr, err)
	}
	return v, nil
}
