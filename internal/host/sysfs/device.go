package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ttybridge/ttybridge/usb"
)

// device implements usb.Device from sysfs attributes. Identifier
// attributes are read once at enumeration; the serial number is read
// on demand through the string-descriptor boundary so fetch failures
// surface where callers expect them.
type device struct {
	host              *Host
	name              string
	dir               string
	vendor            uint16
	product           uint16
	locationID        uint32
	serialStringIndex uint8
}

func (d *device) VendorID() uint16               { return d.vendor }
func (d *device) ProductID() uint16              { return d.product }
func (d *device) SerialNumberStringIndex() uint8 { return d.serialStringIndex }

// Name returns the sysfs entry name (e.g. "1-4").
func (d *device) Name() string { return d.name }

func (d *device) StringDescriptor(index uint8, max int) (string, error) {
	if index == 0 || index != d.serialStringIndex {
		return "", fmt.Errorf("device %s: no string descriptor at index %d", d.name, index)
	}
	data, err := os.ReadFile(filepath.Join(d.dir, "serial"))
	if err != nil {
		return "", fmt.Errorf("device %s: read serial descriptor: %w", d.name, err)
	}
	d.host.raw.Log(d.name, "serial", data)

	s := strings.TrimSpace(string(data))
	if len(s) > max {
		s = s[:max]
	}
	return s, nil
}

func (d *device) Property(key string) (uint32, bool) {
	if key == usb.PropertyLocationID {
		return d.locationID, true
	}
	return 0, false
}

// iface implements usb.Interface.
type iface struct {
	dev *device
	num uint8
}

func (i *iface) Device() usb.Device     { return i.dev }
func (i *iface) InterfaceNumber() uint8 { return i.num }
