// Package identity derives stable, unique device-node name suffixes
// for USB-to-serial bridge interfaces.
package identity

import (
	"fmt"
	"log/slog"

	"github.com/ttybridge/ttybridge/usb"
)

// FallbackSuffix is returned when no identifying data could be
// derived from the device at all.
const FallbackSuffix = "unknown"

// FactoryDefaultSerial is the serial number programmed into CP210x
// EEPROMs at the factory. Devices shipped with an unprogrammed EEPROM
// all report this value, so it cannot identify a physical unit.
const FactoryDefaultSerial = "0001"

// usbID is a (vendor, product) identifier pair.
type usbID struct {
	vendor  uint16
	product uint16
}

// defaultIDs lists the identifier pairs Silicon Labs ships CP210x
// parts with. A device matching one of these likely has an
// unprogrammed EEPROM, so its serial number field is suspect.
var defaultIDs = []usbID{
	{0x10c4, 0xea60},
	{0x10c4, 0xea61},
	{0x10c4, 0xea70},
	{0x10c4, 0xea71},
}

// IsDefaultID reports whether the (vendor, product) pair is one of
// the known factory-default identifier pairs.
func IsDefaultID(vendor, product uint16) bool {
	for _, id := range defaultIDs {
		if id.vendor == vendor && id.product == product {
			return true
		}
	}
	return false
}

// Resolver computes device-node name suffixes. The zero value logs
// through slog.Default.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver that logs through the given logger.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

func (r *Resolver) log() *slog.Logger {
	if r == nil || r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// strategy attempts to derive a suffix from a device. The bool result
// is false when the strategy has nothing to offer and the next one
// should be tried.
type strategy func(dev usb.Device) (string, bool)

// Suffix determines a device name suffix for the interface: a value
// unique across hardware units whenever possible, and constant over
// time for the same unit.
//
// The serial number is preferred. When the device carries default
// EEPROM identifiers and also reports the factory-default serial, the
// serial is shared by many physical units and is rejected in favor of
// the USB topology location. If neither source yields a value the
// literal "unknown" is returned.
func (r *Resolver) Suffix(iface usb.Interface) string {
	dev := iface.Device()

	var suffix string
	found := false
	for _, s := range []strategy{serialNumber, locationID} {
		if suffix, found = s(dev); found {
			break
		}
	}

	if !found {
		r.log().Error("no serial number or USB location available for device node naming",
			"vendor", fmt.Sprintf("%04x", dev.VendorID()),
			"product", fmt.Sprintf("%04x", dev.ProductID()))
		return FallbackSuffix
	}

	// More than one interface may exist on the device; the interface
	// ordinal keeps their node names distinct.
	return fmt.Sprintf("%s%x", suffix, iface.InterfaceNumber())
}

// serialNumber derives a suffix from the device serial number string
// descriptor. Fetch failures and empty strings are non-fatal misses,
// as is the factory-default serial on a device with default EEPROM
// identifiers.
func serialNumber(dev usb.Device) (string, bool) {
	idx := dev.SerialNumberStringIndex()
	if idx == 0 {
		return "", false
	}

	serial, err := dev.StringDescriptor(idx, usb.MaxDescriptorLen)
	if err != nil || serial == "" {
		return "", false
	}

	if IsDefaultID(dev.VendorID(), dev.ProductID()) && serial == FactoryDefaultSerial {
		return "", false
	}
	return serial, true
}

// locationID derives a suffix from the USB topology location. The
// value stays consistent as long as the bus topology is unchanged.
func locationID(dev usb.Device) (string, bool) {
	loc, ok := dev.Property(usb.PropertyLocationID)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%x", loc), true
}
