package daemon

import (
	"fmt"
	"strconv"
	"strings"
)

// Config controls which devices are bridged and where the host tree
// is read from.
type Config struct {
	SysfsRoot string   `help:"Root of the sysfs USB device tree" default:"/sys/bus/usb/devices" env:"TTYBRIDGE_SYSFS_ROOT"`
	Devices   []string `help:"vendor:product identifier pairs to bridge (hex)" default:"10c4:ea60,10c4:ea61,10c4:ea70,10c4:ea71" env:"TTYBRIDGE_DEVICES"`
}

// Match builds the device-identifier predicate from the configured
// list. Returns an error for malformed entries.
func (c Config) Match() (func(vendor, product uint16) bool, error) {
	ids, err := parseIDList(c.Devices)
	if err != nil {
		return nil, err
	}
	return matcher(ids), nil
}

// usbID is a (vendor, product) identifier pair.
type usbID struct {
	vendor  uint16
	product uint16
}

// parseIDList parses "vendor:product" hex pairs.
func parseIDList(specs []string) ([]usbID, error) {
	out := make([]usbID, 0, len(specs))
	for _, spec := range specs {
		vendorStr, productStr, ok := strings.Cut(strings.TrimSpace(spec), ":")
		if !ok {
			return nil, fmt.Errorf("malformed device id %q, want vendor:product", spec)
		}
		vendor, err := strconv.ParseUint(vendorStr, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("malformed vendor id in %q: %w", spec, err)
		}
		product, err := strconv.ParseUint(productStr, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("malformed product id in %q: %w", spec, err)
		}
		out = append(out, usbID{vendor: uint16(vendor), product: uint16(product)})
	}
	return out, nil
}

// matcher builds the device-identifier predicate for the configured
// pairs.
func matcher(ids []usbID) func(vendor, product uint16) bool {
	return func(vendor, product uint16) bool {
		for _, id := range ids {
			if id.vendor == vendor && id.product == product {
				return true
			}
		}
		return false
	}
}
