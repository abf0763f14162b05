// Package usb defines the host-side USB boundary the bridge consumes.
// A backend (sysfs on Linux, mocks in tests) implements these
// interfaces; the rest of the program never touches the platform
// directly.
package usb

// MaxDescriptorLen is the largest possible USB string descriptor
// payload. Bounded fetches must never exceed it.
const MaxDescriptorLen = 256

// PropertyLocationID is the key for the USB topology location of a
// device: a 32-bit value that stays stable as long as the physical
// connection topology is unchanged.
const PropertyLocationID = "locationID"

// Device is one physical USB device as reported by the host.
type Device interface {
	// VendorID returns the idVendor field of the device descriptor.
	VendorID() uint16
	// ProductID returns the idProduct field of the device descriptor.
	ProductID() uint16
	// SerialNumberStringIndex returns the iSerialNumber descriptor
	// index, or 0 when the device reports none.
	SerialNumberStringIndex() uint8
	// StringDescriptor fetches the string descriptor at index,
	// truncated to max bytes. The fetch may fail with an I/O error.
	StringDescriptor(index uint8, max int) (string, error)
	// Property looks up a numeric device property by key.
	// The second return is false when the property is absent.
	Property(key string) (uint32, bool)
}

// Interface is one logical function exposed by a Device. A single
// device may expose several, each independently enumerable.
type Interface interface {
	// Device returns the device this interface belongs to.
	Device() Device
	// InterfaceNumber returns the 0-based ordinal of this interface
	// among the interfaces of its device.
	InterfaceNumber() uint8
}
