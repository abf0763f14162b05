package uevent

import (
	"bytes"
	"strings"
)

// Actions reported by the kernel for USB devices.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// Event is one parsed kobject uevent.
type Event struct {
	Action    string
	DevPath   string
	Subsystem string
	DevType   string
}

// IsUSBDevice reports whether the event concerns a whole USB device
// (as opposed to one of its interfaces or another subsystem).
func (e Event) IsUSBDevice() bool {
	return e.Subsystem == "usb" && e.DevType == "usb_device"
}

// DeviceName returns the sysfs entry name of the device, the last
// element of the device path (e.g. "1-4").
func (e Event) DeviceName() string {
	if i := strings.LastIndexByte(e.DevPath, '/'); i >= 0 {
		return e.DevPath[i+1:]
	}
	return e.DevPath
}

// Parse decodes a raw uevent message: an "action@devpath" header
// followed by NUL-separated KEY=VALUE pairs. Returns false for
// messages with no usable header (e.g. libudev-tagged ones).
func Parse(data []byte) (Event, bool) {
	fields := bytes.Split(data, []byte{0})
	if len(fields) == 0 {
		return Event{}, false
	}

	header := string(fields[0])
	at := strings.IndexByte(header, '@')
	if at < 0 {
		return Event{}, false
	}

	ev := Event{Action: header[:at], DevPath: header[at+1:]}
	for _, f := range fields[1:] {
		kv := string(f)
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		switch kv[:eq] {
		case "ACTION":
			ev.Action = kv[eq+1:]
		case "DEVPATH":
			ev.DevPath = kv[eq+1:]
		case "SUBSYSTEM":
			ev.Subsystem = kv[eq+1:]
		case "DEVTYPE":
			ev.DevType = kv[eq+1:]
		}
	}
	return ev, true
}
