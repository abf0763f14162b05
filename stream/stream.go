// Package stream defines the serial-stream boundary the bridge
// attaches devices to. The generic stream I/O path itself is supplied
// by the host framework; this package only models the lifecycle and
// naming surface the attachment logic needs.
package stream

// Naming property keys understood by stream implementations. The base
// name identifies the product family; the suffix makes the node name
// unique per device.
const (
	KeyBaseName = "ttyBaseName"
	KeySuffix   = "ttySuffix"
)

// Provider is the opaque parent a stream is attached under in the
// host device hierarchy.
type Provider interface {
	// ProviderName identifies the provider for logging and service
	// registration.
	ProviderName() string
}

// Stream is one serial-stream object. A stream is exclusively owned
// by whoever created it until Release is called.
type Stream interface {
	// Init prepares the stream with the given receive and transmit
	// queue sizes; zero selects the implementation defaults.
	Init(rxQueueSize, txQueueSize uint32) error
	// Attach wires the stream under the provider in the device
	// hierarchy.
	Attach(provider Provider) error
	// SetProperty sets a named string property on the stream.
	SetProperty(key, value string)
	// RegisterService publishes the stream as a discoverable service.
	RegisterService()
	// Release gives up ownership of the stream and tears down
	// whatever RegisterService published.
	Release()
}

// Factory creates streams. Creation may fail, for example when the
// host framework refuses further allocations.
type Factory interface {
	NewStream() (Stream, error)
}
