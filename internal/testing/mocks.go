// Package testing provides shared mocks for the usb and stream
// boundaries.
package testing

import (
	"errors"
	"sync"

	"github.com/ttybridge/ttybridge/stream"
	"github.com/ttybridge/ttybridge/usb"
)

// ErrDescriptorIO is returned by MockDevice when a string-descriptor
// fetch is configured to fail.
var ErrDescriptorIO = errors.New("string descriptor read failed")

// MockDevice implements usb.Device from plain fields.
type MockDevice struct {
	Vendor     uint16
	Product    uint16
	SerialIdx  uint8
	Serial     string
	SerialErr  bool
	Properties map[string]uint32
}

func (d *MockDevice) VendorID() uint16               { return d.Vendor }
func (d *MockDevice) ProductID() uint16              { return d.Product }
func (d *MockDevice) SerialNumberStringIndex() uint8 { return d.SerialIdx }

func (d *MockDevice) StringDescriptor(index uint8, max int) (string, error) {
	if d.SerialErr {
		return "", ErrDescriptorIO
	}
	if index != d.SerialIdx || index == 0 {
		return "", ErrDescriptorIO
	}
	s := d.Serial
	if len(s) > max {
		s = s[:max]
	}
	return s, nil
}

func (d *MockDevice) Property(key string) (uint32, bool) {
	v, ok := d.Properties[key]
	return v, ok
}

// MockInterface implements usb.Interface.
type MockInterface struct {
	Dev *MockDevice
	Num uint8
}

func (i *MockInterface) Device() usb.Device     { return i.Dev }
func (i *MockInterface) InterfaceNumber() uint8 { return i.Num }

// MockProvider implements stream.Provider.
type MockProvider struct{ Name string }

func (p *MockProvider) ProviderName() string { return p.Name }

// MockFactory implements stream.Factory and counts stream creations
// and releases so tests can verify nothing leaks.
type MockFactory struct {
	mu sync.Mutex

	FailCreate bool // NewStream returns an error
	FailInit   bool // created streams fail Init
	FailAttach bool // created streams fail Attach

	Created  int
	Released int
	Streams  []*MockStream
}

func (f *MockFactory) NewStream() (stream.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreate {
		return nil, errors.New("stream allocation refused")
	}
	s := &MockStream{factory: f, failInit: f.FailInit, failAttach: f.FailAttach, Props: make(map[string]string)}
	f.Created++
	f.Streams = append(f.Streams, s)
	return s, nil
}

// Leaked reports how many created streams were never released.
func (f *MockFactory) Leaked() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Created - f.Released
}

// MockStream records the lifecycle calls made against it.
type MockStream struct {
	factory    *MockFactory
	failInit   bool
	failAttach bool

	Initialized  bool
	RxQueueSize  uint32
	TxQueueSize  uint32
	Provider     stream.Provider
	Props        map[string]string
	Registered   bool
	ReleaseCount int
}

func (s *MockStream) Init(rx, tx uint32) error {
	if s.failInit {
		return errors.New("stream init failed")
	}
	s.Initialized = true
	s.RxQueueSize = rx
	s.TxQueueSize = tx
	return nil
}

func (s *MockStream) Attach(provider stream.Provider) error {
	if s.failAttach {
		return errors.New("stream attach failed")
	}
	s.Provider = provider
	return nil
}

func (s *MockStream) SetProperty(key, value string) { s.Props[key] = value }

func (s *MockStream) RegisterService() { s.Registered = true }

func (s *MockStream) Release() {
	s.ReleaseCount++
	if s.factory != nil && s.ReleaseCount == 1 {
		s.factory.mu.Lock()
		s.factory.Released++
		s.factory.mu.Unlock()
	}
}
