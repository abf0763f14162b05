package bus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ttybridge/ttybridge/stream"
)

// Factory creates streams that publish themselves on a Bus.
type Factory struct {
	bus    *Bus
	logger *slog.Logger
}

// NewFactory creates a Factory publishing to the given Bus.
func NewFactory(b *Bus, logger *slog.Logger) *Factory {
	return &Factory{bus: b, logger: logger}
}

// NewStream creates a fresh, uninitialized stream.
func (f *Factory) NewStream() (stream.Stream, error) {
	if f.bus == nil {
		return nil, fmt.Errorf("factory has no bus to publish on")
	}
	return &serialStream{bus: f.bus, logger: f.logger, props: make(map[string]string)}, nil
}

// serialStream is the default stream.Stream implementation. The
// generic I/O path lives in the host framework; this object carries
// the lifecycle and naming state the bridge manipulates.
type serialStream struct {
	bus    *Bus
	logger *slog.Logger

	mu          sync.Mutex
	rxQueueSize uint32
	txQueueSize uint32
	initialized bool
	provider    stream.Provider
	props       map[string]string
	node        string
	released    bool
}

func (s *serialStream) Init(rxQueueSize, txQueueSize uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return fmt.Errorf("stream already initialized")
	}
	s.rxQueueSize = rxQueueSize
	s.txQueueSize = txQueueSize
	s.initialized = true
	return nil
}

func (s *serialStream) Attach(provider stream.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return fmt.Errorf("stream not initialized")
	}
	if s.provider != nil {
		return fmt.Errorf("stream already attached to %s", s.provider.ProviderName())
	}
	if provider == nil {
		return fmt.Errorf("nil provider")
	}
	s.provider = provider
	return nil
}

func (s *serialStream) SetProperty(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[key] = value
}

// RegisterService publishes the stream under its current naming
// properties. Registration has no failure return; a name collision is
// logged and the stream stays unpublished.
func (s *serialStream) RegisterService() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released || s.node != "" || s.provider == nil {
		return
	}

	node := s.props[stream.KeyBaseName] + s.props[stream.KeySuffix]
	svc := Service{Node: node, Provider: s.provider.ProviderName()}
	if err := s.bus.publish(svc); err != nil {
		s.log().Error("failed to publish serial service", "node", node, "error", err)
		return
	}
	s.node = node
	s.log().Info("published serial service", "node", node, "provider", svc.Provider)
}

func (s *serialStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	if s.node != "" {
		s.bus.withdraw(s.node)
		s.log().Info("withdrew serial service", "node", s.node)
		s.node = ""
	}
	s.provider = nil
	s.released = true
}

func (s *serialStream) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}
