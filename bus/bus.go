// Package bus tracks the serial services this process has published
// and provides the default stream.Factory backing them.
package bus

import (
	"fmt"
	"sync"
)

// Service describes one published serial service.
type Service struct {
	// Node is the device-node name, base name plus suffix
	// (e.g. "CP210x-a1b2c3d40").
	Node string
	// Provider names the provider the stream is attached under.
	Provider string
}

// Bus is a process-wide registry of published serial services.
type Bus struct {
	mu       sync.Mutex
	services map[string]Service
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{services: make(map[string]Service)}
}

// Services returns a snapshot of all currently published services.
func (b *Bus) Services() []Service {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Service, 0, len(b.services))
	for _, s := range b.services {
		out = append(out, s)
	}
	return out
}

func (b *Bus) publish(svc Service) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.services[svc.Node]; ok {
		return fmt.Errorf("service %q already published", svc.Node)
	}
	b.services[svc.Node] = svc
	return nil
}

func (b *Bus) withdraw(node string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.services, node)
}
