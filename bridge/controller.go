// Package bridge attaches USB-to-serial bridge interfaces to serial
// streams and manages their lifetime.
package bridge

import (
	"fmt"
	"log/slog"

	"github.com/ttybridge/ttybridge/identity"
	"github.com/ttybridge/ttybridge/stream"
	"github.com/ttybridge/ttybridge/usb"
)

// BaseName identifies the product family in device-node names.
const BaseName = "CP210x"

// Controller owns the serial stream backing one attached USB
// interface. The stream is created by Attach and released by Detach
// or by any failure inside Attach; nothing else may hold it.
type Controller struct {
	factory  stream.Factory
	resolver *identity.Resolver
	logger   *slog.Logger

	stream stream.Stream
}

// NewController creates a Controller that obtains streams from
// factory and names them through resolver.
func NewController(factory stream.Factory, resolver *identity.Resolver, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{factory: factory, resolver: resolver, logger: logger}
}

// Attach creates a serial stream for the interface, wires it under
// the provider, names it, and registers it as a discoverable service.
// On any failure after creation the stream is released before the
// error is returned; the Controller then owns nothing.
func (c *Controller) Attach(provider stream.Provider, iface usb.Interface) (err error) {
	if c.stream != nil {
		return fmt.Errorf("controller already holds a stream")
	}

	s, err := c.factory.NewStream()
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}

	defer func() {
		if err != nil {
			s.Release()
			c.stream = nil
		}
	}()
	c.stream = s

	if err = s.Init(0, 0); err != nil {
		return fmt.Errorf("initialize stream: %w", err)
	}

	if err = s.Attach(provider); err != nil {
		return fmt.Errorf("attach stream: %w", err)
	}

	// The node name is a fixed base name plus a suffix derived from
	// uniquely identifying device data.
	suffix := c.resolver.Suffix(iface)
	s.SetProperty(stream.KeyBaseName, BaseName)
	s.SetProperty(stream.KeySuffix, "-"+suffix)

	s.RegisterService()

	c.logger.Debug("attached serial stream",
		"node", BaseName+"-"+suffix,
		"interface", iface.InterfaceNumber())
	return nil
}

// Detach releases the owned stream, if any. Safe to call more than
// once and when Attach never succeeded.
func (c *Controller) Detach() {
	if c.stream != nil {
		c.stream.Release()
		c.stream = nil
	}
}
