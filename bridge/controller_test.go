package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttybridge/ttybridge/bridge"
	"github.com/ttybridge/ttybridge/identity"
	mocks "github.com/ttybridge/ttybridge/internal/testing"
	"github.com/ttybridge/ttybridge/stream"
)

func testInterface() *mocks.MockInterface {
	return &mocks.MockInterface{
		Dev: &mocks.MockDevice{
			Vendor: 0x10c4, Product: 0xea60,
			SerialIdx: 3, Serial: "SN12345",
		},
		Num: 0,
	}
}

func TestAttachSuccess(t *testing.T) {
	factory := &mocks.MockFactory{}
	c := bridge.NewController(factory, identity.NewResolver(nil), nil)

	err := c.Attach(&mocks.MockProvider{Name: "usb-1.4"}, testInterface())
	require.NoError(t, err)

	require.Len(t, factory.Streams, 1)
	s := factory.Streams[0]
	assert.True(t, s.Initialized)
	assert.Zero(t, s.RxQueueSize)
	assert.Zero(t, s.TxQueueSize)
	assert.NotNil(t, s.Provider)
	assert.True(t, s.Registered)
	assert.Equal(t, "CP210x", s.Props[stream.KeyBaseName])
	assert.Equal(t, "-SN123450", s.Props[stream.KeySuffix])
	assert.Zero(t, s.ReleaseCount)

	c.Detach()
	assert.Equal(t, 1, s.ReleaseCount)
	assert.Zero(t, factory.Leaked())
}

func TestAttachFailures(t *testing.T) {
	tests := []struct {
		name    string
		factory *mocks.MockFactory
		created int
	}{
		{name: "creation fails", factory: &mocks.MockFactory{FailCreate: true}, created: 0},
		{name: "init fails", factory: &mocks.MockFactory{FailInit: true}, created: 1},
		{name: "attach fails", factory: &mocks.MockFactory{FailAttach: true}, created: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := bridge.NewController(tt.factory, identity.NewResolver(nil), nil)
			err := c.Attach(&mocks.MockProvider{Name: "usb-1.4"}, testInterface())
			require.Error(t, err)

			assert.Equal(t, tt.created, tt.factory.Created)
			assert.Zero(t, tt.factory.Leaked(), "every created stream must be released on failure")
			for _, s := range tt.factory.Streams {
				assert.False(t, s.Registered)
			}

			// Detach after a failed attach must not double-release.
			c.Detach()
			for _, s := range tt.factory.Streams {
				assert.Equal(t, 1, s.ReleaseCount)
			}
		})
	}
}

func TestAttachNamingDegradesButSucceeds(t *testing.T) {
	factory := &mocks.MockFactory{}
	c := bridge.NewController(factory, identity.NewResolver(nil), nil)

	// No serial, no location: the node still appears, under the
	// generic fallback name.
	iface := &mocks.MockInterface{
		Dev: &mocks.MockDevice{Vendor: 0x10c4, Product: 0xea60},
		Num: 0,
	}
	err := c.Attach(&mocks.MockProvider{Name: "usb-1.4"}, iface)
	require.NoError(t, err)

	s := factory.Streams[0]
	assert.True(t, s.Registered)
	assert.Equal(t, "-unknown", s.Props[stream.KeySuffix])
}

func TestAttachTwiceRejected(t *testing.T) {
	factory := &mocks.MockFactory{}
	c := bridge.NewController(factory, identity.NewResolver(nil), nil)

	require.NoError(t, c.Attach(&mocks.MockProvider{Name: "usb-1.4"}, testInterface()))
	assert.Error(t, c.Attach(&mocks.MockProvider{Name: "usb-1.4"}, testInterface()))
	assert.Equal(t, 1, factory.Created)
}

func TestDetachIdempotent(t *testing.T) {
	factory := &mocks.MockFactory{}
	c := bridge.NewController(factory, identity.NewResolver(nil), nil)

	// Never attached: nothing to release.
	c.Detach()
	assert.Zero(t, factory.Created)

	require.NoError(t, c.Attach(&mocks.MockProvider{Name: "usb-1.4"}, testInterface()))
	c.Detach()
	c.Detach()
	assert.Equal(t, 1, factory.Streams[0].ReleaseCount)
}
