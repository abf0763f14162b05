package bus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttybridge/ttybridge/bus"
	mocks "github.com/ttybridge/ttybridge/internal/testing"
	"github.com/ttybridge/ttybridge/stream"
)

func newRegistered(t *testing.T, f stream.Factory, suffix string) stream.Stream {
	t.Helper()
	s, err := f.NewStream()
	require.NoError(t, err)
	require.NoError(t, s.Init(0, 0))
	require.NoError(t, s.Attach(&mocks.MockProvider{Name: "usb-1.2"}))
	s.SetProperty(stream.KeyBaseName, "CP210x")
	s.SetProperty(stream.KeySuffix, suffix)
	s.RegisterService()
	return s
}

func TestPublishAndWithdraw(t *testing.T) {
	b := bus.New()
	f := bus.NewFactory(b, nil)

	s := newRegistered(t, f, "-SN10")
	svcs := b.Services()
	require.Len(t, svcs, 1)
	assert.Equal(t, "CP210x-SN10", svcs[0].Node)
	assert.Equal(t, "usb-1.2", svcs[0].Provider)

	s.Release()
	assert.Empty(t, b.Services())

	// Release is idempotent.
	s.Release()
	assert.Empty(t, b.Services())
}

func TestDuplicateNodeNameStaysUnpublished(t *testing.T) {
	b := bus.New()
	f := bus.NewFactory(b, nil)

	first := newRegistered(t, f, "-SN10")
	second := newRegistered(t, f, "-SN10")

	assert.Len(t, b.Services(), 1)

	// Releasing the loser must not withdraw the winner's entry.
	second.Release()
	assert.Len(t, b.Services(), 1)
	first.Release()
	assert.Empty(t, b.Services())
}

func TestStreamLifecycleOrdering(t *testing.T) {
	b := bus.New()
	f := bus.NewFactory(b, nil)

	s, err := f.NewStream()
	require.NoError(t, err)

	// Attach before Init is rejected.
	assert.Error(t, s.Attach(&mocks.MockProvider{Name: "usb-1.2"}))

	require.NoError(t, s.Init(0, 0))
	assert.Error(t, s.Init(0, 0))

	require.NoError(t, s.Attach(&mocks.MockProvider{Name: "usb-1.2"}))
	assert.Error(t, s.Attach(&mocks.MockProvider{Name: "usb-1.3"}))

	// Registration without naming properties still publishes under
	// whatever name is set; an unattached stream publishes nothing.
	s.RegisterService()
	assert.Len(t, b.Services(), 1)
	s.Release()
}
