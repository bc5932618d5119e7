//go:build integration

package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/storefront/internal/domain/cart"
)

var testAddr string

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start redis: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(context.Background()) }()

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "host: %v\n", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapped port: %v\n", err)
		return 1
	}
	testAddr = fmt.Sprintf("%s:%s", host, port.Port())

	return m.Run()
}

func newTestStorage(t *testing.T, ttl time.Duration) *SlotStorage {
	t.Helper()
	s, err := New(context.Background(), Options{Addr: testAddr, TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSlotStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, 0)

	_, err := s.Load(ctx, "sess-a", cart.SlotItems)
	require.ErrorIs(t, err, cart.ErrSlotEmpty)

	require.NoError(t, s.Save(ctx, "sess-a", cart.SlotItems, []byte(`[{"id":1}]`)))
	require.NoError(t, s.Save(ctx, "sess-a", cart.SlotCoupon, []byte("JBL20")))

	v, err := s.Load(ctx, "sess-a", cart.SlotItems)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(v))

	require.NoError(t, s.Delete(ctx, "sess-a", cart.SlotItems, cart.SlotCoupon))
	_, err = s.Load(ctx, "sess-a", cart.SlotCoupon)
	require.ErrorIs(t, err, cart.ErrSlotEmpty)
	require.NoError(t, s.Ping(ctx))
}

func TestSlotStorage_TTLCoversBothSlots(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, time.Hour)

	require.NoError(t, s.Save(ctx, "sess-ttl", cart.SlotCoupon, []byte("JBL20")))
	require.NoError(t, s.Save(ctx, "sess-ttl", cart.SlotItems, []byte(`[]`)))

	for _, slot := range []string{cart.SlotItems, cart.SlotCoupon} {
		ttl, err := s.client.TTL(ctx, slotKey("sess-ttl", slot)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute, slot)
	}
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New(context.Background(), Options{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
