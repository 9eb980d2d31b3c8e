package redis

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/routing"
)

var _ routing.Counter = (*Counter)(nil)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	logging.SetGlobalLogger(logging.NewNopLogger())

	mr := miniredis.RunT(t)
	client, err := NewClient(&Config{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Defaults(t *testing.T) {
	client, _ := setupTestRedis(t)

	assert.Equal(t, 10, client.config.PoolSize)
	assert.Equal(t, "outbound-router:", client.config.KeyPrefix)
	assert.NoError(t, client.Health(context.Background()))
}

func TestNewClient_Errors(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()
	_, err = NewClient(&Config{Address: addr})
	assert.ErrorContains(t, err, "failed to connect to Redis")
}

func TestConfigFromURL(t *testing.T) {
	cfg, err := ConfigFromURL("redis://:pw@cache:6380/3")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", cfg.Address)
	assert.Equal(t, "pw", cfg.Password)
	assert.Equal(t, 3, cfg.DB)

	_, err = ConfigFromURL("amqp://nope")
	assert.Error(t, err)
}

func TestCounter_RotatesAcrossInstances(t *testing.T) {
	client, mr := setupTestRedis(t)

	first := client.NewCounter("orders")
	second := client.NewCounter("orders")

	got := []int{
		first.NextIndex(3), second.NextIndex(3), first.NextIndex(3), second.NextIndex(3),
	}
	assert.Equal(t, []int{0, 1, 2, 0}, got)

	v, err := mr.Get("outbound-router:counter:orders")
	require.NoError(t, err)
	assert.Equal(t, "4", v)

	require.NoError(t, first.Reset(context.Background()))
	assert.Equal(t, 0, second.NextIndex(3))
}

func TestCounter_ConcurrentCallersNeverCollide(t *testing.T) {
	client, _ := setupTestRedis(t)
	counter := client.NewCounter("parallel")

	const callers = 50
	seen := make(map[int]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx := counter.NextIndex(callers)
			mu.Lock()
			seen[idx] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, callers)
}

func TestCounter_FallsBackWhenRedisIsDown(t *testing.T) {
	logging.SetGlobalLogger(logging.NewNopLogger())
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client, err := NewClient(&Config{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	counter := client.NewCounter("down")
	mr.Close()

	assert.Equal(t, []int{0, 1, 0}, []int{counter.NextIndex(2), counter.NextIndex(2), counter.NextIndex(2)})
	assert.Equal(t, 0, counter.NextIndex(0))
}
