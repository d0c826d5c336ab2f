package bridge_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge/bridgetest"
)

func TestPoolKeepsPerDeviceOrder(t *testing.T) {
	fake := bridgetest.New()
	pool := bridge.NewPool(fake)
	defer pool.Close()

	var replies []<-chan bridge.Reply
	for i := 0; i < 20; i++ {
		replies = append(replies, pool.Submit(context.Background(), "A", fmt.Sprintf("cmd %d", i)))
	}
	for _, r := range replies {
		reply := <-r
		require.NoError(t, reply.Err)
		assert.Equal(t, "A", reply.Serial)
	}

	want := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		want = append(want, fmt.Sprintf("cmd %d", i))
	}
	assert.Equal(t, want, fake.Commands("A"))
}

func TestPoolSerializesOneDeviceAndParallelizesMany(t *testing.T) {
	var inFlight sync.Map
	var overlap atomic.Bool
	var peak atomic.Int32
	var current atomic.Int32

	fake := bridgetest.New().OnCall(func(serial, _ string) {
		if _, busy := inFlight.LoadOrStore(serial, true); busy {
			overlap.Store(true)
		}
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		inFlight.Delete(serial)
	})
	pool := bridge.NewPool(fake)
	defer pool.Close()

	var wg sync.WaitGroup
	for _, serial := range []string{"A", "B", "C"} {
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(serial string, i int) {
				defer wg.Done()
				_, err := pool.Shell(context.Background(), serial, fmt.Sprintf("cmd %d", i))
				assert.NoError(t, err)
			}(serial, i)
		}
	}
	wg.Wait()

	assert.False(t, overlap.Load(), "one device ran two commands at once")
	assert.Greater(t, peak.Load(), int32(1), "devices never ran in parallel")
}

func TestPoolCanceledTaskIsNotRun(t *testing.T) {
	fake := bridgetest.New()
	pool := bridge.NewPool(fake)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pool.Shell(ctx, "A", "pm list users")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.Commands("A"))
}

func TestPoolClosedRejectsWork(t *testing.T) {
	pool := bridge.NewPool(bridgetest.New())
	pool.Close()
	_, err := pool.Shell(context.Background(), "A", "pm list users")
	assert.ErrorIs(t, err, bridge.ErrPoolClosed)
}
