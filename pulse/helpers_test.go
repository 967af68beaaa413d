package pulse

import (
	"context"
	"sync"
	"testing"

	"github.com/oliverbestmann/gpuctx/hal"
	"github.com/oliverbestmann/gpuctx/hal/soft"
	"github.com/stretchr/testify/require"
)

func createContext(t *testing.T, adapters ...soft.AdapterOptions) *Context {
	t.Helper()

	var instance *soft.Instance
	if len(adapters) == 0 {
		instance = soft.NewInstance(nil)
	} else {
		instance = soft.NewInstance(&soft.InstanceOptions{Adapters: adapters})
	}

	c, err := ResolveDefault(context.Background(), instance)
	require.NoError(t, err)

	t.Cleanup(c.Release)

	return c
}

func softQueue(t *testing.T, c *Context) *soft.Queue {
	t.Helper()

	queue, ok := c.Queue().(*soft.Queue)
	require.True(t, ok, "context does not use the soft backend")
	return queue
}

// trackingInstance wraps an instance and remembers every adapter it handed out.
type trackingInstance struct {
	hal.Instance

	// closed to let RequestAdapter continue, nil to not block
	unblock chan struct{}

	mu       sync.Mutex
	adapters []*trackingAdapter
}

func (i *trackingInstance) RequestAdapter(opts *hal.AdapterOptions) (hal.Adapter, error) {
	if i.unblock != nil {
		<-i.unblock
	}

	adapter, err := i.Instance.RequestAdapter(opts)
	if err != nil {
		return nil, err
	}

	tracked := &trackingAdapter{Adapter: adapter}

	i.mu.Lock()
	i.adapters = append(i.adapters, tracked)
	i.mu.Unlock()

	return tracked, nil
}

func (i *trackingInstance) releasedAdapters() (released, total int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, adapter := range i.adapters {
		if adapter.isReleased() {
			released++
		}
	}

	return released, len(i.adapters)
}

type trackingAdapter struct {
	hal.Adapter

	mu       sync.Mutex
	released bool
}

func (a *trackingAdapter) Release() {
	a.mu.Lock()
	a.released = true
	a.mu.Unlock()

	a.Adapter.Release()
}

func (a *trackingAdapter) isReleased() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}
