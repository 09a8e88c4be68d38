package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func sampleEvent() Event {
	return Event{
		Type:      TypeEntitlementsChanged,
		StudentID: "07",
		VideoIDs:  []int{101, 102},
		Revision:  2,
		Operation: "grant",
		At:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLocalBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewLocalBus()
	rec := &recorder{}
	require.NoError(t, bus.StartForwarder(ctx, rec.add))

	require.NoError(t, bus.Publish(ctx, sampleEvent()))
	require.Len(t, rec.snapshot(), 1)
	assert.Equal(t, sampleEvent(), rec.snapshot()[0])

	cancel()
	assert.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.handlers) == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Close())
	assert.Error(t, bus.Publish(context.Background(), sampleEvent()))
}

func TestLocalBusRequiresCallback(t *testing.T) {
	assert.Error(t, NewLocalBus().StartForwarder(context.Background(), nil))
}

func TestRedisBus(t *testing.T) {
	server := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	defer rdb.Close()

	bus, err := NewRedisBus(zerolog.Nop(), rdb, "test-events")
	require.NoError(t, err)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	require.NoError(t, bus.StartForwarder(ctx, rec.add))

	// garbage on the channel is skipped
	require.NoError(t, rdb.Publish(ctx, "test-events", "not json").Err())
	require.NoError(t, bus.Publish(ctx, sampleEvent()))

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := rec.snapshot()[0]
	assert.Equal(t, "07", got.StudentID)
	assert.Equal(t, []int{101, 102}, got.VideoIDs)
	assert.True(t, sampleEvent().At.Equal(got.At))
}

func TestNewRedisBusRequiresClient(t *testing.T) {
	_, err := NewRedisBus(zerolog.Nop(), nil, "")
	assert.Error(t, err)
}
