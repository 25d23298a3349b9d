package core_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avlasov/WatchSync/internal/core"
)

func TestGetOrCreateConvergesUnderConcurrency(t *testing.T) {
	reg := core.NewRegistry(core.Options{})

	const workers = 50
	results := make(chan core.RoomService, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- reg.GetOrCreate("contested")
		}()
	}
	wg.Wait()
	close(results)

	distinct := make(map[core.RoomService]struct{})
	for r := range results {
		distinct[r] = struct{}{}
	}
	assert.Len(t, distinct, 1)
	assert.Len(t, reg.List(), 1)
}

func TestListReportsCounts(t *testing.T) {
	reg := core.NewRegistry(core.Options{})
	room := reg.GetOrCreate("r1")
	room.Subscribe(&fakeSub{id: "s1"})
	room.Apply(mkEvent(t, "presence", `{"action":"join","name":"Alice"}`, "u1"))

	infos := reg.List()
	require.Len(t, infos, 1)
	assert.Equal(t, 1, infos[0].Subscribers)
	assert.Equal(t, 1, infos[0].Members)
}

func TestSweepEvictsOnlyIdleSubscriberlessRooms(t *testing.T) {
	reg := core.NewRegistry(core.Options{})
	reg.GetOrCreate("idle")
	busy := reg.GetOrCreate("busy")
	busy.Subscribe(&fakeSub{id: "s1"})

	evicted := reg.Sweep(time.Now().Add(time.Second))
	assert.Equal(t, 1, evicted)

	infos := reg.List()
	require.Len(t, infos, 1)
	assert.Equal(t, "busy", string(infos[0].ID))
}

func TestSweepSparesRecentlyActiveRooms(t *testing.T) {
	reg := core.NewRegistry(core.Options{})
	room := reg.GetOrCreate("active")
	room.Apply(mkEvent(t, "presence", `{"action":"join","name":"Alice"}`, "u1"))

	evicted := reg.Sweep(time.Now().Add(-time.Hour))
	assert.Equal(t, 0, evicted)
	assert.Len(t, reg.List(), 1)
}
