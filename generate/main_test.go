package main

import (
	"context"
	"fmt"
	"testing"

	storage "github.com/next-exp/storage_go/pkg"
	"github.com/next-exp/storage_go/pkg/columns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenerator() *Generator {
	config := storage.DefaultConfiguration()
	config.NumPlanes = 3
	config.HitsPerPlane = 10
	config.TracksPerEvent = 2
	config.Seed = 42
	return NewGenerator(config)
}

func TestGeneratorIsDeterministic(t *testing.T) {
	g := testGenerator()
	assert.Equal(t, g.Event(7), testGenerator().Event(7))
	assert.NotEqual(t, g.Event(7), g.Event(8))

	ev := g.Event(3)
	assert.Equal(t, 3, ev.Number)
	require.Len(t, ev.Planes, 3)
	assert.Len(t, ev.Tracks, 2)
	for p, plane := range ev.Planes {
		assert.GreaterOrEqual(t, len(plane.Hits), 10, "plane %d", p)
		for _, h := range plane.Hits {
			assert.Less(t, h.Cluster, len(plane.Clusters))
			assert.GreaterOrEqual(t, h.PixX, int32(0))
			assert.Less(t, h.PixX, int32(PlaneRows))
		}
	}
}

func TestNoiseMasks(t *testing.T) {
	g := testGenerator()
	masks, err := g.NoiseMasks()
	require.NoError(t, err)
	require.Len(t, masks, 3)
	for p, pixels := range g.Noisy {
		for _, px := range pixels {
			assert.True(t, masks[p].At(px[0], px[1]))
		}
	}
}

func TestWorkersWriteInOrder(t *testing.T) {
	path := fmt.Sprintf("%sgenerate-%s", columns.MemoryPrefix, t.Name())
	defer columns.RemoveMemoryFile(path)

	g := testGenerator()
	session, err := storage.OpenForWrite(path, storage.SectionAll, g.NumPlanes)
	require.NoError(t, err)
	results := startWorkers(context.Background(), g, 4, 5, 20)
	written, err := processWorkerResults(results, session, 5)
	require.NoError(t, err)
	assert.Equal(t, 20, written)
	require.NoError(t, session.Close())

	reader, err := storage.OpenForRead(path, storage.SectionAll, nil)
	require.NoError(t, err)
	defer reader.Close()
	require.Equal(t, 20, reader.NumEvents())
	for i := 0; i < 20; i++ {
		ev, err := reader.ReadEvent(i)
		require.NoError(t, err)
		want := g.Event(i + 5)
		assert.Equal(t, want.FrameNumber, ev.FrameNumber)
		assert.Equal(t, len(want.Tracks), ev.NumTracks())
		for p, plane := range ev.Planes() {
			assert.Equal(t, len(want.Planes[p].Hits), plane.NumHits())
			assert.Equal(t, len(want.Planes[p].Clusters), plane.NumClusters())
		}
	}
}

func TestDiscardedEvents(t *testing.T) {
	path := fmt.Sprintf("%sgenerate-%s", columns.MemoryPrefix, t.Name())
	defer columns.RemoveMemoryFile(path)

	session, err := storage.OpenForWrite(path, storage.SectionAll, 1)
	require.NoError(t, err)
	defer session.Close()

	tooMany := EventData{Number: 1, Planes: make([]PlaneData, 1)}
	for i := 0; i <= storage.MaxHits; i++ {
		tooMany.Planes[0].Hits = append(tooMany.Planes[0].Hits, HitData{Cluster: -1})
	}
	results := make(chan EventData, 3)
	results <- EventData{Number: 2, Planes: make([]PlaneData, 1)}
	results <- tooMany
	results <- EventData{Number: 0, Error: true}
	close(results)

	written, err := processWorkerResults(results, session, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, 1, session.NumEvents())
}
