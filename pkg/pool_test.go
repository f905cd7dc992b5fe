package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAcquireReusesSlots(t *testing.T) {
	var p pool[TrackData, *TrackData]
	first, idx := p.acquire()
	assert.Equal(t, 0, idx)
	first.Chi2 = 4
	first.clusters = append(first.clusters, 1, 2)
	_, idx = p.acquire()
	assert.Equal(t, 1, idx)
	assert.Equal(t, PoolStat{Live: 2, Allocated: 2}, p.stat())

	p.release()
	assert.Empty(t, p.inUse())
	again, idx := p.acquire()
	assert.Equal(t, 0, idx)
	assert.Same(t, first, again)
	assert.Zero(t, again.Chi2)
	assert.Empty(t, again.clusters)
	assert.Equal(t, PoolStat{Live: 1, Allocated: 2}, p.stat())
}

func TestPoolInUseDoesNotExposeSpares(t *testing.T) {
	var p pool[HitData, *HitData]
	for i := 0; i < 3; i++ {
		p.acquire()
	}
	p.release()
	p.acquire()

	live := p.inUse()
	require.Len(t, live, 1)
	live = append(live, &HitData{PixX: 9})
	assert.NotSame(t, live[1], p.at(1))
	assert.Zero(t, p.at(1).PixX)
}

func TestPoolDrop(t *testing.T) {
	var p pool[ClusterData, *ClusterData]
	p.acquire()
	p.drop()
	assert.Empty(t, p.inUse())
	assert.Equal(t, 1, p.stat().Allocated)
}

func TestLink(t *testing.T) {
	var none Link
	_, ok := none.Index()
	assert.False(t, ok)
	assert.Equal(t, int32(-1), none.stored())

	l := linkTo(3)
	i, ok := l.Index()
	assert.True(t, ok)
	assert.Equal(t, 3, i)
	assert.Equal(t, int32(3), l.stored())

	assert.Equal(t, l, linkFromStored(3))
	assert.False(t, linkFromStored(-1).Valid())
	assert.False(t, linkFromStored(-7).Valid())
	assert.True(t, linkFromStored(0).Valid())
}
