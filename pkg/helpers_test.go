package storage

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/next-exp/storage_go/pkg/columns"
	"github.com/stretchr/testify/require"
)

var memCounter atomic.Int64

func memPath(t *testing.T) string {
	t.Helper()
	path := fmt.Sprintf("%s%s-%d", columns.MemoryPrefix, t.Name(), memCounter.Add(1))
	t.Cleanup(func() { columns.RemoveMemoryFile(path) })
	return path
}

// hitView and friends describe an event independently of the pools.
type hitView struct {
	Plane   int
	PixX    int32
	PixY    int32
	PosX    float64
	PosY    float64
	PosZ    float64
	Value   float64
	Timing  float64
	Masked  bool
	Cluster int // plane local cluster index, -1 when unclustered
}

type clusterView struct {
	Plane   int
	PixX    float64
	PixY    float64
	PixErrX float64
	PixErrY float64
	PosX    float64
	PosY    float64
	PosZ    float64
	PosErrX float64
	PosErrY float64
	PosErrZ float64
	Track   int // event track index, -1 when not in a track
	Hits    int
}

type trackView struct {
	SlopeX      float64
	SlopeY      float64
	SlopeErrX   float64
	SlopeErrY   float64
	OriginX     float64
	OriginY     float64
	OriginErrX  float64
	OriginErrY  float64
	CovarianceX float64
	CovarianceY float64
	Chi2        float64
	Clusters    int
}

type planeView struct {
	Hits     []hitView
	Clusters []clusterView
}

type eventView struct {
	TimeStamp     uint64
	FrameNumber   uint64
	TriggerOffset int32
	TriggerInfo   int32
	Invalid       bool
	Planes        []planeView
	Tracks        []trackView
}

// snapshot copies the event into plain values so it can be compared
// across events.
func snapshot(t *testing.T, ev *Event) eventView {
	t.Helper()
	out := eventView{
		TimeStamp:     ev.TimeStamp,
		FrameNumber:   ev.FrameNumber,
		TriggerOffset: ev.TriggerOffset,
		TriggerInfo:   ev.TriggerInfo,
		Invalid:       ev.Invalid,
	}
	for _, tr := range ev.Tracks() {
		out.Tracks = append(out.Tracks, trackView{
			SlopeX: tr.SlopeX, SlopeY: tr.SlopeY, SlopeErrX: tr.SlopeErrX, SlopeErrY: tr.SlopeErrY,
			OriginX: tr.OriginX, OriginY: tr.OriginY, OriginErrX: tr.OriginErrX, OriginErrY: tr.OriginErrY,
			CovarianceX: tr.CovarianceX, CovarianceY: tr.CovarianceY, Chi2: tr.Chi2,
			Clusters: tr.NumClusters(),
		})
	}
	for _, p := range ev.Planes() {
		var ps planeView
		for _, c := range p.Clusters() {
			track := -1
			if i, ok := c.TrackLink().Index(); ok {
				track = i
			}
			ps.Clusters = append(ps.Clusters, clusterView{
				Plane: c.Plane(), PixX: c.PixX, PixY: c.PixY, PixErrX: c.PixErrX, PixErrY: c.PixErrY,
				PosX: c.PosX, PosY: c.PosY, PosZ: c.PosZ, PosErrX: c.PosErrX, PosErrY: c.PosErrY, PosErrZ: c.PosErrZ,
				Track: track, Hits: c.NumHits(),
			})
		}
		for _, h := range p.Hits() {
			cluster := -1
			c, ok, err := h.Cluster()
			require.NoError(t, err)
			if ok {
				cluster = c.local
			}
			ps.Hits = append(ps.Hits, hitView{
				Plane: h.Plane(), PixX: h.PixX, PixY: h.PixY, PosX: h.PosX, PosY: h.PosY, PosZ: h.PosZ,
				Value: h.Value, Timing: h.Timing, Masked: h.Masked, Cluster: cluster,
			})
		}
		out.Planes = append(out.Planes, ps)
	}
	return out
}

// populate builds a deterministic event. Hits are acquired across planes
// in turn so the flat order differs from the plane order.
func populate(t *testing.T, ev *Event, seed int) {
	t.Helper()
	ev.TimeStamp = uint64(1000 + seed)
	ev.FrameNumber = uint64(seed)
	ev.TriggerOffset = int32(seed % 7)
	ev.TriggerInfo = int32(seed * 3)
	ev.Invalid = seed%5 == 0

	tracks := make([]Track, 2)
	for i := range tracks {
		tr, err := ev.NewTrack()
		require.NoError(t, err)
		f := float64(seed*10 + i)
		tr.SlopeX, tr.SlopeY = f+0.1, f+0.2
		tr.SlopeErrX, tr.SlopeErrY = 0.01, 0.02
		tr.OriginX, tr.OriginY = f+1, f+2
		tr.OriginErrX, tr.OriginErrY = 0.1, 0.2
		tr.CovarianceX, tr.CovarianceY = 0.001, 0.002
		tr.Chi2 = f / 3
		tracks[i] = tr
	}

	n := ev.NumPlanes()
	clusters := make([][]Cluster, n)
	for round := 0; round < 3; round++ {
		for p := 0; p < n; p++ {
			c, err := ev.NewCluster(p)
			require.NoError(t, err)
			f := float64(seed*100 + p*10 + round)
			c.PixX, c.PixY, c.PixErrX, c.PixErrY = f, f+1, 0.5, 0.5
			c.PosX, c.PosY, c.PosZ = f*2, f*3, float64(p)
			c.PosErrX, c.PosErrY, c.PosErrZ = 0.1, 0.2, 0.3
			if round < 2 {
				require.NoError(t, c.SetTrack(tracks[round]))
			}
			clusters[p] = append(clusters[p], c)
		}
	}
	for round := 0; round < 4; round++ {
		for p := 0; p < n; p++ {
			h, err := ev.NewHit(p)
			require.NoError(t, err)
			h.PixX = int32(round + p)
			h.PixY = int32(seed%13 + round)
			h.PosX, h.PosY, h.PosZ = float64(h.PixX)*0.05, float64(h.PixY)*0.05, float64(p)
			h.Value = float64(seed + round)
			h.Timing = float64(round) * 25
			if round < 3 {
				require.NoError(t, clusters[p][round].AddHit(h))
			}
		}
	}
}

func writeEvents(t *testing.T, path string, numPlanes int, count int, opts ...Option) {
	t.Helper()
	s, err := OpenForWrite(path, SectionAll, numPlanes, opts...)
	require.NoError(t, err)
	for i := 0; i < count; i++ {
		ev, err := s.NewEvent()
		require.NoError(t, err)
		populate(t, ev, i)
		require.NoError(t, s.WriteEvent(ev))
	}
	require.NoError(t, s.Close())
}

// expected is what populate produces for a seed, as read back.
func expected(t *testing.T, numPlanes int, seed int) eventView {
	t.Helper()
	path := memPath(t)
	s, err := OpenForWrite(path, SectionAll, numPlanes)
	require.NoError(t, err)
	defer s.Close()
	ev, err := s.NewEvent()
	require.NoError(t, err)
	populate(t, ev, seed)
	ev.relink()
	return snapshot(t, ev)
}
