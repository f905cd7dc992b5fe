package main

import (
	"math"
	"math/rand"

	storage "github.com/next-exp/storage_go/pkg"
)

// Telescope geometry used for the synthetic events.
const (
	PlaneRows    = 512
	PlaneCols    = 1024
	PixelPitch   = 0.0292 // mm
	PlaneSpacing = 25.0   // mm
	FrameTicks   = 400    // clock ticks per frame
	ClockTick    = 0.025  // us
)

type HitData struct {
	PixX, PixY       int32
	PosX, PosY, PosZ float64
	Value            float64
	Timing           float64
	Cluster          int // index in the plane, -1 for noise
}

type ClusterData struct {
	PixX, PixY, PixErrX, PixErrY float64
	PosX, PosY, PosZ             float64
	PosErrX, PosErrY, PosErrZ    float64
	// Track is the index of the track in the event
	Track int
}

type TrackData struct {
	SlopeX, SlopeY, SlopeErrX, SlopeErrY     float64
	OriginX, OriginY, OriginErrX, OriginErrY float64
	CovarianceX, CovarianceY                 float64
	Chi2                                     float64
}

type PlaneData struct {
	Hits     []HitData
	Clusters []ClusterData
}

// EventData is a generated event, detached from any storage session so it
// can travel between goroutines.
type EventData struct {
	Number        int
	TimeStamp     uint64
	FrameNumber   uint64
	TriggerOffset int32
	TriggerInfo   int32
	Planes        []PlaneData
	Tracks        []TrackData
	Error         bool
}

type Generator struct {
	NumPlanes      int
	HitsPerPlane   int
	ClusterSize    int
	TracksPerEvent int
	Seed           int64
	// Noisy pixels per plane, fired more often than the rest
	Noisy          [][][2]int
}

func NewGenerator(config storage.Configuration) *Generator {
	g := &Generator{
		NumPlanes:      config.NumPlanes,
		HitsPerPlane:   config.HitsPerPlane,
		ClusterSize:    max(1, config.ClusterSize),
		TracksPerEvent: config.TracksPerEvent,
		Seed:           config.Seed,
	}
	rng := rand.New(rand.NewSource(config.Seed))
	g.Noisy = make([][][2]int, g.NumPlanes)
	for p := range g.Noisy {
		for i := 0; i < 4; i++ {
			g.Noisy[p] = append(g.Noisy[p], [2]int{rng.Intn(PlaneRows), rng.Intn(PlaneCols)})
		}
	}
	return g
}

// NoiseMasks returns a mask per plane flagging the noisy pixels.
func (g *Generator) NoiseMasks() (map[int]storage.NoiseMask, error) {
	masks := make(map[int]storage.NoiseMask, g.NumPlanes)
	for p, pixels := range g.Noisy {
		mask := storage.NewNoiseMask(PlaneRows, PlaneCols)
		for _, px := range pixels {
			if err := mask.Set(px[0], px[1], true); err != nil {
				return nil, err
			}
		}
		masks[p] = mask
	}
	return masks, nil
}

// Event generates event n. The result only depends on the seed and n.
func (g *Generator) Event(n int) EventData {
	rng := rand.New(rand.NewSource(g.Seed*1000003 + int64(n)))
	ev := EventData{
		Number:        n,
		FrameNumber:   uint64(n),
		TimeStamp:     uint64(n)*FrameTicks + uint64(rng.Intn(FrameTicks)),
		TriggerOffset: int32(rng.Intn(FrameTicks)),
		TriggerInfo:   int32(rng.Intn(4)),
		Planes:        make([]PlaneData, g.NumPlanes),
	}

	width := PlaneRows * PixelPitch
	height := PlaneCols * PixelPitch
	for t := 0; t < g.TracksPerEvent; t++ {
		track := TrackData{
			SlopeX:     rng.NormFloat64() * 0.002,
			SlopeY:     rng.NormFloat64() * 0.002,
			SlopeErrX:  0.0001,
			SlopeErrY:  0.0001,
			OriginX:    width * (0.2 + 0.6*rng.Float64()),
			OriginY:    height * (0.2 + 0.6*rng.Float64()),
			OriginErrX: PixelPitch / math.Sqrt(12),
			OriginErrY: PixelPitch / math.Sqrt(12),
		}
		track.CovarianceX = -track.SlopeErrX * track.OriginErrX * 0.5
		track.CovarianceY = -track.SlopeErrY * track.OriginErrY * 0.5

		chi2 := 0.0
		for p := range ev.Planes {
			z := float64(p) * PlaneSpacing
			x := track.OriginX + track.SlopeX*z
			y := track.OriginY + track.SlopeY*z
			row := int32(x / PixelPitch)
			col := int32(y / PixelPitch)
			if row < 0 || row >= PlaneRows || col < 0 || col >= PlaneCols {
				continue
			}
			plane := &ev.Planes[p]
			cluster := ClusterData{PosZ: z, Track: t}
			var sumX, sumY, sumW float64
			for i := 0; i < g.ClusterSize; i++ {
				hit := HitData{
					PixX:    clamp(row+int32(i%2), PlaneRows),
					PixY:    clamp(col+int32(i/2), PlaneCols),
					Value:   1,
					Timing:  float64(ev.TriggerOffset) * ClockTick,
					Cluster: len(plane.Clusters),
				}
				hit.PosX = (float64(hit.PixX) + 0.5) * PixelPitch
				hit.PosY = (float64(hit.PixY) + 0.5) * PixelPitch
				hit.PosZ = z
				sumX += float64(hit.PixX) * hit.Value
				sumY += float64(hit.PixY) * hit.Value
				sumW += hit.Value
				plane.Hits = append(plane.Hits, hit)
			}
			cluster.PixX = sumX / sumW
			cluster.PixY = sumY / sumW
			cluster.PixErrX = 1 / math.Sqrt(12*sumW)
			cluster.PixErrY = cluster.PixErrX
			cluster.PosX = (cluster.PixX + 0.5) * PixelPitch
			cluster.PosY = (cluster.PixY + 0.5) * PixelPitch
			cluster.PosErrX = cluster.PixErrX * PixelPitch
			cluster.PosErrY = cluster.PixErrY * PixelPitch
			cluster.PosErrZ = 0.01
			plane.Clusters = append(plane.Clusters, cluster)

			rx := (cluster.PosX - x) / cluster.PosErrX
			ry := (cluster.PosY - y) / cluster.PosErrY
			chi2 += rx*rx + ry*ry
		}
		if dof := 2*g.NumPlanes - 4; dof > 0 {
			track.Chi2 = chi2 / float64(dof)
		}
		ev.Tracks = append(ev.Tracks, track)
	}

	for p := range ev.Planes {
		plane := &ev.Planes[p]
		for len(plane.Hits) < g.HitsPerPlane {
			var row, col int
			if noisy := g.Noisy[p]; len(noisy) > 0 && rng.Intn(2) == 0 {
				px := noisy[rng.Intn(len(noisy))]
				row, col = px[0], px[1]
			} else {
				row, col = rng.Intn(PlaneRows), rng.Intn(PlaneCols)
			}
			plane.Hits = append(plane.Hits, HitData{
				PixX:    int32(row),
				PixY:    int32(col),
				PosX:    (float64(row) + 0.5) * PixelPitch,
				PosY:    (float64(col) + 0.5) * PixelPitch,
				PosZ:    float64(p) * PlaneSpacing,
				Value:   1,
				Timing:  float64(rng.Intn(FrameTicks)) * ClockTick,
				Cluster: -1,
			})
		}
	}
	return ev
}

func clamp(v int32, size int32) int32 {
	return min(max(v, 0), size-1)
}

// Fill copies the generated event into a storage event.
func (d *EventData) Fill(ev *storage.Event) error {
	ev.TimeStamp = d.TimeStamp
	ev.FrameNumber = d.FrameNumber
	ev.TriggerOffset = d.TriggerOffset
	ev.TriggerInfo = d.TriggerInfo

	tracks := make([]storage.Track, len(d.Tracks))
	for i, td := range d.Tracks {
		t, err := ev.NewTrack()
		if err != nil {
			return err
		}
		t.SlopeX, t.SlopeY, t.SlopeErrX, t.SlopeErrY = td.SlopeX, td.SlopeY, td.SlopeErrX, td.SlopeErrY
		t.OriginX, t.OriginY, t.OriginErrX, t.OriginErrY = td.OriginX, td.OriginY, td.OriginErrX, td.OriginErrY
		t.CovarianceX, t.CovarianceY = td.CovarianceX, td.CovarianceY
		t.Chi2 = td.Chi2
		tracks[i] = t
	}

	for p, pd := range d.Planes {
		clusters := make([]storage.Cluster, len(pd.Clusters))
		for i, cd := range pd.Clusters {
			c, err := ev.NewCluster(p)
			if err != nil {
				return err
			}
			c.PixX, c.PixY, c.PixErrX, c.PixErrY = cd.PixX, cd.PixY, cd.PixErrX, cd.PixErrY
			c.PosX, c.PosY, c.PosZ = cd.PosX, cd.PosY, cd.PosZ
			c.PosErrX, c.PosErrY, c.PosErrZ = cd.PosErrX, cd.PosErrY, cd.PosErrZ
			if cd.Track >= 0 {
				if err := c.SetTrack(tracks[cd.Track]); err != nil {
					return err
				}
			}
			clusters[i] = c
		}
		for _, hd := range pd.Hits {
			h, err := ev.NewHit(p)
			if err != nil {
				return err
			}
			h.PixX, h.PixY = hd.PixX, hd.PixY
			h.PosX, h.PosY, h.PosZ = hd.PosX, hd.PosY, hd.PosZ
			h.Value = hd.Value
			h.Timing = hd.Timing
			if hd.Cluster >= 0 {
				if err := clusters[hd.Cluster].AddHit(h); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
