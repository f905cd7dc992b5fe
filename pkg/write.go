package storage

import (
	"context"

	"github.com/next-exp/storage_go/pkg/columns"
)

// NewEvent clears the event and the pools and hands the event back for
// population. Everything obtained from the previous event is invalid
// afterwards.
func (s *Session) NewEvent() (*Event, error) {
	if s.mode != columns.Write {
		return nil, ErrWrongMode
	}
	if err := s.usable(); err != nil {
		return nil, err
	}
	if err := s.start(); err != nil {
		return nil, err
	}
	s.event.clear()
	return s.event, nil
}

// WriteEvent appends the event as one row of every tree of the session.
// All capacities are checked before anything is written, so an event that
// does not fit leaves the file untouched.
func (s *Session) WriteEvent(ev *Event) error {
	if s.mode != columns.Write {
		return ErrWrongMode
	}
	if err := s.usable(); err != nil {
		return err
	}
	if ev != s.event {
		return ErrForeignEvent
	}
	if err := s.start(); err != nil {
		return err
	}

	ev.relink()
	kept := s.keptHits(ev)
	if err := s.checkCapacity(ev, kept); err != nil {
		return err
	}

	if s.trackBuf != nil {
		s.marshalTracks(ev)
		if err := s.fill(s.tracksTree); err != nil {
			return err
		}
	}
	if s.infoBuf != nil {
		s.marshalEventInfo(ev)
		if err := s.fill(s.eventTree); err != nil {
			return err
		}
	}
	for p, plane := range ev.planes {
		if t := s.clustersTrees[p]; t != nil {
			s.marshalClusters(plane)
			if err := s.fill(t); err != nil {
				return err
			}
		}
		if t := s.hitsTrees[p]; t != nil {
			s.marshalHits(kept[p])
			if err := s.fill(t); err != nil {
				return err
			}
		}
	}
	s.numEvents++

	ctx := context.Background()
	hits := 0
	for _, k := range kept {
		hits += len(k)
	}
	s.metrics.RecordEvent(ctx, columns.Write.String(), hits, ev.NumClusters(), ev.NumTracks())
	s.recordAllocations(ctx)
	return nil
}

// keptHits lists, per plane, the slot indices of the hits that will be
// stored. In Remove mode masked hits are dropped. The lists are session
// buffers reused by every event.
func (s *Session) keptHits(ev *Event) [][]int {
	if len(s.kept) != len(ev.planes) {
		s.kept = make([][]int, len(ev.planes))
	}
	for p, plane := range ev.planes {
		out := s.kept[p][:0]
		for _, idx := range plane.hits {
			h := s.hits.at(idx)
			if s.maskMode == Remove && (h.Masked || s.masked(p, h.PixX, h.PixY)) {
				continue
			}
			out = append(out, idx)
		}
		if removed := len(plane.hits) - len(out); removed > 0 {
			s.metrics.RecordMaskedHits(context.Background(), p, true, removed)
		}
		s.kept[p] = out
	}
	return s.kept
}

func (s *Session) checkCapacity(ev *Event, kept [][]int) error {
	if s.trackBuf != nil && ev.NumTracks() > MaxTracks {
		return &CapacityError{Kind: "tracks", Plane: -1, Count: ev.NumTracks(), Capacity: MaxTracks}
	}
	for p, plane := range ev.planes {
		if s.clustersTrees[p] != nil && plane.NumClusters() > MaxClusters {
			return &CapacityError{Kind: "clusters", Plane: p, Count: plane.NumClusters(), Capacity: MaxClusters}
		}
		if s.hitsTrees[p] != nil && len(kept[p]) > MaxHits {
			return &CapacityError{Kind: "hits", Plane: p, Count: len(kept[p]), Capacity: MaxHits}
		}
	}
	return nil
}

func (s *Session) fill(t columns.Tree) error {
	if err := t.Fill(); err != nil {
		return s.fail(&IOError{Op: "fill " + t.Name(), Path: s.path, Err: err})
	}
	return nil
}

func (s *Session) marshalTracks(ev *Event) {
	b, on := s.trackBuf, s.trackFields.on
	b.NumPlanes = int32(s.numPlanes)
	b.NumTracks = int32(ev.NumTracks())
	for i, t := range s.tracks.inUse() {
		if on(trackSlopeX) {
			b.SlopeX[i] = t.SlopeX
		}
		if on(trackSlopeY) {
			b.SlopeY[i] = t.SlopeY
		}
		if on(trackSlopeErrX) {
			b.SlopeErrX[i] = t.SlopeErrX
		}
		if on(trackSlopeErrY) {
			b.SlopeErrY[i] = t.SlopeErrY
		}
		if on(trackOriginX) {
			b.OriginX[i] = t.OriginX
		}
		if on(trackOriginY) {
			b.OriginY[i] = t.OriginY
		}
		if on(trackOriginErrX) {
			b.OriginErrX[i] = t.OriginErrX
		}
		if on(trackOriginErrY) {
			b.OriginErrY[i] = t.OriginErrY
		}
		if on(trackCovarianceX) {
			b.CovarianceX[i] = t.CovarianceX
		}
		if on(trackCovarianceY) {
			b.CovarianceY[i] = t.CovarianceY
		}
		if on(trackChi2) {
			b.Chi2[i] = t.Chi2
		}
	}
}

func (s *Session) marshalEventInfo(ev *Event) {
	b, on := s.infoBuf, s.infoFields.on
	b.NumPlanes = int32(s.numPlanes)
	if on(infoTimeStamp) {
		b.TimeStamp = ev.TimeStamp
	}
	if on(infoFrameNumber) {
		b.FrameNumber = ev.FrameNumber
	}
	if on(infoTriggerOffset) {
		b.TriggerOffset = ev.TriggerOffset
	}
	if on(infoTriggerInfo) {
		b.TriggerInfo = ev.TriggerInfo
	}
	if on(infoInvalid) {
		b.Invalid = ev.Invalid
	}
}

// marshalClusters stores the track link as the event wide track index.
func (s *Session) marshalClusters(plane *Plane) {
	b, on := s.clusterBuf, s.clusterFields.on
	b.NumClusters = int32(plane.NumClusters())
	for i, idx := range plane.clusters {
		c := s.clusters.at(idx)
		if on(clusterPixX) {
			b.PixX[i] = c.PixX
		}
		if on(clusterPixY) {
			b.PixY[i] = c.PixY
		}
		if on(clusterPixErrX) {
			b.PixErrX[i] = c.PixErrX
		}
		if on(clusterPixErrY) {
			b.PixErrY[i] = c.PixErrY
		}
		if on(clusterPosX) {
			b.PosX[i] = c.PosX
		}
		if on(clusterPosY) {
			b.PosY[i] = c.PosY
		}
		if on(clusterPosZ) {
			b.PosZ[i] = c.PosZ
		}
		if on(clusterPosErrX) {
			b.PosErrX[i] = c.PosErrX
		}
		if on(clusterPosErrY) {
			b.PosErrY[i] = c.PosErrY
		}
		if on(clusterPosErrZ) {
			b.PosErrZ[i] = c.PosErrZ
		}
		if on(clusterInTrack) {
			b.InTrack[i] = c.track.stored()
		}
	}
}

// marshalHits stores the cluster link as the index of the cluster within
// its plane.
func (s *Session) marshalHits(hits []int) {
	b, on := s.hitBuf, s.hitFields.on
	b.NumHits = int32(len(hits))
	for i, idx := range hits {
		h := s.hits.at(idx)
		if on(hitPixX) {
			b.PixX[i] = h.PixX
		}
		if on(hitPixY) {
			b.PixY[i] = h.PixY
		}
		if on(hitPosX) {
			b.PosX[i] = h.PosX
		}
		if on(hitPosY) {
			b.PosY[i] = h.PosY
		}
		if on(hitPosZ) {
			b.PosZ[i] = h.PosZ
		}
		if on(hitValue) {
			b.Value[i] = h.Value
		}
		if on(hitTiming) {
			b.Timing[i] = h.Timing
		}
		if on(hitInCluster) {
			b.InCluster[i] = s.hitClusterLocal(h)
		}
	}
}

func (s *Session) hitClusterLocal(h *HitData) int32 {
	i, ok := h.cluster.Index()
	if !ok {
		return -1
	}
	return int32(s.clusters.at(i).local)
}

// recordAllocations reports pool growth since the last event.
func (s *Session) recordAllocations(ctx context.Context) {
	stats := s.PoolStats()
	s.metrics.RecordAllocations(ctx, "hit", stats.Hits.Allocated-s.reported.Hits.Allocated)
	s.metrics.RecordAllocations(ctx, "cluster", stats.Clusters.Allocated-s.reported.Clusters.Allocated)
	s.metrics.RecordAllocations(ctx, "track", stats.Tracks.Allocated-s.reported.Tracks.Allocated)
	s.reported = stats
}
