package storage

import (
	"context"
	"fmt"

	"github.com/next-exp/storage_go/pkg/columns"
)

// ReadEvent loads row n into the event and returns it. Reading the same row
// again gives the same content. On failure the event is left empty.
func (s *Session) ReadEvent(n int) (*Event, error) {
	if s.mode != columns.Read {
		return nil, ErrWrongMode
	}
	if err := s.usable(); err != nil {
		return nil, err
	}
	if err := s.start(); err != nil {
		return nil, err
	}
	if n < 0 || n >= s.numEvents {
		return nil, &RangeError{What: "event", Index: n, Len: s.numEvents}
	}

	ev := s.event
	ev.clear()
	if err := s.load(ev, n); err != nil {
		ev.clear()
		return nil, err
	}
	ev.relink()

	ctx := context.Background()
	s.metrics.RecordEvent(ctx, columns.Read.String(), ev.NumHits(), ev.NumClusters(), ev.NumTracks())
	s.recordAllocations(ctx)
	return ev, nil
}

func (s *Session) read(t columns.Tree, n int) error {
	if err := t.Read(n); err != nil {
		return s.fail(&IOError{Op: fmt.Sprintf("read row %d of %s", n, t.Name()), Path: s.path, Err: err})
	}
	return nil
}

// corrupt reports row content that cannot be turned into an event.
func (s *Session) corrupt(t columns.Tree, n int, err error) error {
	return &IOError{Op: fmt.Sprintf("decode row %d of %s", n, t.Name()), Path: s.path, Err: err}
}

func checkCount(kind string, plane int, count int32, capacity int) error {
	if count < 0 || int(count) > capacity {
		return &CapacityError{Kind: kind, Plane: plane, Count: int(count), Capacity: capacity}
	}
	return nil
}

func (s *Session) load(ev *Event, n int) error {
	if t := s.tracksTree; t != nil {
		if err := s.read(t, n); err != nil {
			return err
		}
		if err := checkCount("tracks", -1, s.trackBuf.NumTracks, MaxTracks); err != nil {
			return s.corrupt(t, n, err)
		}
		s.unmarshalTracks(ev)
	}
	if t := s.eventTree; t != nil {
		if err := s.read(t, n); err != nil {
			return err
		}
		s.unmarshalEventInfo(ev)
	}

	for p := 0; p < s.numPlanes; p++ {
		// event index of the first cluster of this plane
		base := s.clusters.live
		numClusters := 0
		if t := s.clustersTrees[p]; t != nil {
			if err := s.read(t, n); err != nil {
				return err
			}
			if err := checkCount("clusters", p, s.clusterBuf.NumClusters, MaxClusters); err != nil {
				return s.corrupt(t, n, err)
			}
			if err := s.unmarshalClusters(ev, p); err != nil {
				return s.corrupt(t, n, err)
			}
			numClusters = int(s.clusterBuf.NumClusters)
		}
		if t := s.hitsTrees[p]; t != nil {
			if err := s.read(t, n); err != nil {
				return err
			}
			if err := checkCount("hits", p, s.hitBuf.NumHits, MaxHits); err != nil {
				return s.corrupt(t, n, err)
			}
			if err := s.unmarshalHits(ev, p, base, numClusters); err != nil {
				return s.corrupt(t, n, err)
			}
		}
	}
	return nil
}

func (s *Session) unmarshalTracks(ev *Event) {
	b, on := s.trackBuf, s.trackFields.on
	for i := 0; i < int(b.NumTracks); i++ {
		t := ev.acquireTrack()
		if on(trackSlopeX) {
			t.SlopeX = b.SlopeX[i]
		}
		if on(trackSlopeY) {
			t.SlopeY = b.SlopeY[i]
		}
		if on(trackSlopeErrX) {
			t.SlopeErrX = b.SlopeErrX[i]
		}
		if on(trackSlopeErrY) {
			t.SlopeErrY = b.SlopeErrY[i]
		}
		if on(trackOriginX) {
			t.OriginX = b.OriginX[i]
		}
		if on(trackOriginY) {
			t.OriginY = b.OriginY[i]
		}
		if on(trackOriginErrX) {
			t.OriginErrX = b.OriginErrX[i]
		}
		if on(trackOriginErrY) {
			t.OriginErrY = b.OriginErrY[i]
		}
		if on(trackCovarianceX) {
			t.CovarianceX = b.CovarianceX[i]
		}
		if on(trackCovarianceY) {
			t.CovarianceY = b.CovarianceY[i]
		}
		if on(trackChi2) {
			t.Chi2 = b.Chi2[i]
		}
	}
}

func (s *Session) unmarshalEventInfo(ev *Event) {
	b, on := s.infoBuf, s.infoFields.on
	if on(infoTimeStamp) {
		ev.TimeStamp = b.TimeStamp
	}
	if on(infoFrameNumber) {
		ev.FrameNumber = b.FrameNumber
	}
	if on(infoTriggerOffset) {
		ev.TriggerOffset = b.TriggerOffset
	}
	if on(infoTriggerInfo) {
		ev.TriggerInfo = b.TriggerInfo
	}
	if on(infoInvalid) {
		ev.Invalid = b.Invalid
	}
}

// unmarshalClusters links each cluster to its track when tracks are
// loaded. Otherwise the link is dropped.
func (s *Session) unmarshalClusters(ev *Event, plane int) error {
	b, on := s.clusterBuf, s.clusterFields.on
	linkTracks := on(clusterInTrack) && s.tracksTree != nil
	for i := 0; i < int(b.NumClusters); i++ {
		c := ev.acquireCluster(plane)
		if on(clusterPixX) {
			c.PixX = b.PixX[i]
		}
		if on(clusterPixY) {
			c.PixY = b.PixY[i]
		}
		if on(clusterPixErrX) {
			c.PixErrX = b.PixErrX[i]
		}
		if on(clusterPixErrY) {
			c.PixErrY = b.PixErrY[i]
		}
		if on(clusterPosX) {
			c.PosX = b.PosX[i]
		}
		if on(clusterPosY) {
			c.PosY = b.PosY[i]
		}
		if on(clusterPosZ) {
			c.PosZ = b.PosZ[i]
		}
		if on(clusterPosErrX) {
			c.PosErrX = b.PosErrX[i]
		}
		if on(clusterPosErrY) {
			c.PosErrY = b.PosErrY[i]
		}
		if on(clusterPosErrZ) {
			c.PosErrZ = b.PosErrZ[i]
		}
		if !linkTracks {
			continue
		}
		link := linkFromStored(b.InTrack[i])
		t, ok := link.Index()
		if !ok {
			continue
		}
		if t >= s.tracks.live {
			return fmt.Errorf("%w: cluster %d on plane %d points to track %d of %d",
				ErrInvalidReference, i, plane, t, s.tracks.live)
		}
		s.tracks.at(t).link(c)
	}
	return nil
}

// unmarshalHits applies the noise mask before acquiring: removed hits
// never reach the event. base is the event index of the plane's first
// cluster.
func (s *Session) unmarshalHits(ev *Event, plane int, base int, numClusters int) error {
	b, on := s.hitBuf, s.hitFields.on
	linkClusters := on(hitInCluster) && s.clustersTrees[plane] != nil
	flagged := 0
	for i := 0; i < int(b.NumHits); i++ {
		var pixX, pixY int32
		if on(hitPixX) {
			pixX = b.PixX[i]
		}
		if on(hitPixY) {
			pixY = b.PixY[i]
		}
		masked := s.masked(plane, pixX, pixY)
		if masked {
			flagged++
			if s.maskMode == Remove {
				continue
			}
		}

		h := ev.acquireHit(plane)
		h.PixX = pixX
		h.PixY = pixY
		h.Masked = masked
		if on(hitPosX) {
			h.PosX = b.PosX[i]
		}
		if on(hitPosY) {
			h.PosY = b.PosY[i]
		}
		if on(hitPosZ) {
			h.PosZ = b.PosZ[i]
		}
		if on(hitValue) {
			h.Value = b.Value[i]
		}
		if on(hitTiming) {
			h.Timing = b.Timing[i]
		}
		if !linkClusters {
			continue
		}
		link := linkFromStored(b.InCluster[i])
		c, ok := link.Index()
		if !ok {
			continue
		}
		if c >= numClusters {
			return fmt.Errorf("%w: hit %d on plane %d points to cluster %d of %d",
				ErrInvalidReference, i, plane, c, numClusters)
		}
		s.clusters.at(base + c).link(h)
	}
	s.metrics.RecordMaskedHits(context.Background(), plane, s.maskMode == Remove, flagged)
	return nil
}
