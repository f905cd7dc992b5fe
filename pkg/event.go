package storage

import (
	"fmt"

	"github.com/next-exp/storage_go/pkg/columns"
)

// Event is the single per-storage event. It is cleared and refilled in
// place by every NewEvent or ReadEvent, which invalidates everything
// obtained from it before.
type Event struct {
	TimeStamp     uint64
	FrameNumber   uint64
	TriggerOffset int32
	TriggerInfo   int32
	Invalid       bool

	planes []*Plane
	io     *Session
	gen    uint64
}

func newEvent(io *Session, numPlanes int) *Event {
	ev := &Event{io: io}
	ev.planes = make([]*Plane, numPlanes)
	for i := range ev.planes {
		ev.planes[i] = newPlane(i, ev)
	}
	return ev
}

// clear starts a new generation: metadata is zeroed, the pools are
// rewound and the planes emptied.
func (e *Event) clear() {
	e.TimeStamp = 0
	e.FrameNumber = 0
	e.TriggerOffset = 0
	e.TriggerInfo = 0
	e.Invalid = false
	e.gen++
	e.io.hits.release()
	e.io.clusters.release()
	e.io.tracks.release()
	for _, p := range e.planes {
		p.clear()
	}
}

// relink rebuilds the plane views from the flat hit and cluster lists,
// keeping their order.
func (e *Event) relink() {
	for _, p := range e.planes {
		p.hits = p.hits[:0]
		p.clusters = p.clusters[:0]
	}
	for i, c := range e.io.clusters.inUse() {
		p := e.planes[c.plane]
		c.local = len(p.clusters)
		p.clusters = append(p.clusters, i)
	}
	for i, h := range e.io.hits.inUse() {
		p := e.planes[h.plane]
		p.hits = append(p.hits, i)
	}
}

// Generation changes every time the event is reset.
func (e *Event) Generation() uint64 {
	return e.gen
}

func (e *Event) NumPlanes() int {
	return len(e.planes)
}

func (e *Event) Plane(n int) (*Plane, error) {
	if n < 0 || n >= len(e.planes) {
		return nil, &RangeError{What: "plane", Index: n, Len: len(e.planes)}
	}
	return e.planes[n], nil
}

func (e *Event) Planes() []*Plane {
	return e.planes
}

func (e *Event) NumHits() int {
	return e.io.hits.live
}

func (e *Event) NumClusters() int {
	return e.io.clusters.live
}

func (e *Event) NumTracks() int {
	return e.io.tracks.live
}

func (e *Event) Hit(n int) (Hit, error) {
	if n < 0 || n >= e.io.hits.live {
		return Hit{}, &RangeError{What: "hit", Index: n, Len: e.io.hits.live}
	}
	return e.hitAt(n), nil
}

func (e *Event) Cluster(n int) (Cluster, error) {
	if n < 0 || n >= e.io.clusters.live {
		return Cluster{}, &RangeError{What: "cluster", Index: n, Len: e.io.clusters.live}
	}
	return e.clusterAt(n), nil
}

func (e *Event) Track(n int) (Track, error) {
	if n < 0 || n >= e.io.tracks.live {
		return Track{}, &RangeError{What: "track", Index: n, Len: e.io.tracks.live}
	}
	return e.trackAt(n), nil
}

func (e *Event) Hits() []Hit {
	out := make([]Hit, e.io.hits.live)
	for i := range out {
		out[i] = e.hitAt(i)
	}
	return out
}

func (e *Event) Clusters() []Cluster {
	out := make([]Cluster, e.io.clusters.live)
	for i := range out {
		out[i] = e.clusterAt(i)
	}
	return out
}

func (e *Event) Tracks() []Track {
	out := make([]Track, e.io.tracks.live)
	for i := range out {
		out[i] = e.trackAt(i)
	}
	return out
}

// NewHit adds a hit on the given plane. Write mode only.
func (e *Event) NewHit(plane int) (Hit, error) {
	if err := e.canPopulate(plane); err != nil {
		return Hit{}, err
	}
	h := e.acquireHit(plane)
	p := e.planes[plane]
	p.hits = append(p.hits, h.index)
	return Hit{HitData: h, ev: e, gen: e.gen}, nil
}

// NewCluster adds a cluster on the given plane. Write mode only.
func (e *Event) NewCluster(plane int) (Cluster, error) {
	if err := e.canPopulate(plane); err != nil {
		return Cluster{}, err
	}
	c := e.acquireCluster(plane)
	p := e.planes[plane]
	c.local = len(p.clusters)
	p.clusters = append(p.clusters, c.index)
	return Cluster{ClusterData: c, ev: e, gen: e.gen}, nil
}

// NewTrack adds a track. Write mode only.
func (e *Event) NewTrack() (Track, error) {
	if err := e.canWrite(); err != nil {
		return Track{}, err
	}
	return Track{TrackData: e.acquireTrack(), ev: e, gen: e.gen}, nil
}

func (e *Event) canWrite() error {
	if e.io.mode != columns.Write {
		return ErrWrongMode
	}
	if e.io.closed {
		return ErrClosed
	}
	return nil
}

func (e *Event) canPopulate(plane int) error {
	if err := e.canWrite(); err != nil {
		return err
	}
	if plane < 0 || plane >= len(e.planes) {
		return &RangeError{What: "plane", Index: plane, Len: len(e.planes)}
	}
	return nil
}

func (e *Event) acquireHit(plane int) *HitData {
	h, idx := e.io.hits.acquire()
	h.index = idx
	h.plane = plane
	return h
}

func (e *Event) acquireCluster(plane int) *ClusterData {
	c, idx := e.io.clusters.acquire()
	c.index = idx
	c.plane = plane
	return c
}

func (e *Event) acquireTrack() *TrackData {
	t, idx := e.io.tracks.acquire()
	t.index = idx
	return t
}

func (e *Event) hitAt(i int) Hit {
	return Hit{HitData: e.io.hits.at(i), ev: e, gen: e.gen}
}

func (e *Event) clusterAt(i int) Cluster {
	return Cluster{ClusterData: e.io.clusters.at(i), ev: e, gen: e.gen}
}

func (e *Event) trackAt(i int) Track {
	return Track{TrackData: e.io.tracks.at(i), ev: e, gen: e.gen}
}

// current checks a handle generation against the event.
func (e *Event) current(gen uint64) error {
	if e == nil || gen != e.gen {
		return ErrStaleHandle
	}
	return nil
}

func (e *Event) String() string {
	return fmt.Sprintf("event(time=%d frame=%d planes=%d hits=%d clusters=%d tracks=%d)",
		e.TimeStamp, e.FrameNumber, len(e.planes), e.NumHits(), e.NumClusters(), e.NumTracks())
}
