package storage

import "fmt"

// ClusterData groups adjacent hits of one plane. It refers to its hits and
// track by index; it owns neither.
type ClusterData struct {
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

	track Link
	plane int
	index int
	// position within the plane, assigned when planes are relinked
	local int
	hits  []int
}

func (c *ClusterData) reset() {
	hits := c.hits[:0]
	*c = ClusterData{}
	c.hits = hits
}

func (c *ClusterData) link(h *HitData) {
	h.cluster = linkTo(c.index)
	c.hits = append(c.hits, h.index)
}

// Cluster is a handle on a cluster of the current event.
type Cluster struct {
	*ClusterData
	ev  *Event
	gen uint64
}

func (c Cluster) Plane() int {
	return c.plane
}

// Index is the position of the cluster in the event's flat cluster list.
func (c Cluster) Index() int {
	return c.index
}

func (c Cluster) NumHits() int {
	return len(c.hits)
}

func (c Cluster) Hit(n int) (Hit, error) {
	if err := c.Valid(); err != nil {
		return Hit{}, err
	}
	if n < 0 || n >= len(c.hits) {
		return Hit{}, &RangeError{What: "cluster hit", Index: n, Len: len(c.hits)}
	}
	return c.ev.hitAt(c.hits[n]), nil
}

func (c Cluster) Hits() []Hit {
	if c.Valid() != nil {
		return nil
	}
	out := make([]Hit, len(c.hits))
	for i, idx := range c.hits {
		out[i] = c.ev.hitAt(idx)
	}
	return out
}

// AddHit makes the hit a constituent of the cluster. The hit must be on
// the same plane and not already clustered.
func (c Cluster) AddHit(h Hit) error {
	if err := c.Valid(); err != nil {
		return err
	}
	if err := h.Valid(); err != nil {
		return err
	}
	if h.ev != c.ev {
		return ErrForeignEvent
	}
	if h.plane != c.plane {
		return fmt.Errorf("%w: hit on plane %d added to cluster on plane %d", ErrInvalidReference, h.plane, c.plane)
	}
	if h.cluster.valid {
		return fmt.Errorf("%w: hit %d already in cluster %d", ErrInvalidReference, h.index, h.cluster.index)
	}
	c.link(h.HitData)
	return nil
}

func (c Cluster) TrackLink() Link {
	return c.track
}

func (c Cluster) InTrack() bool {
	return c.track.valid
}

// Track returns the track the cluster belongs to. ok is false when the
// cluster is not on a track.
func (c Cluster) Track() (t Track, ok bool, err error) {
	if err := c.Valid(); err != nil {
		return Track{}, false, err
	}
	i, ok := c.track.Index()
	if !ok {
		return Track{}, false, nil
	}
	t, err = c.ev.Track(i)
	return t, err == nil, err
}

// SetTrack assigns the cluster to a track.
func (c Cluster) SetTrack(t Track) error {
	if err := c.Valid(); err != nil {
		return err
	}
	if err := t.Valid(); err != nil {
		return err
	}
	if t.ev != c.ev {
		return ErrForeignEvent
	}
	if c.track.valid {
		return fmt.Errorf("%w: cluster %d already in track %d", ErrInvalidReference, c.index, c.track.index)
	}
	t.link(c.ClusterData)
	return nil
}

func (c Cluster) Valid() error {
	return c.ev.current(c.gen)
}
