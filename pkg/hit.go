package storage

// HitData is one pixel activation on one plane. Records are owned by the
// storage pools and reached through Hit handles.
type HitData struct {
	PixX   int32
	PixY   int32
	PosX   float64
	PosY   float64
	PosZ   float64
	Value  float64
	Timing float64
	// Masked is set on read when the pixel is in the plane's noise mask
	// and the mask mode is Passive. It is never written.
	Masked bool

	cluster Link
	plane   int
	index   int
}

func (h *HitData) reset() {
	*h = HitData{}
}

// Hit is a handle on a hit of the current event. The fields of the record
// are reached through the embedded HitData. A handle remembers the event
// generation it was obtained in, and relation lookups through a handle
// from an earlier generation fail with ErrStaleHandle even once the record
// has been reused.
type Hit struct {
	*HitData
	ev  *Event
	gen uint64
}

func (h Hit) Plane() int {
	return h.plane
}

// Index is the position of the hit in the event's flat hit list.
func (h Hit) Index() int {
	return h.index
}

func (h Hit) ClusterLink() Link {
	return h.cluster
}

func (h Hit) InCluster() bool {
	return h.cluster.valid
}

// Cluster returns the cluster owning the hit. ok is false when the hit is
// not clustered.
func (h Hit) Cluster() (c Cluster, ok bool, err error) {
	if err := h.Valid(); err != nil {
		return Cluster{}, false, err
	}
	i, ok := h.cluster.Index()
	if !ok {
		return Cluster{}, false, nil
	}
	c, err = h.ev.Cluster(i)
	return c, err == nil, err
}

// Valid reports ErrStaleHandle once the event the handle came from has
// been reset.
func (h Hit) Valid() error {
	return h.ev.current(h.gen)
}
