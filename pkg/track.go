package storage

// TrackData is a trajectory through the planes. Clusters point to their
// track; the track keeps the reverse relation for navigation.
type TrackData struct {
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

	index    int
	clusters []int
}

func (t *TrackData) reset() {
	clusters := t.clusters[:0]
	*t = TrackData{}
	t.clusters = clusters
}

func (t *TrackData) link(c *ClusterData) {
	c.track = linkTo(t.index)
	t.clusters = append(t.clusters, c.index)
}

// Track is a handle on a track of the current event.
type Track struct {
	*TrackData
	ev  *Event
	gen uint64
}

func (t Track) Index() int {
	return t.index
}

func (t Track) NumClusters() int {
	return len(t.clusters)
}

func (t Track) Cluster(n int) (Cluster, error) {
	if err := t.Valid(); err != nil {
		return Cluster{}, err
	}
	if n < 0 || n >= len(t.clusters) {
		return Cluster{}, &RangeError{What: "track cluster", Index: n, Len: len(t.clusters)}
	}
	return t.ev.clusterAt(t.clusters[n]), nil
}

func (t Track) Valid() error {
	return t.ev.current(t.gen)
}
