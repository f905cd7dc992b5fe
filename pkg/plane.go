package storage

import (
	"fmt"
	"sort"
)

// Plane collects the hits and clusters of one sensor plane for the current
// event. The objects are owned by the storage; the plane only lists them.
type Plane struct {
	index     int
	hits      []int
	clusters  []int
	waveforms map[string][]float32
	ev        *Event
}

func newPlane(index int, ev *Event) *Plane {
	return &Plane{index: index, ev: ev, waveforms: make(map[string][]float32)}
}

// clear empties the plane so it can be re-used.
func (p *Plane) clear() {
	p.hits = p.hits[:0]
	p.clusters = p.clusters[:0]
	clear(p.waveforms)
}

func (p *Plane) Index() int {
	return p.index
}

func (p *Plane) NumHits() int {
	return len(p.hits)
}

func (p *Plane) NumClusters() int {
	return len(p.clusters)
}

func (p *Plane) Hit(n int) (Hit, error) {
	if n < 0 || n >= len(p.hits) {
		return Hit{}, &RangeError{What: fmt.Sprintf("plane %d hit", p.index), Index: n, Len: len(p.hits)}
	}
	return p.ev.hitAt(p.hits[n]), nil
}

func (p *Plane) Cluster(n int) (Cluster, error) {
	if n < 0 || n >= len(p.clusters) {
		return Cluster{}, &RangeError{What: fmt.Sprintf("plane %d cluster", p.index), Index: n, Len: len(p.clusters)}
	}
	return p.ev.clusterAt(p.clusters[n]), nil
}

// Hits returns fresh handles on the plane's hits.
func (p *Plane) Hits() []Hit {
	out := make([]Hit, len(p.hits))
	for i, idx := range p.hits {
		out[i] = p.ev.hitAt(idx)
	}
	return out
}

func (p *Plane) Clusters() []Cluster {
	out := make([]Cluster, len(p.clusters))
	for i, idx := range p.clusters {
		out[i] = p.ev.clusterAt(idx)
	}
	return out
}

// AddWaveform attaches a waveform owned by the caller. It is dropped when
// the next event starts and is not persisted.
func (p *Plane) AddWaveform(name string, wf []float32) {
	p.waveforms[name] = wf
}

func (p *Plane) Waveform(name string) ([]float32, error) {
	wf, ok := p.waveforms[name]
	if !ok {
		return nil, fmt.Errorf("%w: plane %d %q", ErrNoWaveform, p.index, name)
	}
	return wf, nil
}

func (p *Plane) WaveformNames() []string {
	names := make([]string, 0, len(p.waveforms))
	for name := range p.waveforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
