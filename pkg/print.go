package storage

import (
	"fmt"
	"io"
)

// Print writes a human readable dump of the event, plane by plane.
func (e *Event) Print(w io.Writer) {
	fmt.Fprintf(w, "\nEVENT:\n")
	fmt.Fprintf(w, "  Time stamp: %d\n", e.TimeStamp)
	fmt.Fprintf(w, "  Frame number: %d\n", e.FrameNumber)
	fmt.Fprintf(w, "  Trigger offset: %d\n", e.TriggerOffset)
	fmt.Fprintf(w, "  Trigger info: %d\n", e.TriggerInfo)
	fmt.Fprintf(w, "  Invalid: %t\n", e.Invalid)
	fmt.Fprintf(w, "  Num planes: %d\n", e.NumPlanes())
	fmt.Fprintf(w, "  Num tracks: %d\n", e.NumTracks())

	for _, t := range e.Tracks() {
		t.Print(w)
	}
	for _, p := range e.planes {
		p.Print(w)
	}
}

func (p *Plane) Print(w io.Writer) {
	fmt.Fprintf(w, "\nPLANE %d:\n", p.index)
	fmt.Fprintf(w, "  Num hits: %d\n", p.NumHits())
	fmt.Fprintf(w, "  Num clusters: %d\n", p.NumClusters())
	for _, name := range p.WaveformNames() {
		fmt.Fprintf(w, "  Waveform %s: %d samples\n", name, len(p.waveforms[name]))
	}
	for _, c := range p.Clusters() {
		c.Print(w)
	}
	for _, h := range p.Hits() {
		h.Print(w)
	}
}

func (c Cluster) Print(w io.Writer) {
	fmt.Fprintf(w, "  CLUSTER %d:\n", c.index)
	fmt.Fprintf(w, "    Pix: (%g, %g) +/- (%g, %g)\n", c.PixX, c.PixY, c.PixErrX, c.PixErrY)
	fmt.Fprintf(w, "    Pos: (%g, %g, %g) +/- (%g, %g, %g)\n", c.PosX, c.PosY, c.PosZ, c.PosErrX, c.PosErrY, c.PosErrZ)
	fmt.Fprintf(w, "    Num hits: %d\n", c.NumHits())
	if t, ok := c.track.Index(); ok {
		fmt.Fprintf(w, "    Track: %d\n", t)
	}
}

func (h Hit) Print(w io.Writer) {
	fmt.Fprintf(w, "  HIT %d:\n", h.index)
	fmt.Fprintf(w, "    Pix: (%d, %d)\n", h.PixX, h.PixY)
	fmt.Fprintf(w, "    Pos: (%g, %g, %g)\n", h.PosX, h.PosY, h.PosZ)
	fmt.Fprintf(w, "    Value: %g\n", h.Value)
	fmt.Fprintf(w, "    Timing: %g\n", h.Timing)
	if c, ok := h.cluster.Index(); ok {
		fmt.Fprintf(w, "    Cluster: %d\n", c)
	}
	if h.Masked {
		fmt.Fprintf(w, "    Masked\n")
	}
}

func (t Track) Print(w io.Writer) {
	fmt.Fprintf(w, "  TRACK %d:\n", t.index)
	fmt.Fprintf(w, "    Slope: (%g, %g) +/- (%g, %g)\n", t.SlopeX, t.SlopeY, t.SlopeErrX, t.SlopeErrY)
	fmt.Fprintf(w, "    Origin: (%g, %g) +/- (%g, %g)\n", t.OriginX, t.OriginY, t.OriginErrX, t.OriginErrY)
	fmt.Fprintf(w, "    Covariance: (%g, %g)\n", t.CovarianceX, t.CovarianceY)
	fmt.Fprintf(w, "    Chi2: %g\n", t.Chi2)
	fmt.Fprintf(w, "    Num clusters: %d\n", t.NumClusters())
}
