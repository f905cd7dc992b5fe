package storage

import (
	"github.com/next-exp/storage_go/pkg/columns"
)

// NOTE: the buffers are allocated once per storage and re-used for every
// event, so their sizes are a hard limit on the objects per event (per
// plane for hits and clusters).
const (
	MaxHits     = 10000
	MaxClusters = 10000
	MaxTracks   = 1000
)

const (
	hitPixX = iota
	hitPixY
	hitPosX
	hitPosY
	hitPosZ
	hitValue
	hitTiming
	hitInCluster
)

var hitFieldNames = []string{
	"hitPixX",
	"hitPixY",
	"hitPosX",
	"hitPosY",
	"hitPosZ",
	"hitValue",
	"hitTiming",
	"hitInCluster",
}

const (
	clusterPixX = iota
	clusterPixY
	clusterPixErrX
	clusterPixErrY
	clusterPosX
	clusterPosY
	clusterPosZ
	clusterPosErrX
	clusterPosErrY
	clusterPosErrZ
	clusterInTrack
)

var clusterFieldNames = []string{
	"clusterPixX",
	"clusterPixY",
	"clusterPixErrX",
	"clusterPixErrY",
	"clusterPosX",
	"clusterPosY",
	"clusterPosZ",
	"clusterPosErrX",
	"clusterPosErrY",
	"clusterPosErrZ",
	"clusterInTrack",
}

const (
	trackSlopeX = iota
	trackSlopeY
	trackSlopeErrX
	trackSlopeErrY
	trackOriginX
	trackOriginY
	trackOriginErrX
	trackOriginErrY
	trackCovarianceX
	trackCovarianceY
	trackChi2
)

var trackFieldNames = []string{
	"trackSlopeX",
	"trackSlopeY",
	"trackSlopeErrX",
	"trackSlopeErrY",
	"trackOriginX",
	"trackOriginY",
	"trackOriginErrX",
	"trackOriginErrY",
	"trackCovarianceX",
	"trackCovarianceY",
	"trackChi2",
}

const (
	infoTimeStamp = iota
	infoFrameNumber
	infoTriggerOffset
	infoTriggerInfo
	infoInvalid
)

var eventInfoFieldNames = []string{
	"timeStamp",
	"frameNumber",
	"triggerOffset",
	"triggerInfo",
	"invalid",
}

const (
	countHits     = "numHits"
	countClusters = "numClusters"
	countTracks   = "numTracks"
	// stored with tracks and event info so that files without plane trees
	// still report their planes
	countPlanes = "numPlanes"
)

type hitBuffers struct {
	NumHits   int32
	PixX      [MaxHits]int32
	PixY      [MaxHits]int32
	PosX      [MaxHits]float64
	PosY      [MaxHits]float64
	PosZ      [MaxHits]float64
	Value     [MaxHits]float64
	Timing    [MaxHits]float64
	InCluster [MaxHits]int32
}

func (b *hitBuffers) columns() []columns.Column {
	n := &b.NumHits
	return []columns.Column{
		{Name: countHits, Data: n},
		{Name: hitFieldNames[hitPixX], Data: b.PixX[:], Count: n},
		{Name: hitFieldNames[hitPixY], Data: b.PixY[:], Count: n},
		{Name: hitFieldNames[hitPosX], Data: b.PosX[:], Count: n},
		{Name: hitFieldNames[hitPosY], Data: b.PosY[:], Count: n},
		{Name: hitFieldNames[hitPosZ], Data: b.PosZ[:], Count: n},
		{Name: hitFieldNames[hitValue], Data: b.Value[:], Count: n},
		{Name: hitFieldNames[hitTiming], Data: b.Timing[:], Count: n},
		{Name: hitFieldNames[hitInCluster], Data: b.InCluster[:], Count: n},
	}
}

type clusterBuffers struct {
	NumClusters int32
	PixX        [MaxClusters]float64
	PixY        [MaxClusters]float64
	PixErrX     [MaxClusters]float64
	PixErrY     [MaxClusters]float64
	PosX        [MaxClusters]float64
	PosY        [MaxClusters]float64
	PosZ        [MaxClusters]float64
	PosErrX     [MaxClusters]float64
	PosErrY     [MaxClusters]float64
	PosErrZ     [MaxClusters]float64
	InTrack     [MaxClusters]int32
}

func (b *clusterBuffers) columns() []columns.Column {
	n := &b.NumClusters
	return []columns.Column{
		{Name: countClusters, Data: n},
		{Name: clusterFieldNames[clusterPixX], Data: b.PixX[:], Count: n},
		{Name: clusterFieldNames[clusterPixY], Data: b.PixY[:], Count: n},
		{Name: clusterFieldNames[clusterPixErrX], Data: b.PixErrX[:], Count: n},
		{Name: clusterFieldNames[clusterPixErrY], Data: b.PixErrY[:], Count: n},
		{Name: clusterFieldNames[clusterPosX], Data: b.PosX[:], Count: n},
		{Name: clusterFieldNames[clusterPosY], Data: b.PosY[:], Count: n},
		{Name: clusterFieldNames[clusterPosZ], Data: b.PosZ[:], Count: n},
		{Name: clusterFieldNames[clusterPosErrX], Data: b.PosErrX[:], Count: n},
		{Name: clusterFieldNames[clusterPosErrY], Data: b.PosErrY[:], Count: n},
		{Name: clusterFieldNames[clusterPosErrZ], Data: b.PosErrZ[:], Count: n},
		{Name: clusterFieldNames[clusterInTrack], Data: b.InTrack[:], Count: n},
	}
}

type trackBuffers struct {
	NumPlanes   int32
	NumTracks   int32
	SlopeX      [MaxTracks]float64
	SlopeY      [MaxTracks]float64
	SlopeErrX   [MaxTracks]float64
	SlopeErrY   [MaxTracks]float64
	OriginX     [MaxTracks]float64
	OriginY     [MaxTracks]float64
	OriginErrX  [MaxTracks]float64
	OriginErrY  [MaxTracks]float64
	CovarianceX [MaxTracks]float64
	CovarianceY [MaxTracks]float64
	Chi2        [MaxTracks]float64
}

func (b *trackBuffers) columns() []columns.Column {
	n := &b.NumTracks
	return []columns.Column{
		{Name: countPlanes, Data: &b.NumPlanes},
		{Name: countTracks, Data: n},
		{Name: trackFieldNames[trackSlopeX], Data: b.SlopeX[:], Count: n},
		{Name: trackFieldNames[trackSlopeY], Data: b.SlopeY[:], Count: n},
		{Name: trackFieldNames[trackSlopeErrX], Data: b.SlopeErrX[:], Count: n},
		{Name: trackFieldNames[trackSlopeErrY], Data: b.SlopeErrY[:], Count: n},
		{Name: trackFieldNames[trackOriginX], Data: b.OriginX[:], Count: n},
		{Name: trackFieldNames[trackOriginY], Data: b.OriginY[:], Count: n},
		{Name: trackFieldNames[trackOriginErrX], Data: b.OriginErrX[:], Count: n},
		{Name: trackFieldNames[trackOriginErrY], Data: b.OriginErrY[:], Count: n},
		{Name: trackFieldNames[trackCovarianceX], Data: b.CovarianceX[:], Count: n},
		{Name: trackFieldNames[trackCovarianceY], Data: b.CovarianceY[:], Count: n},
		{Name: trackFieldNames[trackChi2], Data: b.Chi2[:], Count: n},
	}
}

type eventInfoBuffers struct {
	NumPlanes     int32
	TimeStamp     uint64
	FrameNumber   uint64
	TriggerOffset int32
	TriggerInfo   int32
	Invalid       bool
}

func (b *eventInfoBuffers) columns() []columns.Column {
	return []columns.Column{
		{Name: countPlanes, Data: &b.NumPlanes},
		{Name: eventInfoFieldNames[infoTimeStamp], Data: &b.TimeStamp},
		{Name: eventInfoFieldNames[infoFrameNumber], Data: &b.FrameNumber},
		{Name: eventInfoFieldNames[infoTriggerOffset], Data: &b.TriggerOffset},
		{Name: eventInfoFieldNames[infoTriggerInfo], Data: &b.TriggerInfo},
		{Name: eventInfoFieldNames[infoInvalid], Data: &b.Invalid},
	}
}

// schema tracks which fields of a section are enabled. Count fields are
// not part of it: they can never be disabled.
type schema struct {
	section Section
	names   []string
	enabled []bool
}

func newSchema(section Section, names []string) *schema {
	enabled := make([]bool, len(names))
	for i := range enabled {
		enabled[i] = true
	}
	return &schema{section: section, names: names, enabled: enabled}
}

func (s *schema) on(field int) bool {
	return s.enabled[field]
}

func (s *schema) disable(name string) error {
	for i, n := range s.names {
		if n == name {
			s.enabled[i] = false
			return nil
		}
	}
	switch name {
	case countHits, countClusters, countTracks, countPlanes:
		return &FieldError{Section: s.section, Name: name, Reason: "count fields cannot be disabled"}
	}
	return &FieldError{Section: s.section, Name: name, Reason: "unknown field"}
}

func (s *schema) disabled() []string {
	var out []string
	for i, n := range s.names {
		if !s.enabled[i] {
			out = append(out, n)
		}
	}
	return out
}
