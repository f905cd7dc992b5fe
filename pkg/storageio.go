package storage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/next-exp/storage_go/pkg/columns"
)

// Session owns one open file: the column store and its trees, the fixed
// buffers, the object pools, the noise masks and the single Event.
// A Session is not safe for concurrent use.
type Session struct {
	id        string
	path      string
	mode      columns.Mode
	sections  Section
	maskMode  MaskMode
	numPlanes int
	numEvents int
	planeMask []bool
	masks     []*NoiseMask

	store         columns.Store
	hitsTrees     []columns.Tree
	clustersTrees []columns.Tree
	tracksTree    columns.Tree
	eventTree     columns.Tree

	hitBuf     *hitBuffers
	clusterBuf *clusterBuffers
	trackBuf   *trackBuffers
	infoBuf    *eventInfoBuffers

	hitFields     *schema
	clusterFields *schema
	trackFields   *schema
	infoFields    *schema

	hits     pool[HitData, *HitData]
	clusters pool[ClusterData, *ClusterData]
	tracks   pool[TrackData, *TrackData]
	event    *Event
	// per plane hit slots kept by the last write
	kept [][]int

	started bool
	closed  bool
	// first store failure; every later call returns it
	err      error
	metrics  MetricsRecorder
	reported PoolStats
}

type options struct {
	backend string
	metrics MetricsRecorder
}

type Option func(*options)

// WithBackend selects the column store driver instead of guessing it from
// the file extension.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

func WithMetrics(m MetricsRecorder) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func planeTreeName(plane int, kind string) string {
	return fmt.Sprintf("Plane%d/%s", plane, kind)
}

const (
	tracksTreeName = "Tracks"
	eventTreeName  = "Event"
)

func newSession(path string, mode columns.Mode, sections Section, opts []Option) (*Session, error) {
	o := options{metrics: NoopMetrics{}}
	for _, opt := range opts {
		opt(&o)
	}
	store, err := columns.Open(o.backend, path, mode)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	s := &Session{
		id:            uuid.NewString(),
		path:          path,
		mode:          mode,
		sections:      sections,
		store:         store,
		hitFields:     newSchema(SectionHits, hitFieldNames),
		clusterFields: newSchema(SectionClusters, clusterFieldNames),
		trackFields:   newSchema(SectionTracks, trackFieldNames),
		infoFields:    newSchema(SectionEventInfo, eventInfoFieldNames),
		metrics:       o.metrics,
	}
	return s, nil
}

// OpenForWrite creates (or truncates) path and declares the trees of the
// selected sections for numPlanes planes.
func OpenForWrite(path string, sections Section, numPlanes int, opts ...Option) (*Session, error) {
	if numPlanes < 0 {
		return nil, fmt.Errorf("%w: negative number of planes %d", ErrConfiguration, numPlanes)
	}
	s, err := newSession(path, columns.Write, sections, opts)
	if err != nil {
		return nil, err
	}
	s.numPlanes = numPlanes
	if err := s.createTrees(); err != nil {
		s.store.Close()
		return nil, err
	}
	s.event = newEvent(s, numPlanes)
	logger.Info(fmt.Sprintf("Session %s: writing %s with %d planes, sections %v", s.id, path, numPlanes, sections), "storage")
	return s, nil
}

// OpenForRead opens an existing file. A true entry in planeMask masks that
// plane out: its trees are never opened and its Plane stays empty.
func OpenForRead(path string, sections Section, planeMask []bool, opts ...Option) (*Session, error) {
	s, err := newSession(path, columns.Read, sections, opts)
	if err != nil {
		return nil, err
	}
	s.planeMask = append([]bool(nil), planeMask...)
	if err := s.openTrees(); err != nil {
		s.closeTrees()
		s.store.Close()
		return nil, err
	}
	s.event = newEvent(s, s.numPlanes)
	logger.Info(fmt.Sprintf("Session %s: reading %s, %d planes, %d events, sections %v",
		s.id, path, s.numPlanes, s.numEvents, sections), "storage")
	return s, nil
}

func (s *Session) createTrees() error {
	create := func(name string) (columns.Tree, error) {
		t, err := s.store.CreateTree(name)
		if err != nil {
			return nil, &IOError{Op: "create tree " + name, Path: s.path, Err: err}
		}
		return t, nil
	}

	var err error
	s.hitsTrees = make([]columns.Tree, s.numPlanes)
	s.clustersTrees = make([]columns.Tree, s.numPlanes)
	for p := 0; p < s.numPlanes; p++ {
		if s.sections.Has(SectionHits) {
			if s.hitsTrees[p], err = create(planeTreeName(p, "Hits")); err != nil {
				return err
			}
		}
		if s.sections.Has(SectionClusters) {
			if s.clustersTrees[p], err = create(planeTreeName(p, "Clusters")); err != nil {
				return err
			}
		}
	}
	if s.sections.Has(SectionTracks) {
		if s.tracksTree, err = create(tracksTreeName); err != nil {
			return err
		}
	}
	if s.sections.Has(SectionEventInfo) {
		if s.eventTree, err = create(eventTreeName); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) planeMasked(p int) bool {
	return p < len(s.planeMask) && s.planeMask[p]
}

func (s *Session) openTrees() error {
	for s.store.HasTree(planeTreeName(s.numPlanes, "Hits")) || s.store.HasTree(planeTreeName(s.numPlanes, "Clusters")) {
		s.numPlanes++
	}
	stored, err := s.storedPlanes()
	if err != nil {
		return err
	}
	s.numPlanes = max(s.numPlanes, stored)

	open := func(name string) (columns.Tree, error) {
		if !s.store.HasTree(name) {
			logger.Info(fmt.Sprintf("Tree %s not in %s, reading it as empty", name, s.path), "storage")
			return nil, nil
		}
		t, err := s.store.OpenTree(name)
		if err != nil {
			return nil, &IOError{Op: "open tree " + name, Path: s.path, Err: err}
		}
		return t, nil
	}

	s.hitsTrees = make([]columns.Tree, s.numPlanes)
	s.clustersTrees = make([]columns.Tree, s.numPlanes)
	for p := 0; p < s.numPlanes; p++ {
		if s.planeMasked(p) {
			continue
		}
		if s.sections.Has(SectionHits) {
			if s.hitsTrees[p], err = open(planeTreeName(p, "Hits")); err != nil {
				return err
			}
		}
		if s.sections.Has(SectionClusters) {
			if s.clustersTrees[p], err = open(planeTreeName(p, "Clusters")); err != nil {
				return err
			}
		}
	}
	if s.sections.Has(SectionTracks) {
		if s.tracksTree, err = open(tracksTreeName); err != nil {
			return err
		}
	}
	if s.sections.Has(SectionEventInfo) {
		if s.eventTree, err = open(eventTreeName); err != nil {
			return err
		}
	}

	s.numEvents = -1
	for _, t := range s.trees() {
		n := t.NumRows()
		if s.numEvents >= 0 && n != s.numEvents {
			return &IOError{Op: "count rows", Path: s.path,
				Err: fmt.Errorf("tree %s has %d rows, expected %d", t.Name(), n, s.numEvents)}
		}
		s.numEvents = n
	}
	if s.numEvents < 0 {
		s.numEvents, err = s.countUnselectedRows()
	}
	return err
}

// storedPlanes reads the plane count recorded with the first event. Files
// written before the count existed report zero.
func (s *Session) storedPlanes() (int, error) {
	for _, name := range []string{eventTreeName, tracksTreeName} {
		if !s.store.HasTree(name) {
			continue
		}
		t, err := s.store.OpenTree(name)
		if err != nil {
			return 0, &IOError{Op: "open tree " + name, Path: s.path, Err: err}
		}
		var n int32
		err = t.Bind(columns.Column{Name: countPlanes, Data: &n})
		if err == nil && t.NumRows() > 0 {
			err = t.Read(0)
		}
		if cerr := t.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return 0, &IOError{Op: "read plane count from " + name, Path: s.path, Err: err}
		}
		if n > 0 {
			return int(n), nil
		}
	}
	return 0, nil
}

// countUnselectedRows gets the number of events from any tree in the file
// when no selected tree is present.
func (s *Session) countUnselectedRows() (int, error) {
	candidates := []string{eventTreeName, tracksTreeName}
	for p := 0; p < s.numPlanes; p++ {
		candidates = append(candidates, planeTreeName(p, "Hits"), planeTreeName(p, "Clusters"))
	}
	for _, name := range candidates {
		if !s.store.HasTree(name) {
			continue
		}
		t, err := s.store.OpenTree(name)
		if err != nil {
			return 0, &IOError{Op: "open tree " + name, Path: s.path, Err: err}
		}
		n := t.NumRows()
		if err := t.Close(); err != nil {
			return 0, &IOError{Op: "close tree " + name, Path: s.path, Err: err}
		}
		return n, nil
	}
	return 0, nil
}

// trees lists every tree the session holds.
func (s *Session) trees() []columns.Tree {
	var out []columns.Tree
	for p := range s.hitsTrees {
		if s.hitsTrees[p] != nil {
			out = append(out, s.hitsTrees[p])
		}
		if s.clustersTrees[p] != nil {
			out = append(out, s.clustersTrees[p])
		}
	}
	if s.tracksTree != nil {
		out = append(out, s.tracksTree)
	}
	if s.eventTree != nil {
		out = append(out, s.eventTree)
	}
	return out
}

// start binds the buffers to the trees the first time an event is
// accessed. Field selection is frozen from here on.
func (s *Session) start() error {
	if s.started {
		return nil
	}
	s.started = true

	bind := func(t columns.Tree, cols []columns.Column, fields *schema) error {
		for _, c := range cols {
			if err := t.Bind(c); err != nil {
				return &IOError{Op: "bind " + c.Name, Path: s.path, Err: err}
			}
		}
		for _, name := range fields.disabled() {
			if err := t.SetEnabled(name, false); err != nil {
				return &IOError{Op: "disable " + name, Path: s.path, Err: err}
			}
		}
		return nil
	}

	for p := 0; p < s.numPlanes; p++ {
		if t := s.hitsTrees[p]; t != nil {
			if s.hitBuf == nil {
				s.hitBuf = &hitBuffers{}
			}
			if err := bind(t, s.hitBuf.columns(), s.hitFields); err != nil {
				return s.fail(err)
			}
		}
		if t := s.clustersTrees[p]; t != nil {
			if s.clusterBuf == nil {
				s.clusterBuf = &clusterBuffers{}
			}
			if err := bind(t, s.clusterBuf.columns(), s.clusterFields); err != nil {
				return s.fail(err)
			}
		}
	}
	if s.tracksTree != nil {
		s.trackBuf = &trackBuffers{}
		if err := bind(s.tracksTree, s.trackBuf.columns(), s.trackFields); err != nil {
			return s.fail(err)
		}
	}
	if s.eventTree != nil {
		s.infoBuf = &eventInfoBuffers{}
		if err := bind(s.eventTree, s.infoBuf.columns(), s.infoFields); err != nil {
			return s.fail(err)
		}
	}
	return nil
}

// fail records a store failure. The session is unusable afterwards.
func (s *Session) fail(err error) error {
	if s.err == nil {
		s.err = err
		logger.Error(fmt.Sprintf("Session %s: %v", s.id, err))
	}
	return s.err
}

func (s *Session) usable() error {
	if s.closed {
		return ErrClosed
	}
	return s.err
}

// DisableField stops a field of one section from being stored or loaded.
// It must be called before the first event is accessed and cannot be
// undone.
func (s *Session) DisableField(section Section, name string) error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.started {
		return &FieldError{Section: section, Name: name, Reason: "field selection is frozen after the first event"}
	}
	switch section {
	case SectionHits:
		return s.hitFields.disable(name)
	case SectionClusters:
		return s.clusterFields.disable(name)
	case SectionTracks:
		return s.trackFields.disable(name)
	case SectionEventInfo:
		return s.infoFields.disable(name)
	}
	return &FieldError{Section: section, Name: name, Reason: "not a single section"}
}

// SetNoiseMask installs the mask of a plane, replacing any previous one.
func (s *Session) SetNoiseMask(plane int, mask NoiseMask) error {
	if err := s.usable(); err != nil {
		return err
	}
	if plane < 0 || plane >= s.numPlanes {
		return &RangeError{What: "plane", Index: plane, Len: s.numPlanes}
	}
	if s.masks == nil {
		s.masks = make([]*NoiseMask, s.numPlanes)
	}
	s.masks[plane] = &mask
	return nil
}

// SetNoiseMasks installs every mask whose plane exists in the session.
// Masks for other planes are skipped and reported.
func (s *Session) SetNoiseMasks(masks map[int]NoiseMask) error {
	for plane, mask := range masks {
		if plane < 0 || plane >= s.numPlanes {
			logger.Info(fmt.Sprintf("Session %s: ignoring noise mask for plane %d", s.id, plane), "storage")
			continue
		}
		if err := s.SetNoiseMask(plane, mask); err != nil {
			return err
		}
	}
	return nil
}

// SetMaskMode selects how masked pixels are handled from the next event on.
func (s *Session) SetMaskMode(mode MaskMode) error {
	if mode != Passive && mode != Remove {
		return fmt.Errorf("%w: invalid mask mode %d", ErrConfiguration, int(mode))
	}
	s.maskMode = mode
	return nil
}

func (s *Session) masked(plane int, pixX int32, pixY int32) bool {
	if plane >= len(s.masks) || s.masks[plane] == nil {
		return false
	}
	return s.masks[plane].At(int(pixX), int(pixY))
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Path() string {
	return s.path
}

func (s *Session) Mode() columns.Mode {
	return s.mode
}

func (s *Session) MaskMode() MaskMode {
	return s.maskMode
}

func (s *Session) Sections() Section {
	return s.sections
}

// NumEvents is the number of rows in the file when reading, or the number
// of events written so far.
func (s *Session) NumEvents() int {
	return s.numEvents
}

func (s *Session) NumPlanes() int {
	return s.numPlanes
}

func (s *Session) PoolStats() PoolStats {
	return PoolStats{
		Hits:     s.hits.stat(),
		Clusters: s.clusters.stat(),
		Tracks:   s.tracks.stat(),
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("session(%s %s %s planes=%d events=%d)", s.id, s.mode, s.path, s.numPlanes, s.numEvents)
}

func (s *Session) closeTrees() []error {
	var errs []error
	for _, t := range s.trees() {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing tree %s: %w", t.Name(), err))
		}
	}
	s.hitsTrees = nil
	s.clustersTrees = nil
	s.tracksTree = nil
	s.eventTree = nil
	return errs
}

// Close releases the trees, the store and the pooled objects. Calling it
// again does nothing.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	logger.Info(fmt.Sprintf("Session %s: closing %s after %d events", s.id, s.path, s.numEvents), "storage")

	errs := s.closeTrees()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing store: %w", err))
	}
	if s.event != nil {
		s.event.gen++
	}
	s.hits.drop()
	s.clusters.drop()
	s.tracks.drop()

	if len(errs) > 0 {
		return &IOError{Op: "close", Path: s.path, Err: errors.Join(errs...)}
	}
	return nil
}
