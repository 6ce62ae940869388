// Package analysis runs the load, partition, fit, and reconstruct pipeline
// over one marker dataset and notifies listeners as results change.
package analysis

import (
	"fmt"
	"sync"

	"spider-pca/internal/legs"
	"spider-pca/internal/loader"
	"spider-pca/internal/markers"
	"spider-pca/internal/pca"
	"spider-pca/internal/project"
	"spider-pca/internal/scores"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// EventType identifies session events.
type EventType int

const (
	EventDataLoaded EventType = iota
	EventModelFitted
	EventReconstructed
	EventAnimated
	EventModelSaved
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Fit is the result of fitting or projecting the session's data.
type Fit struct {
	Model  *pca.Model
	Scores *mat.Dense

	// Meta has one record per score row.
	Meta []scores.FrameMeta

	// SampleNames names the markers of one sample, in model column order.
	SampleNames []string

	// Projected is set when Scores come from a reference model rather than
	// a fit to this data.
	Projected bool
}

// layout remembers how samples were built so reconstructions can be put
// back into the canonical marker layout.
type layout struct {
	frames    int
	legNames  [][]string
	sideNames [][]string
	coxa      markers.Frame
	centered  bool
	reflected bool
}

// Animation is a synthetic trajectory in canonical marker layout.
type Animation struct {
	Component int
	Names     []string
	Markers   markers.Frame
}

// Session holds one dataset and its current fit.
type Session struct {
	mu sync.RWMutex

	anatomy legs.Anatomy
	opts    Options
	log     *zap.Logger

	data   *loader.Dataset
	fit    *Fit
	layout layout

	listeners map[EventType][]EventListener
}

// NewSession creates a session for the given anatomy and options.
func NewSession(anatomy legs.Anatomy, opts Options, log *zap.Logger) (*Session, error) {
	if err := anatomy.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("analysis options: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		anatomy:   anatomy,
		opts:      opts,
		log:       log,
		listeners: make(map[EventType][]EventListener),
	}, nil
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Options returns the session options.
func (s *Session) Options() Options { return s.opts }

// Load reads a marker table and makes it the session's dataset.
func (s *Session) Load(path string, opts loader.Options) error {
	ds, err := loader.Load(path, opts, s.log)
	if err != nil {
		return err
	}
	return s.SetData(ds)
}

// SetData replaces the dataset and clears any previous fit.
func (s *Session) SetData(ds *loader.Dataset) error {
	if ds == nil {
		return fmt.Errorf("set data: nil dataset: %w", markers.ErrInvalidInput)
	}
	if len(ds.Meta) != ds.Markers.Frames {
		return fmt.Errorf("set data: %d metadata rows for %d frames: %w",
			len(ds.Meta), ds.Markers.Frames, markers.ErrShape)
	}
	index, err := markers.NewNameIndex(ds.Names)
	if err != nil {
		return fmt.Errorf("set data: %w", err)
	}
	if err := index.CheckFrame(ds.Markers); err != nil {
		return fmt.Errorf("set data: %w", err)
	}

	s.mu.Lock()
	s.data = ds
	s.fit = nil
	s.layout = layout{}
	s.mu.Unlock()

	s.log.Info("loaded markers",
		zap.String("path", ds.Source),
		zap.Int("frames", ds.Markers.Frames),
		zap.Int("markers", ds.Markers.Markers))
	s.Emit(EventDataLoaded, ds)
	return nil
}

// Data returns the current dataset, or nil.
func (s *Session) Data() *loader.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Current returns the current fit, or nil.
func (s *Session) Current() *Fit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fit
}

// Fit prepares samples according to the pooling option and fits a model to
// them. With a reference model the samples are scored against it instead.
func (s *Session) Fit(reference *pca.Model) (*Fit, error) {
	s.mu.RLock()
	ds := s.data
	s.mu.RUnlock()
	if ds == nil {
		return nil, fmt.Errorf("fit: no data loaded: %w", markers.ErrInvalidInput)
	}

	samples, names, meta, lay, err := s.prepare(ds)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	fit := &Fit{Meta: meta, SampleNames: names}
	if reference != nil {
		if err := reference.CheckNames(names); err != nil {
			return nil, fmt.Errorf("fit: reference model: %w", err)
		}
		fit.Model = reference
		fit.Projected = true
		if fit.Scores, err = reference.TransformMarkers(samples); err != nil {
			return nil, fmt.Errorf("fit: %w", err)
		}
	} else {
		model, raw, err := pca.FitMarkers(samples, nil)
		if err != nil {
			return nil, err
		}
		if fit.Model, err = model.WithNames(names); err != nil {
			return nil, fmt.Errorf("fit: %w", err)
		}
		fit.Scores = raw
	}

	s.mu.Lock()
	s.fit = fit
	s.layout = lay
	s.mu.Unlock()

	ratio := fit.Model.ExplainedVarianceRatio()
	s.log.Info("fitted model",
		zap.String("pooling", string(s.opts.Pooling)),
		zap.Int("samples", samples.Frames),
		zap.Int("features", samples.Markers*markers.Dims),
		zap.Bool("projected", fit.Projected),
		zap.Float64("pc1_ratio", ratio[0]))
	s.Emit(EventModelFitted, fit)
	return fit, nil
}

func (s *Session) prepare(ds *loader.Dataset) (markers.Frame, []string, []scores.FrameMeta, layout, error) {
	lay := layout{frames: ds.Markers.Frames}
	if s.opts.Pooling == PoolBody {
		return ds.Markers, append([]string(nil), ds.Names...), ds.Meta, lay, nil
	}

	set, _, err := legs.ExtractAllLegs(ds.Names, ds.Markers, s.anatomy)
	if err != nil {
		return markers.Frame{}, nil, nil, layout{}, err
	}
	lay.legNames = set.Names
	if s.opts.CoxaCenter {
		if set, lay.coxa, err = legs.CoxaCenter(set); err != nil {
			return markers.Frame{}, nil, nil, layout{}, err
		}
		lay.centered = true
	}
	if s.opts.Reflect {
		if set, err = legs.ReflectBilateral(set, s.anatomy); err != nil {
			return markers.Frame{}, nil, nil, layout{}, err
		}
		lay.reflected = true
	}

	if s.opts.Pooling == PoolLegs {
		return set.AsSamples(), set.Names[0], scores.ExpandPerLeg(ds.Meta, set.Legs), lay, nil
	}

	combined, err := legs.CombineBilateral(set, s.anatomy)
	if err != nil {
		return markers.Frame{}, nil, nil, layout{}, err
	}
	lay.sideNames = combined.Names
	var names []string
	for _, leg := range combined.Names {
		names = append(names, leg...)
	}
	return combined.AsFrame(), names, scores.Stack(ds.Meta, 2), lay, nil
}

// ScoresTable joins the current scores with their metadata.
func (s *Session) ScoresTable() (*scores.Table, error) {
	fit := s.Current()
	if fit == nil {
		return nil, fmt.Errorf("scores table: no model fitted: %w", markers.ErrInvalidInput)
	}
	return scores.NewTable(fit.Scores, fit.Meta)
}

// Reconstruct rebuilds the dataset from the listed components of the
// current fit, in canonical marker layout. Markers the model does not
// describe (body markers and coxae) keep their recorded positions. A nil
// list falls back to the configured components, then to all of them.
func (s *Session) Reconstruct(components []int) (markers.Frame, error) {
	s.mu.RLock()
	ds, fit, lay := s.data, s.fit, s.layout
	s.mu.RUnlock()
	if fit == nil {
		return markers.Frame{}, fmt.Errorf("reconstruct: no model fitted: %w", markers.ErrInvalidInput)
	}
	if components == nil && len(s.opts.Components) > 0 {
		components = s.opts.Components
	}

	rec, err := fit.Model.Reconstruct(fit.Scores, components)
	if err != nil {
		return markers.Frame{}, err
	}
	original := ds.Markers
	out, err := s.restore(rec, lay, lay.frames, lay.coxa, &original)
	if err != nil {
		return markers.Frame{}, fmt.Errorf("reconstruct: %w", err)
	}

	s.log.Info("reconstructed markers",
		zap.Int("frames", out.Frames),
		zap.Int("components", componentCount(components, fit.Model)))
	s.Emit(EventReconstructed, out)
	return out, nil
}

// Animate sweeps one component between two standard deviations either side
// of its mean score, holding the others at zero, and rebuilds full-body
// poses from it. Every leg follows the same synthetic trajectory on top of
// the mean pose of the dataset. frames <= 0 uses the configured count.
func (s *Session) Animate(component, frames int) (*Animation, error) {
	s.mu.RLock()
	ds, fit, lay := s.data, s.fit, s.layout
	s.mu.RUnlock()
	if fit == nil {
		return nil, fmt.Errorf("animate: no model fitted: %w", markers.ErrInvalidInput)
	}
	if frames <= 0 {
		frames = s.opts.AnimationFrames
	}

	sweep, err := scores.Sweep(fit.Scores, component, frames)
	if err != nil {
		return nil, fmt.Errorf("animate: %w", err)
	}
	rec, err := fit.Model.Reconstruct(sweep, nil)
	if err != nil {
		return nil, fmt.Errorf("animate: %w", err)
	}

	var coxa markers.Frame
	if lay.centered {
		if coxa, err = lay.coxa.MeanPose().Broadcast(frames); err != nil {
			return nil, fmt.Errorf("animate: %w", err)
		}
	}
	out, err := s.restore(repeatSamples(rec, s.opts.Pooling, len(lay.legNames)), lay, frames, coxa, nil)
	if err != nil {
		return nil, fmt.Errorf("animate: %w", err)
	}

	s.log.Info("animated component", zap.Int("component", component), zap.Int("frames", frames))
	anim := &Animation{Component: component, Names: append([]string(nil), ds.Names...), Markers: out}
	s.Emit(EventAnimated, anim)
	return anim, nil
}

// repeatSamples turns one sample per animation frame into the sample
// layout of the pooling: one copy per leg, or one copy per side.
func repeatSamples(rec markers.Frame, pooling Pooling, numLegs int) markers.Frame {
	var copies int
	switch pooling {
	case PoolLegs:
		copies = numLegs
	case PoolBilateral:
		// Sides are stacked along the frame axis, so the whole block repeats.
		out := markers.Frame{Frames: 2 * rec.Frames, Markers: rec.Markers}
		out.Data = append(append(out.Data, rec.Data...), rec.Data...)
		return out
	default:
		return rec
	}
	width := rec.Markers * markers.Dims
	out := markers.NewFrame(rec.Frames*copies, rec.Markers)
	for f := 0; f < rec.Frames; f++ {
		row := rec.Data[f*width : (f+1)*width]
		for c := 0; c < copies; c++ {
			copy(out.Data[(f*copies+c)*width:], row)
		}
	}
	return out
}

// restore undoes the sample preparation for reconstructed samples. coxa
// holds the per-frame coxa positions to add back when the fit was coxa
// centered. With original nil, markers outside the legs come from the
// dataset's mean pose.
func (s *Session) restore(rec markers.Frame, lay layout, frames int, coxa markers.Frame, original *markers.Frame) (markers.Frame, error) {
	s.mu.RLock()
	ds := s.data
	s.mu.RUnlock()

	var (
		set legs.Set
		err error
	)
	switch s.opts.Pooling {
	case PoolBody:
		return rec, nil
	case PoolLegs:
		set, err = legs.SamplesToSet(rec, lay.legNames)
	case PoolBilateral:
		var combined legs.Set
		if combined, err = legs.FrameToSet(rec, lay.sideNames); err != nil {
			return markers.Frame{}, err
		}
		set, err = legs.SplitBilateral(combined, frames, lay.legNames, s.anatomy)
	}
	if err != nil {
		return markers.Frame{}, err
	}

	if lay.reflected {
		if set, err = legs.ReflectBilateral(set, s.anatomy); err != nil {
			return markers.Frame{}, err
		}
	}
	if lay.centered {
		if set, err = legs.Uncenter(set, coxa); err != nil {
			return markers.Frame{}, err
		}
	}
	return legs.Recompose(set, ds.Names, ds.Markers.MeanPose(), original, s.anatomy)
}

func componentCount(components []int, m *pca.Model) int {
	if components == nil {
		return m.Components()
	}
	return len(components)
}

// SaveModel writes the current model to a model file.
func (s *Session) SaveModel(path, name string) error {
	s.mu.RLock()
	ds, fit, lay := s.data, s.fit, s.layout
	s.mu.RUnlock()
	if fit == nil {
		return fmt.Errorf("save model: no model fitted: %w", markers.ErrInvalidInput)
	}

	f, err := project.New(name, fit.Model, fit.SampleNames)
	if err != nil {
		return err
	}
	f.Anatomy = s.anatomy
	f.Pooling = string(s.opts.Pooling)
	f.CoxaCenter = lay.centered
	f.Reflect = lay.reflected
	if ds.Source != "" {
		f.SetSource(path, ds.Source)
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	s.log.Info("saved model", zap.String("path", path))
	s.Emit(EventModelSaved, path)
	return nil
}

// LoadModel reads a model file for use as a Fit reference. The file must
// have been fitted with the same pooling and sample preparation as the
// session, and on markers with the same names in the same order as the
// session's samples.
func (s *Session) LoadModel(path string) (*pca.Model, error) {
	f, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	if Pooling(f.Pooling) != s.opts.Pooling {
		return nil, fmt.Errorf("model %s uses %s pooling, session uses %s: %w",
			path, f.Pooling, s.opts.Pooling, markers.ErrInvalidInput)
	}
	if s.opts.Pooling != PoolBody && (f.CoxaCenter != s.opts.CoxaCenter || f.Reflect != s.opts.Reflect) {
		return nil, fmt.Errorf("model %s was fitted with coxa_center=%t reflect=%t: %w",
			path, f.CoxaCenter, f.Reflect, markers.ErrInvalidInput)
	}
	m, err := f.Model()
	if err != nil {
		return nil, err
	}
	if ds := s.Data(); ds != nil {
		_, names, _, _, err := s.prepare(ds)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", path, err)
		}
		if err := m.CheckNames(names); err != nil {
			return nil, fmt.Errorf("model %s: %w", path, err)
		}
	}
	return m, nil
}
