// Package session owns the mutable state of one analysis session: the loaded
// dataset, the risk-grade registry, and the selected núcleo. Every read goes
// through Recompute, which filters and aggregates an explicit snapshot.
package session

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/lotes-cli/internal/aggregate"
	"github.com/sells-group/lotes-cli/internal/filter"
	"github.com/sells-group/lotes-cli/internal/parcel"
	"github.com/sells-group/lotes-cli/internal/reproject"
	"github.com/sells-group/lotes-cli/internal/risk"
	"github.com/sells-group/lotes-cli/internal/store"
)

// Options configures a session.
type Options struct {
	// ReprojectWorkers bounds concurrent per-feature reprojection during load.
	ReprojectWorkers int
}

// Session is safe for concurrent use.
type Session struct {
	opts   Options
	store  *store.Store
	grades *risk.Registry

	mu     sync.RWMutex
	loadMu sync.Mutex
	nucleo string
}

// New returns a session with an empty dataset, every grade enabled, and the
// All núcleo selected.
func New(opts Options) *Session {
	return &Session{
		opts:   opts,
		store:  store.New(),
		grades: risk.NewRegistry(),
		nucleo: filter.All,
	}
}

// Load decodes and reprojects a GeoJSON document, then replaces the dataset.
// On any error the previous dataset stays in place. A successful load resets
// the núcleo selection to All; grade flags are kept.
func (s *Session) Load(ctx context.Context, r io.Reader, source string, p reproject.Projection) (*store.Dataset, error) {
	log := zap.L().With(
		zap.String("component", "session.load"),
		zap.String("source", source),
		zap.String("projection", p.String()),
	)

	c, err := parcel.Decode(r)
	if err != nil {
		return nil, err
	}

	out, resolved, err := parcel.Reproject(ctx, c, p, s.opts.ReprojectWorkers)
	if err != nil {
		return nil, err
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	// Readers take mu to snapshot dataset and núcleo together, so a view never
	// pairs the new dataset with the previous selection.
	s.mu.Lock()
	ds := s.store.Load(out, source, resolved.String())
	s.nucleo = filter.All
	s.mu.Unlock()

	log.Info("dataset loaded",
		zap.String("dataset_id", ds.ID.String()),
		zap.Int("features", ds.Len()),
		zap.String("resolved_projection", resolved.String()),
	)
	return ds, nil
}

// Dataset returns the current dataset.
func (s *Session) Dataset() *store.Dataset {
	return s.store.All()
}

// SelectCluster sets the núcleo filter. A name absent from the data is
// accepted and simply yields an empty selection.
func (s *Session) SelectCluster(name string) {
	if name == "" {
		name = filter.All
	}
	s.mu.Lock()
	s.nucleo = name
	s.mu.Unlock()
}

// Cluster returns the selected núcleo.
func (s *Session) Cluster() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nucleo
}

// SetGradeEnabled toggles a grade; unknown keys return risk.ErrInvalidGrade.
func (s *Session) SetGradeEnabled(key string, on bool) error {
	return s.grades.SetEnabled(key, on)
}

// Grades returns every grade with its metadata and flag.
func (s *Session) Grades() []risk.State {
	return s.grades.States()
}

// Clusters returns the selectable núcleos of the current dataset.
func (s *Session) Clusters() []string {
	return filter.Clusters(s.store.All().Features())
}

// View is the recomputed output consumed by presentation.
type View struct {
	DatasetID uuid.UUID                `json:"dataset_id" yaml:"dataset_id"`
	Nucleo    string                   `json:"nucleo" yaml:"nucleo"`
	Enabled   []risk.Grade             `json:"enabled_grades" yaml:"enabled_grades"`
	Summary   aggregate.Summary        `json:"summary" yaml:"summary"`
	ByGrade   []aggregate.GradeCount   `json:"by_grade" yaml:"by_grade"`
	ByCluster []aggregate.ClusterStats `json:"by_nucleo" yaml:"by_nucleo"`
	Extent    *parcel.BBox             `json:"extent,omitempty" yaml:"extent,omitempty"`
	Features  []parcel.Feature         `json:"-" yaml:"-"`
}

// snapshot returns the dataset and núcleo selection as one consistent pair.
func (s *Session) snapshot() (*store.Dataset, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.All(), s.nucleo
}

// Recompute filters the current dataset by the current selection and
// aggregates the result.
func (s *Session) Recompute() View {
	ds, nucleo := s.snapshot()
	enabled := s.grades.Enabled()

	filtered := filter.Apply(ds.Features(), nucleo, enabled)
	v := View{
		DatasetID: ds.ID,
		Nucleo:    nucleo,
		Enabled:   enabled.Sorted(),
		Summary:   aggregate.Summarize(filtered),
		ByGrade:   aggregate.ByGrade(filtered),
		ByCluster: aggregate.ByCluster(filtered),
		Features:  filtered,
	}
	if box, ok := parcel.Extent(filtered); ok {
		v.Extent = &box
	}
	return v
}
