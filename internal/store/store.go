// Package store holds the loaded parcel dataset. A dataset is replaced as a
// whole on every load and is never mutated afterwards.
package store

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/lotes-cli/internal/parcel"
)

// Dataset is one immutable, fully reprojected load.
type Dataset struct {
	ID         uuid.UUID `json:"id" yaml:"id"`
	LoadedAt   time.Time `json:"loaded_at" yaml:"loaded_at"`
	Source     string    `json:"source,omitempty" yaml:"source,omitempty"`
	Projection string    `json:"projection" yaml:"projection"`

	features []parcel.Feature
}

// Features returns the parcels in input order. Callers must treat the slice
// as read-only.
func (d *Dataset) Features() []parcel.Feature {
	if d == nil {
		return nil
	}
	return d.features
}

// Len returns the number of parcels.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.features)
}

// Store is the single source of truth for "all features". Readers always
// see either the previous dataset or the next one, never a partial load.
type Store struct {
	current atomic.Pointer[Dataset]
}

// New returns a store holding an empty dataset.
func New() *Store {
	s := &Store{}
	s.current.Store(&Dataset{LoadedAt: time.Now().UTC()})
	return s
}

// Load replaces the held dataset unconditionally and returns it.
func (s *Store) Load(c *parcel.Collection, source, projection string) *Dataset {
	var features []parcel.Feature
	if c != nil {
		features = make([]parcel.Feature, len(c.Features))
		copy(features, c.Features)
	}
	ds := &Dataset{
		ID:         uuid.New(),
		LoadedAt:   time.Now().UTC(),
		Source:     source,
		Projection: projection,
		features:   features,
	}
	s.current.Store(ds)
	return ds
}

// All returns the current dataset.
func (s *Store) All() *Dataset {
	return s.current.Load()
}
