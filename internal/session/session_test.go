package session

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lotes-cli/internal/filter"
	"github.com/sells-group/lotes-cli/internal/parcel"
	"github.com/sells-group/lotes-cli/internal/reproject"
	"github.com/sells-group/lotes-cli/internal/risk"
)

const threeLotes = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [333287.0215, 7394586.0934]},
     "properties": {"ID_LOTE": "L1", "GRAU_RISCO": 1, "NUCLEO": "A", "CUSTO": 50}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [334287.0, 7395586.0]},
     "properties": {"ID_LOTE": "L2", "GRAU_RISCO": 3, "NUCLEO": "B", "CUSTO": 200, "LOTE_APP": "SIM"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [335287.0, 7396586.0]},
     "properties": {"ID_LOTE": "L3", "GRAU_RISCO": "NA", "NUCLEO": "A"}}
  ]
}`

func zone23s(t *testing.T) reproject.Projection {
	t.Helper()
	p, err := reproject.ParseProjection("23s")
	require.NoError(t, err)
	return p
}

func loaded(t *testing.T) *Session {
	t.Helper()
	s := New(Options{ReprojectWorkers: 2})
	_, err := s.Load(context.Background(), strings.NewReader(threeLotes), "test", zone23s(t))
	require.NoError(t, err)
	return s
}

func TestNew_EmptyView(t *testing.T) {
	s := New(Options{})
	v := s.Recompute()
	assert.Equal(t, 0, v.Summary.Total)
	assert.Nil(t, v.Summary.MaxCost)
	assert.Nil(t, v.Extent)
	assert.Equal(t, filter.All, v.Nucleo)
	assert.Equal(t, risk.Grades, v.Enabled)
}

func TestSession_EndToEnd(t *testing.T) {
	s := loaded(t)

	v := s.Recompute()
	assert.Equal(t, 3, v.Summary.Total)
	assert.Equal(t, 1, v.Summary.NonConforming)
	assert.Equal(t, 1, v.Summary.InPreservationArea)
	assert.InDelta(t, 250.0, v.Summary.TotalCost, 1e-9)
	assert.Equal(t, "L2", v.Summary.MaxCost.Label)
	assert.Equal(t, "L1", v.Summary.MinCost.Label)
	require.NotNil(t, v.Extent)
	assert.True(t, v.Extent.MinLng > -47 && v.Extent.MaxLng < -46)

	require.NoError(t, s.SetGradeEnabled("3", false))
	v = s.Recompute()
	assert.Equal(t, 2, v.Summary.Total)
	assert.InDelta(t, 50.0, v.Summary.TotalCost, 1e-9)

	s.SelectCluster("A")
	v = s.Recompute()
	assert.Equal(t, "A", v.Nucleo)
	assert.Equal(t, 2, v.Summary.Total)

	s.SelectCluster("nowhere")
	v = s.Recompute()
	assert.Equal(t, 0, v.Summary.Total)
}

func TestSession_Clusters(t *testing.T) {
	s := loaded(t)
	assert.Equal(t, []string{"A", "B"}, s.Clusters())
}

func TestSession_InvalidGrade(t *testing.T) {
	s := New(Options{})
	err := s.SetGradeEnabled("X", false)
	require.Error(t, err)
	assert.True(t, eris.Is(err, risk.ErrInvalidGrade))
}

func TestSession_ParseErrorKeepsPreviousDataset(t *testing.T) {
	s := loaded(t)
	before := s.Dataset()

	_, err := s.Load(context.Background(), strings.NewReader(`{"type":`), "bad", zone23s(t))
	require.Error(t, err)
	assert.True(t, eris.Is(err, parcel.ErrParse))
	assert.Same(t, before, s.Dataset())
}

func TestSession_ConfigurationErrorKeepsPreviousDataset(t *testing.T) {
	s := loaded(t)
	before := s.Dataset()

	_, err := s.Load(context.Background(), strings.NewReader(threeLotes), "auto", reproject.Projection{Mode: reproject.ModeAuto})
	require.Error(t, err)
	assert.True(t, eris.Is(err, reproject.ErrConfiguration))
	assert.Same(t, before, s.Dataset())
}

func TestSession_LoadResetsClusterKeepsGrades(t *testing.T) {
	s := loaded(t)
	s.SelectCluster("B")
	require.NoError(t, s.SetGradeEnabled("NA", false))

	_, err := s.Load(context.Background(), strings.NewReader(threeLotes), "again", zone23s(t))
	require.NoError(t, err)

	assert.Equal(t, filter.All, s.Cluster())
	v := s.Recompute()
	assert.NotContains(t, v.Enabled, risk.GradeNA)
	assert.Equal(t, 2, v.Summary.Total)
}

func TestSession_EmptyCollection(t *testing.T) {
	s := New(Options{})
	ds, err := s.Load(context.Background(), strings.NewReader(`{"type":"FeatureCollection","features":[]}`), "empty", reproject.Geodetic)
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, 0, s.Recompute().Summary.Total)
}

func TestSession_ConcurrentReadersSeeWholeDatasets(t *testing.T) {
	s := loaded(t)
	p := zone23s(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.Load(context.Background(), strings.NewReader(threeLotes), "concurrent", p)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			v := s.Recompute()
			assert.Equal(t, 3, v.Summary.Total)
			assert.Equal(t, len(v.Features), v.Summary.Total)
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, s.Dataset().Len())
}

func TestSession_ViewPairsDatasetWithItsSelection(t *testing.T) {
	const onlyC = `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-46.6, -23.5]},
	   "properties": {"ID_LOTE": "C1", "GRAU_RISCO": 2, "NUCLEO": "C"}}]}`

	s := loaded(t)
	s.SelectCluster("B")
	before := s.Dataset().ID

	views := make(chan View, 64)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 16; j++ {
				views <- s.Recompute()
			}
		}()
	}
	ds, err := s.Load(context.Background(), strings.NewReader(onlyC), "c", reproject.Geodetic)
	require.NoError(t, err)
	wg.Wait()
	close(views)

	for v := range views {
		switch v.DatasetID {
		case before:
			assert.Equal(t, "B", v.Nucleo)
		case ds.ID:
			assert.Equal(t, filter.All, v.Nucleo)
			assert.Equal(t, 1, v.Summary.Total)
		default:
			t.Fatalf("view of unknown dataset %s", v.DatasetID)
		}
	}
}
