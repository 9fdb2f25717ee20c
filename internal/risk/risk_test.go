package risk

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Grade
	}{
		{"nil", nil, GradeNA},
		{"float", 2.0, Grade2},
		{"int", 4, Grade4},
		{"json number", json.Number("3"), Grade3},
		{"json number decimal form", json.Number("1.0"), Grade1},
		{"string", "2", Grade2},
		{"padded string", " 3 ", Grade3},
		{"string NA", "NA", GradeNA},
		{"lowercase na", "na", GradeNA},
		{"fractional", 2.5, GradeNA},
		{"zero", 0.0, GradeNA},
		{"out of range", 5.0, GradeNA},
		{"garbage", "alto", GradeNA},
		{"bool", true, GradeNA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestNumericAndStringGradesMatch(t *testing.T) {
	assert.Equal(t, Parse(2.0), Parse("2"))
	assert.Equal(t, Parse(json.Number("2")), Parse("2"))
}

func TestLevel(t *testing.T) {
	lvl, ok := Grade3.Level()
	assert.True(t, ok)
	assert.Equal(t, 3, lvl)

	_, ok = GradeNA.Level()
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	g, err := Lookup("na")
	require.NoError(t, err)
	assert.Equal(t, GradeNA, g)

	_, err = Lookup("5")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidGrade))
}

func TestInfo(t *testing.T) {
	for _, g := range Grades {
		info := g.Info()
		assert.NotEmpty(t, info.Name, g)
		assert.NotEmpty(t, info.Color, g)
	}
}

func TestRegistry_DefaultsAllEnabled(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, Grades, r.Enabled().Sorted())
	for _, g := range Grades {
		assert.True(t, r.IsEnabled(g))
	}
}

func TestRegistry_SetEnabled(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.SetEnabled("3", false))
	require.NoError(t, r.SetEnabled("NA", false))

	assert.Equal(t, []Grade{Grade1, Grade2, Grade4}, r.Enabled().Sorted())
	assert.False(t, r.IsEnabled(Grade3))

	require.NoError(t, r.SetEnabled("3", true))
	assert.True(t, r.Enabled().Has(Grade3))
}

func TestRegistry_RejectsUnknownGrade(t *testing.T) {
	r := NewRegistry()
	err := r.SetEnabled("7", false)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidGrade))
	assert.Len(t, r.States(), len(Grades), "key set never grows")
}

func TestRegistry_EnabledIsACopy(t *testing.T) {
	r := NewRegistry()
	s := r.Enabled()
	delete(s, Grade1)
	assert.True(t, r.IsEnabled(Grade1))
}

func TestRegistry_StatesJSON(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.SetEnabled("4", false))

	data, err := json.Marshal(r.States()[3])
	require.NoError(t, err)
	assert.JSONEq(t, `{"grade":"4","name":"Grau 4 - Muito Alto","color":"#e74c3c","enabled":false}`, string(data))
}
