// Package risk defines the closed set of parcel risk grades and the registry
// of which grades are currently enabled for display and filtering.
package risk

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidGrade is returned when a grade key outside the closed set is used.
var ErrInvalidGrade = eris.New("risk: invalid grade")

// Grade is the canonical string form of a risk grade.
type Grade string

const (
	Grade1  Grade = "1"
	Grade2  Grade = "2"
	Grade3  Grade = "3"
	Grade4  Grade = "4"
	GradeNA Grade = "NA"
)

// Grades lists every grade in display order.
var Grades = []Grade{Grade1, Grade2, Grade3, Grade4, GradeNA}

// Info is the display metadata of a grade.
type Info struct {
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

var gradeInfo = map[Grade]Info{
	Grade1:  {Name: "Grau 1 - Baixo", Color: "#2ecc71"},
	Grade2:  {Name: "Grau 2 - Médio", Color: "#f1c40f"},
	Grade3:  {Name: "Grau 3 - Alto", Color: "#e67e22"},
	Grade4:  {Name: "Grau 4 - Muito Alto", Color: "#e74c3c"},
	GradeNA: {Name: "Sem Grau", Color: "#95a5a6"},
}

// Info returns the display name and color of the grade.
func (g Grade) Info() Info {
	return gradeInfo[g]
}

// Level returns the numeric level for grades 1..4; ok is false for NA.
func (g Grade) Level() (level int, ok bool) {
	switch g {
	case Grade1:
		return 1, true
	case Grade2:
		return 2, true
	case Grade3:
		return 3, true
	case Grade4:
		return 4, true
	}
	return 0, false
}

// Lookup validates a grade key against the closed set.
func Lookup(key string) (Grade, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	if _, ok := gradeInfo[Grade(k)]; !ok {
		return "", eris.Wrapf(ErrInvalidGrade, "grade %q", key)
	}
	return Grade(k), nil
}

// Parse maps a raw GRAU_RISCO property value onto the closed set. Integral
// numbers 1..4 and their string forms are recognized; absent, null, and every
// other value become NA.
func Parse(v any) Grade {
	switch val := v.(type) {
	case nil:
		return GradeNA
	case json.Number:
		return fromFloatString(val.String())
	case float64:
		return fromFloat(val)
	case int:
		return fromFloat(float64(val))
	case string:
		s := strings.TrimSpace(val)
		if g, err := Lookup(s); err == nil {
			return g
		}
		return fromFloatString(s)
	}
	return GradeNA
}

func fromFloatString(s string) Grade {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return GradeNA
	}
	return fromFloat(f)
}

func fromFloat(f float64) Grade {
	if f != math.Trunc(f) || f < 1 || f > 4 {
		return GradeNA
	}
	return Grade(strconv.Itoa(int(f)))
}
