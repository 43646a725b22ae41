package compare

import (
	"strings"
	"testing"

	"github.com/atlas-tuning/arduino/pkg/table"
	"github.com/atlas-tuning/arduino/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffAndSummarize(t *testing.T) {
	diff, err := Diff([]float64{1, 1, 1, 1}, []float64{1, 1.5, 0.75, 1.25})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, -0.25, 0.25}, diff)

	s := Summarize(diff)
	assert.Equal(t, 4, s.Cells)
	assert.Equal(t, 3, s.Changed)
	assert.InDelta(t, 0.5/3, s.Mean, 1e-12)
	assert.Equal(t, 0.5, s.MaxIncrease)
	assert.Equal(t, -0.25, s.MaxDecrease)
	assert.Equal(t, 0.5, s.MaxAbs)

	_, err = Diff([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSummarize_NoChanges(t *testing.T) {
	s := Summarize([]float64{0, 0})
	assert.Equal(t, Stats{Cells: 2}, s)
}

func TestVisualizeDifferences(t *testing.T) {
	x := table.MustDimension(value.Constant(0), table.Linear, 1000, 2000)
	y := table.MustDimension(value.Constant(0), table.Linear, 20, 80)

	tbl, err := table.New("trim", []*table.Dimension{x, y}, []float64{1, 1, 1, 1})
	require.NoError(t, err)

	out := VisualizeDifferences(tbl, []float64{0, 1, -1, 0.05}, 1)
	lines := strings.Split(out, "\n")

	assert.Contains(t, lines[0], "1000")
	assert.Contains(t, lines[2], "20 ↓")
	assert.Contains(t, lines[2], "▲▲")
	assert.Contains(t, lines[3], "80 ↓")
	assert.Contains(t, lines[3], "▼▼")

	assert.Error(t, CompareTable("trim", tbl, []float64{1}, []float64{1}, "x"))
	assert.NoError(t, CompareTable("trim", tbl, []float64{1, 1, 1, 1}, []float64{1, 2, 0, 1}, "x"))
}
