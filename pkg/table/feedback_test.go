package table_test

import (
	"math"
	"testing"

	"github.com/atlas-tuning/arduino/pkg/table"
	"github.com/atlas-tuning/arduino/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleCellFeedback(t *testing.T, base, seed float64, real, target value.Value, window int) *table.FeedbackTable {
	t.Helper()

	x := table.MustDimension(value.Constant(1), table.Linear, 1)

	f, err := table.NewFeedbackTable("test_feedback_table_1d", []*table.Dimension{x}, []float64{base},
		real, target, []float64{seed}, window)
	require.NoError(t, err)

	return f
}

func TestNewFeedbackTable_Validation(t *testing.T) {
	x := table.MustDimension(value.Constant(1), table.Linear, 1, 2)
	dims := []*table.Dimension{x}

	_, err := table.NewFeedbackTable("f", dims, []float64{1, 1}, nil, value.Constant(1), []float64{1, 1}, 5)
	assert.ErrorIs(t, err, table.ErrNilValue)

	_, err = table.NewFeedbackTable("f", dims, []float64{1, 1}, value.Constant(1), value.Constant(1), []float64{1, 1}, 0)
	assert.ErrorIs(t, err, table.ErrInvalidWindow)

	_, err = table.NewFeedbackTable("f", dims, []float64{1, 1}, value.Constant(1), value.Constant(1), []float64{1}, 5)
	assert.ErrorIs(t, err, table.ErrSeedLength)

	_, err = table.NewFeedbackTable("f", dims, []float64{1}, value.Constant(1), value.Constant(1), []float64{1, 1}, 5)
	assert.ErrorIs(t, err, table.ErrDataLength)
}

// TestFeedbackTable_UpdatesOnWindow checks the output is unchanged for the
// first window-1 reads and multiplied by the learned correction from the
// window-th read on.
func TestFeedbackTable_UpdatesOnWindow(t *testing.T) {
	const (
		expected          = 1.0
		initialCorrection = 1.0
	)

	f := singleCellFeedback(t, expected, initialCorrection, value.Constant(1), value.Constant(2), 5)

	for i := 0; i < 4; i++ {
		assert.Equal(t, expected*initialCorrection, f.Get(), "read %d", i+1)
	}

	got := f.Get()
	learned, err := f.Correction().Data(0)
	require.NoError(t, err)

	assert.Equal(t, expected*learned, got)
	// accumulator 1 + 5*0.5 = 3.5 over 5 samples
	assert.InDelta(t, 0.7, learned, 1e-12)

	acc, err := f.Accumulated(0)
	require.NoError(t, err)
	assert.InDelta(t, 2.8, acc, 1e-12)

	samples, err := f.Samples(0)
	require.NoError(t, err)
	assert.Equal(t, 5, samples)
}

// TestFeedbackTable_FoldsEveryCallAfterWindow pins the non-resetting sample
// counter: after the first fold every read folds again.
func TestFeedbackTable_FoldsEveryCallAfterWindow(t *testing.T) {
	f := singleCellFeedback(t, 1, 1, value.Constant(1), value.Constant(2), 2)

	f.Get() // samples 1 -> 2, acc 1.5
	f.Get() // fold: acc 2.0, avg 1.0, acc 1.0

	c, _ := f.Correction().Data(0)
	assert.InDelta(t, 1.0, c, 1e-12)

	f.Get() // fold: acc 1.5, avg 0.75, acc 0.75

	c, _ = f.Correction().Data(0)
	assert.InDelta(t, 0.75, c, 1e-12)

	samples, _ := f.Samples(0)
	assert.Equal(t, 2, samples)
}

func TestFeedbackTable_ZeroTargetPropagates(t *testing.T) {
	f := singleCellFeedback(t, 1, 1, value.Constant(1), value.Constant(0), 1)

	got := f.Get()
	assert.True(t, math.IsInf(got, 0) || math.IsNaN(got), "got %v", got)

	acc, _ := f.Accumulated(0)
	assert.True(t, math.IsInf(acc, 0) || math.IsNaN(acc))
}

func TestFeedbackTable_LearnsNearestCellOnly(t *testing.T) {
	x := value.NewVariable(0.9)
	dim := table.MustDimension(x, table.Linear, 0, 1, 2)

	f, err := table.NewFeedbackTable("trim", []*table.Dimension{dim}, []float64{10, 10, 10},
		value.Constant(1), value.Constant(2), []float64{1, 1, 1}, 1)
	require.NoError(t, err)

	// window 1 folds on the first read; 0.9 snaps to anchor 1.
	got := f.Get()

	c0, _ := f.Correction().Data(0)
	c1, _ := f.Correction().Data(1)
	c2, _ := f.Correction().Data(2)

	assert.Equal(t, 1.0, c0)
	assert.InDelta(t, 1.5, c1, 1e-12)
	assert.Equal(t, 1.0, c2)

	// The correction is interpolated at 0.9, not at the snapped anchor.
	assert.InDelta(t, 10*(1+0.9*0.5), got, 1e-12)
}

func TestFeedbackTable_IntegrateCoordinateCount(t *testing.T) {
	f := singleCellFeedback(t, 1, 1, value.Constant(1), value.Constant(2), 5)

	_, err := f.Integrate([]float64{1, 2})
	assert.ErrorIs(t, err, table.ErrCoordinateCount)

	got, err := f.Integrate([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
	assert.False(t, f.IsStatic())
}

func TestFeedbackTable_ClosedLoopSettles(t *testing.T) {
	// A plant whose measured value is output * 0.8. With the correction
	// written as the averaged error ratio the loop settles where
	// c = 1 - 0.8c.
	target := value.Constant(100)
	measured := value.NewVariable(0)

	dim := table.MustDimension(value.Constant(0), table.Linear, 0)
	f, err := table.NewFeedbackTable("afr", []*table.Dimension{dim}, []float64{100},
		measured, target, []float64{1}, 4)
	require.NoError(t, err)

	out := 100.0
	for i := 0; i < 50; i++ {
		measured.Set(out * 0.8)
		out = f.Get()
	}

	c, _ := f.Correction().Data(0)
	assert.InDelta(t, 1/1.8, c, 1e-6)
	assert.InDelta(t, 100/1.8, out, 1e-4)
}

func TestFeedbackTable_PreviewDoesNotLearn(t *testing.T) {
	f := singleCellFeedback(t, 10, 1.5, value.Constant(1), value.Constant(2), 1)

	assert.Equal(t, 15.0, f.Preview())

	acc, err := f.Accumulated(0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, acc)

	samples, err := f.Samples(0)
	require.NoError(t, err)
	assert.Equal(t, 1, samples)
}
