package table_test

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/atlas-tuning/arduino/pkg/table"
	"github.com/atlas-tuning/arduino/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var strategies = []table.Search{table.SearchLinear, table.SearchEstimate, table.SearchReestimate}

func TestNewDimension_Validation(t *testing.T) {
	_, err := table.NewDimension(nil, table.Linear, []float64{1})
	assert.ErrorIs(t, err, table.ErrNilSource)

	_, err = table.NewDimension(value.Constant(0), table.Linear, nil)
	assert.ErrorIs(t, err, table.ErrEmptyAnchors)
}

func TestNewDimension_CopiesAnchorsAndSeedsMidpoint(t *testing.T) {
	anchors := []float64{0, 1, 2, 3, 4}
	d, err := table.NewDimension(value.Constant(0), table.Linear, anchors)
	require.NoError(t, err)

	anchors[0] = 99
	assert.Equal(t, 0.0, d.Anchors()[0])
	assert.Equal(t, 5, d.Size())
	assert.Equal(t, 2, d.LastLookup())
}

func TestDimension_SingleAnchor(t *testing.T) {
	d := table.MustDimension(value.Constant(0), table.Linear, 7)

	for _, s := range strategies {
		for _, c := range []float64{-100, 7, 100} {
			low, high := d.Find(c, s)
			assert.Equal(t, 0, low, "%s at %v", s, c)
			assert.Equal(t, 0, high, "%s at %v", s, c)
		}
	}
}

func TestDimension_ClampsOutOfRange(t *testing.T) {
	d := table.MustDimension(value.Constant(0), table.Linear, 1, 2, 4, 8)

	for _, s := range strategies {
		low, high := d.Find(-5, s)
		assert.Equal(t, [2]int{0, 0}, [2]int{low, high}, s.String())

		low, high = d.Find(1, s)
		assert.Equal(t, [2]int{0, 0}, [2]int{low, high}, s.String())

		low, high = d.Find(100, s)
		assert.Equal(t, [2]int{3, 3}, [2]int{low, high}, s.String())

		low, high = d.Find(math.NaN(), s)
		assert.Equal(t, [2]int{0, 0}, [2]int{low, high}, s.String())
	}
}

func TestDimension_BracketsInterior(t *testing.T) {
	d := table.MustDimension(value.Constant(0), table.Linear, 0, 1, 2, 4, 8, 16, 32)

	for _, s := range strategies {
		low, high := d.Find(5, s)
		assert.Equal(t, 3, low, s.String())
		assert.Equal(t, 4, high, s.String())

		low, high = d.Find(31.5, s)
		assert.Equal(t, 5, low, s.String())
		assert.Equal(t, 6, high, s.String())
	}
}

// TestDimension_StrategiesAgree checks every strategy brackets random
// coordinates on unevenly spaced anchors with the same interval.
func TestDimension_StrategiesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	anchors := make([]float64, 40)
	for i := range anchors {
		anchors[i] = rng.Float64() * 1000
	}

	sort.Float64s(anchors)

	d := table.MustDimension(value.Constant(0), table.Linear, anchors...)

	for i := 0; i < 5000; i++ {
		c := anchors[0] + rng.Float64()*(anchors[len(anchors)-1]-anchors[0])

		var results [][2]int

		for _, s := range strategies {
			low, high := d.Find(c, s)
			require.LessOrEqual(t, anchors[low], c, s.String())
			require.GreaterOrEqual(t, anchors[high], c, s.String())
			results = append(results, [2]int{low, high})
		}

		assert.Equal(t, results[0], results[1], "estimate vs linear at %v", c)
		assert.Equal(t, results[0], results[2], "reestimate vs linear at %v", c)
	}
}

func TestDimension_ReestimateCachesLowIndex(t *testing.T) {
	d := table.MustDimension(value.Constant(0), table.Linear, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)

	low, high := d.Find(2.5, table.SearchReestimate)
	assert.Equal(t, 2, low)
	assert.Equal(t, 3, high)
	assert.Equal(t, 2, d.LastLookup())

	low, high = d.Find(7.25, table.SearchReestimate)
	assert.Equal(t, 7, low)
	assert.Equal(t, 8, high)
	assert.Equal(t, 7, d.LastLookup())

	// An exact interior hit short-circuits with both indices on the anchor.
	low, high = d.Find(4, table.SearchReestimate)
	assert.Equal(t, 4, low)
	assert.Equal(t, 4, high)
	assert.Equal(t, 4, d.LastLookup())

	// Clamped lookups leave the cache alone.
	d.Find(-1, table.SearchReestimate)
	assert.Equal(t, 4, d.LastLookup())
}

func TestDimension_ReestimateTracksSlowSweep(t *testing.T) {
	d := table.MustDimension(value.Constant(0), table.Linear, 0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100)

	for c := 0.5; c < 100; c += 0.5 {
		low, high := d.Find(c, table.SearchReestimate)
		want := int(c / 10)

		if math.Mod(c, 10) == 0 {
			assert.Equal(t, want, low, "at %v", c)
			assert.Equal(t, want, high, "at %v", c)

			continue
		}

		assert.Equal(t, want, low, "at %v", c)
		assert.Equal(t, want+1, high, "at %v", c)
	}
}

func TestDimension_DuplicateAnchors(t *testing.T) {
	d := table.MustDimension(value.Constant(0), table.Linear, 0, 5, 5, 10)

	for _, s := range strategies {
		low, high := d.Find(7, s)
		assert.Equal(t, 2, low, s.String())
		assert.Equal(t, 3, high, s.String())
	}
}

func TestParseSearch(t *testing.T) {
	for _, s := range strategies {
		parsed, err := table.ParseSearch(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := table.ParseSearch("binary")
	assert.Error(t, err)
}
