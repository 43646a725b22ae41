package profiler_test

import (
	"testing"
	"time"

	"github.com/atlas-tuning/arduino/pkg/profiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	return c.t
}

func (c *stepClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestProfiler_Tree(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	root := profiler.New("main", profiler.WithClock(clock.now))

	for i := 0; i < 2; i++ {
		cycle := root.Push("cycle")
		clock.advance(time.Millisecond)

		tbl := cycle.Push("fuel")
		clock.advance(3 * time.Millisecond)
		require.Same(t, cycle, tbl.Pop())

		tbl = cycle.Push("spark")
		clock.advance(2 * time.Millisecond)
		tbl.Pop()

		require.Same(t, root, cycle.Pop())
	}

	require.Len(t, root.Children(), 1)

	cycle := root.Child("cycle")
	assert.Equal(t, int64(2), cycle.Executions())
	assert.Equal(t, 12*time.Millisecond, cycle.TotalTime())
	assert.Equal(t, 10*time.Millisecond, cycle.ChildTime())
	assert.Equal(t, 2*time.Millisecond, cycle.SelfTime())
	assert.Equal(t, 6*time.Millisecond, cycle.AvgTotalTime())
	assert.Equal(t, time.Millisecond, cycle.AvgSelfTime())
	assert.Equal(t, 5*time.Millisecond, cycle.AvgChildTime())

	fuel := cycle.Child("fuel")
	assert.Equal(t, "fuel", fuel.Name())
	assert.Same(t, cycle, fuel.Parent())
	assert.Equal(t, 6*time.Millisecond, fuel.TotalTime())
	assert.Len(t, cycle.Children(), 2)
}

func TestProfiler_RootPopReturnsItself(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	root := profiler.New("main", profiler.WithClock(clock.now))

	root.Begin()
	clock.advance(time.Second)

	assert.Same(t, root, root.Pop())
	assert.Equal(t, int64(1), root.Executions())
	assert.Equal(t, time.Second, root.TotalTime())
}

func TestProfiler_EmptyAverages(t *testing.T) {
	p := profiler.New("idle")

	assert.Zero(t, p.AvgTotalTime())
	assert.Zero(t, p.AvgSelfTime())
	assert.Zero(t, p.AvgChildTime())
}

func TestProfiler_ResetWalkSnapshot(t *testing.T) {
	clock := &stepClock{t: time.Unix(0, 0)}
	root := profiler.New("main", profiler.WithClock(clock.now))

	root.Begin()
	c := root.Push("a")
	clock.advance(time.Millisecond)
	c.Pop()
	root.End()

	snap := root.Snapshot()
	assert.Equal(t, "main", snap.Name)
	assert.Equal(t, time.Millisecond, snap.Total)
	assert.Equal(t, time.Duration(0), snap.Self)
	require.Len(t, snap.Children, 1)
	assert.Equal(t, "a", snap.Children[0].Name)

	var names []string

	var depths []int

	root.Walk(func(n *profiler.Profiler, depth int) {
		names = append(names, n.Name())
		depths = append(depths, depth)
	})
	assert.Equal(t, []string{"main", "a"}, names)
	assert.Equal(t, []int{0, 1}, depths)

	root.Reset()
	assert.Zero(t, root.Executions())
	assert.Zero(t, root.Child("a").TotalTime())
	assert.Len(t, root.Children(), 1)
}
