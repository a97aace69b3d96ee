package spatial_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spatial-index/internal/spatial"
)

func newQuad(t *testing.T, r spatial.Region[spatial.Vec2], capacity int, opts ...spatial.Option) *spatial.Quadtree {
	t.Helper()
	qt, err := spatial.NewQuadtree(r, capacity, opts...)
	require.NoError(t, err)
	return qt
}

func TestQuadtreeScenario(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 50, 50), 2)
	for _, p := range []spatial.Vec2{{10, 10}, {20, 20}, {25, 25}, {40, 40}, {-10, -10}, {5, 45}} {
		require.True(t, qt.Insert(p), "insert %v", p)
	}
	assert.True(t, qt.Root().Divided())
	assert.Equal(t, 2, qt.Size())
	assert.Equal(t, 6, qt.Len())

	got := qt.Query(rect(0, 0, 30, 30), nil)
	assert.Equal(t, []spatial.Vec2{{10, 10}, {20, 20}, {25, 25}, {-10, -10}}, got)

	assert.True(t, qt.Remove(spatial.Vec2{20, 20}))
	assert.True(t, qt.Remove(spatial.Vec2{40, 40}))

	all := qt.Query(rect(-50, -50, 100, 100), nil)
	assert.Len(t, all, 4)
	assert.ElementsMatch(t, []spatial.Vec2{{10, 10}, {25, 25}, {-10, -10}, {5, 45}}, all)
}

func TestQuadtreeSmallScenario(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 50, 50), 2)
	for _, p := range []spatial.Vec2{{10, 10}, {-20, -20}, {25, 25}, {20, 20}, {40, -40}} {
		require.True(t, qt.Insert(p))
	}
	assert.Len(t, qt.Query(rect(0, 0, 30, 30), nil), 4)
}

func TestOctreeScenario(t *testing.T) {
	t.Parallel()

	ot, err := spatial.NewOctree(cuboid(0, 0, 0, 50, 50, 50), 2)
	require.NoError(t, err)
	require.True(t, ot.Insert(spatial.Vec3{10, 10, 10}))
	require.True(t, ot.Insert(spatial.Vec3{20, 20, 20}))
	assert.False(t, ot.Root().Divided())
	require.True(t, ot.Insert(spatial.Vec3{25, 25, 25}))
	assert.True(t, ot.Root().Divided())
	assert.Len(t, ot.Root().Children(), 8)

	got := ot.Query(cuboid(0, 0, 0, 20, 20, 20), nil)
	assert.Equal(t, []spatial.Vec3{{10, 10, 10}, {20, 20, 20}}, got)
}

func TestConstructValidation(t *testing.T) {
	t.Parallel()

	_, err := spatial.NewQuadtree(rect(0, 0, 1, 1), 0)
	require.ErrorIs(t, err, spatial.ErrCapacity)

	_, err = spatial.NewOctree(cuboid(0, 0, 0, 1, 1, 1), 1, spatial.WithMaxDepth(-1))
	require.ErrorIs(t, err, spatial.ErrMaxDepth)
}

func TestEmptyTreeQuery(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 50, 50), 4)
	assert.Empty(t, qt.Query(rect(0, 0, 50, 50), nil))
	assert.Empty(t, qt.Query(rect(1000, 1000, 1, 1), nil))
	assert.Equal(t, 0, qt.Size())
	assert.False(t, qt.Remove(spatial.Vec2{0, 0}))
}

func TestInsertOutsideRootRejected(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 50, 50), 1)
	require.True(t, qt.Insert(spatial.Vec2{1, 1}))
	before := qt.Query(rect(0, 0, 1000, 1000), nil)

	assert.False(t, qt.Insert(spatial.Vec2{50.5, 0}))
	assert.False(t, qt.Insert(spatial.Vec2{0, -51}))
	assert.Equal(t, before, qt.Query(rect(0, 0, 1000, 1000), nil))
	assert.Equal(t, 1, qt.Len())
	assert.False(t, qt.Root().Divided())
}

func TestQueryAppendsToAccumulator(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 10, 10), 4)
	require.True(t, qt.Insert(spatial.Vec2{1, 1}))

	seed := []spatial.Vec2{{99, 99}}
	got := qt.Query(rect(0, 0, 10, 10), seed)
	assert.Equal(t, []spatial.Vec2{{99, 99}, {1, 1}}, got)
}

func TestChildOrderAndBoundaryPoints(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 8, 8), 1)
	require.True(t, qt.Insert(spatial.Vec2{5, 5}))
	// 分割面上的点：首个包含它的子节点（+x,+y）持有
	require.True(t, qt.Insert(spatial.Vec2{0, 0}))

	children := qt.Root().Children()
	require.Len(t, children, 4)
	want := []spatial.Region[spatial.Vec2]{
		rect(4, 4, 4, 4),
		rect(-4, 4, 4, 4),
		rect(4, -4, 4, 4),
		rect(-4, -4, 4, 4),
	}
	for i, c := range children {
		assert.Equal(t, want[i], c.Boundary(), "child %d", i)
		assert.Equal(t, 1, c.Depth())
	}
	assert.Equal(t, []spatial.Vec2{{0, 0}}, children[0].Points())
	for _, c := range children[1:] {
		assert.Equal(t, 0, c.Len())
	}
}

func TestOctreeChildOrder(t *testing.T) {
	t.Parallel()

	ot, err := spatial.NewOctree(cuboid(0, 0, 0, 2, 2, 2), 1)
	require.NoError(t, err)
	require.True(t, ot.Insert(spatial.Vec3{0, 0, 0}))
	require.True(t, ot.Insert(spatial.Vec3{-1, -1, -1}))

	children := ot.Root().Children()
	require.Len(t, children, 8)
	signs := [][3]float64{
		{1, 1, 1}, {-1, 1, 1}, {1, -1, 1}, {-1, -1, 1},
		{1, 1, -1}, {-1, 1, -1}, {1, -1, -1}, {-1, -1, -1},
	}
	for i, c := range children {
		b := c.Boundary()
		assert.Equal(t, spatial.Vec3{signs[i][0], signs[i][1], signs[i][2]}, b.Center, "child %d", i)
		assert.Equal(t, spatial.Vec3{1, 1, 1}, b.Half)
	}
	assert.Equal(t, []spatial.Vec3{{-1, -1, -1}}, children[7].Points())
}

func TestRemoveSemantics(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 50, 50), 4)
	for i := 0; i < 3; i++ {
		require.True(t, qt.Insert(spatial.Vec2{7, 7}))
	}
	assert.False(t, qt.Remove(spatial.Vec2{7, 7.000001}))
	assert.False(t, qt.Remove(spatial.Vec2{100, 100}))

	assert.True(t, qt.Remove(spatial.Vec2{7, 7}))
	assert.Len(t, qt.Query(rect(7, 7, 0, 0), nil), 2, "only one duplicate removed per call")
	assert.True(t, qt.Remove(spatial.Vec2{7, 7}))
	assert.True(t, qt.Remove(spatial.Vec2{7, 7}))
	assert.False(t, qt.Remove(spatial.Vec2{7, 7}))
	assert.Equal(t, 0, qt.Len())
}

func TestRemoveKeepsStructure(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 50, 50), 1)
	require.True(t, qt.Insert(spatial.Vec2{1, 1}))
	require.True(t, qt.Insert(spatial.Vec2{-30, -30}))
	nodes := qt.Stats().Nodes

	require.True(t, qt.Remove(spatial.Vec2{-30, -30}))
	require.True(t, qt.Remove(spatial.Vec2{1, 1}))
	assert.True(t, qt.Root().Divided(), "no merge on removal")
	assert.Equal(t, nodes, qt.Stats().Nodes)

	// 内部节点不再增长自身点列表，即使删除后低于容量
	require.True(t, qt.Insert(spatial.Vec2{2, 2}))
	assert.Equal(t, 0, qt.Size())
	assert.Equal(t, []spatial.Vec2{{2, 2}}, qt.Query(rect(0, 0, 50, 50), nil))
}

func TestDuplicatePointsStopAtMaxDepth(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 50, 50), 2, spatial.WithMaxDepth(5))
	for i := 0; i < 20; i++ {
		require.True(t, qt.Insert(spatial.Vec2{3, 3}))
	}
	st := qt.Stats()
	assert.Equal(t, 20, st.Points)
	assert.Equal(t, 5, st.Depth)
	assert.Equal(t, 20-2*6, st.Overflow)
	assert.Len(t, qt.Query(rect(3, 3, 0.5, 0.5), nil), 20)

	deepest := 0
	qt.Walk(func(n *spatial.Node[spatial.Vec2]) bool {
		if n.Depth() == 5 && n.Len() > 0 {
			deepest = n.Len()
		}
		return true
	})
	assert.Equal(t, 20-2*5, deepest)
}

func TestMaxDepthZeroNeverSubdivides(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 10, 10), 1, spatial.WithMaxDepth(0))
	for i := 0; i < 5; i++ {
		require.True(t, qt.Insert(spatial.Vec2{float64(i), 0}))
	}
	assert.False(t, qt.Root().Divided())
	assert.Equal(t, 5, qt.Size())
	assert.Equal(t, 1, qt.Stats().Nodes)
}

func TestWalkSkipsSubtree(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 50, 50), 1)
	for _, p := range []spatial.Vec2{{1, 1}, {2, 2}, {3, 3}} {
		require.True(t, qt.Insert(p))
	}
	visited := 0
	qt.Walk(func(n *spatial.Node[spatial.Vec2]) bool {
		visited++
		return n.Depth() == 0
	})
	assert.Equal(t, 5, visited)
}

func TestStats(t *testing.T) {
	t.Parallel()

	qt := newQuad(t, rect(0, 0, 50, 50), 1)
	for _, p := range []spatial.Vec2{{10, 10}, {20, 20}, {-20, -20}} {
		require.True(t, qt.Insert(p))
	}
	st := qt.Stats()
	assert.Equal(t, 3, st.Points)
	assert.Equal(t, 5, st.Nodes)
	assert.Equal(t, 4, st.Leaves)
	assert.Equal(t, 1, st.Depth)
	assert.Equal(t, 1, st.RootSize)
	assert.Equal(t, 0, st.Overflow)
}

func bruteForce[V spatial.Vector[V]](pts []V, r spatial.Region[V]) []V {
	var out []V
	for _, p := range pts {
		if r.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}

func TestQuadtreeMatchesBruteForce(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	qt := newQuad(t, rect(0, 0, 100, 100), 3)
	var pts []spatial.Vec2
	for i := 0; i < 1500; i++ {
		// 取整坐标制造大量分割面上的点与重复点
		p := spatial.Vec2{float64(rng.Intn(201) - 100), float64(rng.Intn(201) - 100)}
		require.True(t, qt.Insert(p))
		pts = append(pts, p)
	}
	assert.ElementsMatch(t, pts, qt.Query(qt.Boundary(), nil))

	for i := 0; i < 200; i++ {
		r := rect(rng.Float64()*240-120, rng.Float64()*240-120, rng.Float64()*60, rng.Float64()*60)
		assert.ElementsMatch(t, bruteForce(pts, r), qt.Query(r, nil))
	}

	// 删除一半后再次比对
	rng.Shuffle(len(pts), func(i, j int) { pts[i], pts[j] = pts[j], pts[i] })
	removed, kept := pts[:len(pts)/2], pts[len(pts)/2:]
	for _, p := range removed {
		require.True(t, qt.Remove(p))
	}
	assert.Equal(t, len(kept), qt.Len())
	for i := 0; i < 100; i++ {
		r := rect(rng.Float64()*240-120, rng.Float64()*240-120, rng.Float64()*60, rng.Float64()*60)
		assert.ElementsMatch(t, bruteForce(kept, r), qt.Query(r, nil))
	}
}

func TestOctreeMatchesBruteForce(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	ot, err := spatial.NewOctree(cuboid(0, 0, 0, 64, 64, 64), 4)
	require.NoError(t, err)
	var pts []spatial.Vec3
	for i := 0; i < 1000; i++ {
		p := spatial.Vec3{rng.Float64()*128 - 64, rng.Float64()*128 - 64, rng.Float64()*128 - 64}
		require.True(t, ot.Insert(p))
		pts = append(pts, p)
	}
	for i := 0; i < 100; i++ {
		r := cuboid(rng.Float64()*128-64, rng.Float64()*128-64, rng.Float64()*128-64,
			rng.Float64()*40, rng.Float64()*40, rng.Float64()*40)
		assert.ElementsMatch(t, bruteForce(pts, r), ot.Query(r, nil))
	}
	for _, p := range pts[:10] {
		require.True(t, ot.Remove(p))
		assert.NotContains(t, ot.Query(cuboid(p[0], p[1], p[2], 0, 0, 0), nil), p)
	}
}
