package spatial_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"spatial-index/internal/spatial"
)

func rect(cx, cy, hx, hy float64) spatial.Region[spatial.Vec2] {
	return spatial.NewRegion(spatial.Vec2{cx, cy}, spatial.Vec2{hx, hy})
}

func cuboid(cx, cy, cz, hx, hy, hz float64) spatial.Region[spatial.Vec3] {
	return spatial.NewRegion(spatial.Vec3{cx, cy, cz}, spatial.Vec3{hx, hy, hz})
}

func TestRegionContains(t *testing.T) {
	t.Parallel()

	r := rect(0, 0, 10, 5)
	tests := []struct {
		name string
		p    spatial.Vec2
		want bool
	}{
		{"center", spatial.Vec2{0, 0}, true},
		{"corner inclusive", spatial.Vec2{10, 5}, true},
		{"negative corner inclusive", spatial.Vec2{-10, -5}, true},
		{"edge", spatial.Vec2{3, -5}, true},
		{"outside x", spatial.Vec2{10.0001, 0}, false},
		{"outside y", spatial.Vec2{0, -5.0001}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, r.Contains(tt.p))
		})
	}
}

func TestRegionContains3D(t *testing.T) {
	t.Parallel()

	c := cuboid(0, 0, 0, 20, 20, 20)
	assert.True(t, c.Contains(spatial.Vec3{10, 10, 10}))
	assert.True(t, c.Contains(spatial.Vec3{20, 20, 20}))
	assert.False(t, c.Contains(spatial.Vec3{25, 25, 25}))
	assert.False(t, c.Contains(spatial.Vec3{0, 0, 20.5}))
}

func TestRegionContainsNaN(t *testing.T) {
	t.Parallel()

	r := rect(0, 0, 10, 10)
	assert.False(t, r.Contains(spatial.Vec2{math.NaN(), 0}))
	assert.False(t, r.Contains(spatial.Vec2{0, math.NaN()}))

	tr, err := spatial.NewQuadtree(r, 1)
	assert.NoError(t, err)
	assert.False(t, tr.Insert(spatial.Vec2{math.NaN(), 1}))
	assert.Equal(t, 0, tr.Len())
}

func TestRegionIntersects(t *testing.T) {
	t.Parallel()

	a := rect(0, 0, 10, 10)
	tests := []struct {
		name string
		b    spatial.Region[spatial.Vec2]
		want bool
	}{
		{"same", a, true},
		{"nested", rect(1, 1, 1, 1), true},
		{"enclosing", rect(0, 0, 100, 100), true},
		{"touching edge", rect(20, 0, 10, 10), true},
		{"touching corner", rect(20, 20, 10, 10), true},
		{"disjoint x", rect(21, 0, 10, 10), false},
		{"disjoint y", rect(0, -20.5, 10, 10), false},
		{"overlap on x only", rect(5, 40, 10, 10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, a.Intersects(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersects(a), "intersection must be symmetric")
		})
	}
}

func TestRegionIntersectsSymmetryRandom(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	gen := func() spatial.Region[spatial.Vec3] {
		return cuboid(rng.Float64()*100-50, rng.Float64()*100-50, rng.Float64()*100-50,
			rng.Float64()*30, rng.Float64()*30, rng.Float64()*30)
	}
	for i := 0; i < 2000; i++ {
		a, b := gen(), gen()
		assert.Equal(t, a.Intersects(b), b.Intersects(a))
	}
}

func TestVectorSliceConversion(t *testing.T) {
	t.Parallel()

	v, ok := spatial.FromSlice[spatial.Vec3]([]float64{1, 2, 3})
	assert.True(t, ok)
	assert.Equal(t, spatial.Vec3{1, 2, 3}, v)
	assert.Equal(t, []float64{1, 2, 3}, spatial.ToSlice(v))

	_, ok = spatial.FromSlice[spatial.Vec2]([]float64{1, 2, 3})
	assert.False(t, ok)
	assert.Equal(t, "(1.5,-2)", spatial.Vec2{1.5, -2}.String())
}
