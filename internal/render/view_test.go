package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func TestView_ZoomAtKeepsAnchorFixed(t *testing.T) {
	views := []View{
		Identity(),
		{K: 2.5, TX: -120, TY: 40},
		{K: 0.3, TX: 15.5, TY: -7},
	}
	anchors := [][2]float64{{0, 0}, {600, 400}, {-30, 1200}}
	factors := []float64{1.1, 1 / 1.1, 3, 0.5}

	for _, v := range views {
		for _, a := range anchors {
			for _, f := range factors {
				before := [2]float64{}
				before[0], before[1] = v.Invert(a[0], a[1])

				z := v.ZoomAt(a[0], a[1], f)
				after := [2]float64{}
				after[0], after[1] = z.Invert(a[0], a[1])

				assert.InDelta(t, before[0], after[0], 1e-6, "view=%+v anchor=%v factor=%v", v, a, f)
				assert.InDelta(t, before[1], after[1], 1e-6, "view=%+v anchor=%v factor=%v", v, a, f)
			}
		}
	}
}

func TestView_ZoomClamps(t *testing.T) {
	v := Identity()
	for i := 0; i < 100; i++ {
		v = v.ZoomAt(10, 10, 2)
	}
	assert.Equal(t, MaxScale, v.K)

	for i := 0; i < 200; i++ {
		v = v.ZoomAt(10, 10, 0.5)
	}
	assert.Equal(t, MinScale, v.K)
}

func TestView_ZoomIgnoresBadFactors(t *testing.T) {
	v := View{K: 2, TX: 3, TY: 4}
	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.Equal(t, v, v.ZoomAt(5, 5, f))
	}
}

func TestView_PanIsTranslation(t *testing.T) {
	v := View{K: 2, TX: 10, TY: 20}.PanBy(-5, 7.5)
	assert.Equal(t, View{K: 2, TX: 5, TY: 27.5}, v)

	x, y := v.Apply(1, 1)
	assert.InDelta(t, 7.0, x, eps)
	assert.InDelta(t, 29.5, y, eps)
}

func TestView_ApplyInvertRoundTrip(t *testing.T) {
	v := View{K: 3.7, TX: -41.2, TY: 19}
	for _, p := range [][2]float64{{0, 0}, {1200, 800}, {-5, 3.25}} {
		sx, sy := v.Apply(p[0], p[1])
		x, y := v.Invert(sx, sy)
		assert.InDelta(t, p[0], x, eps)
		assert.InDelta(t, p[1], y, eps)
	}
}

func TestView_Matrix(t *testing.T) {
	assert.Equal(t, "matrix(1 0 0 1 0 0)", Identity().Matrix())
	assert.Equal(t, "matrix(1.5 0 0 1.5 -20.25 3.33)", View{K: 1.5, TX: -20.25, TY: 3.333}.Matrix())
}
