package render

import (
	"math"
	"strconv"
	"strings"
)

// Zoom limits shared with assets/viewport.js.
const (
	MinScale = 0.1
	MaxScale = 40.0
)

// View is the affine view matrix applied to the chart: uniform scale K
// followed by translation (TX, TY). Document point p maps to screen point
// K*p + T.
//
// Every method is total and returns a new View; the embedded script applies
// the same arithmetic in the browser.
type View struct {
	K, TX, TY float64
}

// Identity is the initial view.
func Identity() View {
	return View{K: 1}
}

// ZoomAt multiplies the scale by factor while keeping the document point
// under screen position (px, py) fixed. The resulting scale is clamped to
// [MinScale, MaxScale]; non-positive or non-finite factors leave v unchanged.
func (v View) ZoomAt(px, py, factor float64) View {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return v
	}
	k := clamp(v.K*factor, MinScale, MaxScale)
	if k == v.K {
		return v
	}
	r := k / v.K
	return View{
		K:  k,
		TX: px - (px-v.TX)*r,
		TY: py - (py-v.TY)*r,
	}
}

// PanBy translates the view by a screen-space delta.
func (v View) PanBy(dx, dy float64) View {
	v.TX += dx
	v.TY += dy
	return v
}

// Apply maps a document point to screen space.
func (v View) Apply(x, y float64) (float64, float64) {
	return v.K*x + v.TX, v.K*y + v.TY
}

// Invert maps a screen point back to document space.
func (v View) Invert(sx, sy float64) (float64, float64) {
	return (sx - v.TX) / v.K, (sy - v.TY) / v.K
}

// Matrix renders v as an SVG transform attribute value.
func (v View) Matrix() string {
	var b strings.Builder
	b.WriteString("matrix(")
	for i, f := range []float64{v.K, 0, 0, v.K, v.TX, v.TY} {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(num(f))
	}
	b.WriteByte(')')
	return b.String()
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// num formats a coordinate with at most two decimals and no trailing zeros.
func num(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}
