package pointcloud

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/litescript/ls-orrery/internal/scale"
)

// Shape selects the distribution of a cloud.
type Shape string

const (
	ShapeShell      Shape = "shell"
	ShapeBeltDust   Shape = "belt-dust"
	ShapeBeltMedium Shape = "belt-medium"
	ShapeBeltLarge  Shape = "belt-large"
	ShapeBeltGlow   Shape = "belt-glow"
	ShapeKuiper     Shape = "kuiper"
)

// Spec describes one point cloud. MinR and MaxR only apply to shells.
type Spec struct {
	Object string
	Shape  Shape
	Count  int
	MinR   float64
	MaxR   float64
}

// Full-quality point counts.
const (
	nearStars  = 12000
	farStars   = 6000
	beltDust   = 8000
	beltMedium = 4000
	beltLarge  = 1200
	beltGlow   = 3000
	kuiperBelt = 3000
)

// DefaultClouds returns the clouds of the default scene with counts scaled
// by the quality factor of the active preset.
func DefaultClouds(quality float64) []Spec {
	n := func(full int) int { return int(float64(full) * quality) }
	return []Spec{
		{Object: scale.ObjStarsNear, Shape: ShapeShell, Count: n(nearStars), MinR: 1200, MaxR: 36000},
		{Object: scale.ObjStarsFar, Shape: ShapeShell, Count: n(farStars), MinR: 30000, MaxR: 50000},
		{Object: scale.ObjBeltDust, Shape: ShapeBeltDust, Count: n(beltDust)},
		{Object: scale.ObjBeltMedium, Shape: ShapeBeltMedium, Count: n(beltMedium)},
		{Object: scale.ObjBeltLarge, Shape: ShapeBeltLarge, Count: n(beltLarge)},
		{Object: scale.ObjBeltGlow, Shape: ShapeBeltGlow, Count: n(beltGlow)},
		{Object: scale.ObjKuiper, Shape: ShapeKuiper, Count: n(kuiperBelt)},
	}
}

// Validate rejects negative counts, inverted shells and unknown shapes.
func (s Spec) Validate() error {
	if s.Count < 0 {
		return fmt.Errorf("cloud %q: negative count %d", s.Object, s.Count)
	}
	switch s.Shape {
	case ShapeShell:
		if s.MinR < 0 || s.MaxR < s.MinR {
			return fmt.Errorf("cloud %q: invalid shell radii %v..%v", s.Object, s.MinR, s.MaxR)
		}
	case ShapeBeltDust, ShapeBeltMedium, ShapeBeltLarge, ShapeBeltGlow, ShapeKuiper:
	default:
		return fmt.Errorf("cloud %q: unknown shape %q", s.Object, s.Shape)
	}
	return nil
}

// spread returns a value in [-w/2, w/2).
func spread(src Source, w float64) float64 {
	return (src.Float64() - 0.5) * w
}

// Generate fills a flat xyz buffer for spec. The noise field perturbs belt
// particles so they clump instead of forming a perfectly even ring.
func Generate(spec Spec, src Source, noise opensimplex.Noise) []float32 {
	pos := make([]float32, spec.Count*3)
	put := func(i int, x, y, z float64) {
		pos[i*3] = float32(x)
		pos[i*3+1] = float32(y)
		pos[i*3+2] = float32(z)
	}

	switch spec.Shape {
	case ShapeShell:
		for i := 0; i < spec.Count; i++ {
			r := spec.MinR + src.Float64()*(spec.MaxR-spec.MinR)
			th := src.Float64() * 2 * math.Pi
			ph := math.Acos(src.Float64()*2 - 1)
			sp := math.Sin(ph)
			put(i, r*sp*math.Cos(th), r*math.Cos(ph), r*sp*math.Sin(th))
		}

	case ShapeBeltDust, ShapeBeltMedium, ShapeBeltLarge:
		for i := 0; i < spec.Count; i++ {
			r := beltRadius(src)
			a := src.Float64() * 2 * math.Pi
			var y float64
			switch spec.Shape {
			case ShapeBeltDust:
				y = spread(src, 1.8) * (1 - 0.4*math.Abs(r-39)/3)
			case ShapeBeltMedium:
				y = spread(src, 2.2) * (1 - 0.3*math.Abs(r-39)/3)
			default:
				y = spread(src, 2.8)
			}
			r += clump(noise, a, r)
			put(i, math.Cos(a)*r, y, math.Sin(a)*r)
		}

	case ShapeBeltGlow:
		for i := 0; i < spec.Count; i++ {
			r := 36.5 + src.Float64()*5
			a := src.Float64() * 2 * math.Pi
			put(i, math.Cos(a)*r, spread(src, 1.0), math.Sin(a)*r)
		}

	case ShapeKuiper:
		for i := 0; i < spec.Count; i++ {
			r := 95 + src.Float64()*40
			a := src.Float64() * 2 * math.Pi
			y := spread(src, 3) + 0.6*noise.Eval2(math.Cos(a)*2, math.Sin(a)*2)
			put(i, math.Cos(a)*r, y, math.Sin(a)*r)
		}
	}
	return pos
}

// beltRadius samples the main belt between 36 and 42 units with a density
// peak around 39 and thinned Kirkwood gaps near 37.5 and 40.5.
func beltRadius(src Source) float64 {
	r := 36 + src.Float64()*6
	if math.Abs(r-37.5) < 0.25 || math.Abs(r-40.5) < 0.2 {
		r += (src.Float64() - 0.5) * 1.2
	}
	if src.Float64() < 0.3 {
		r = 38.2 + src.Float64()*1.6
	}
	return r
}

// clump is a small radial offset from the noise field, at most ±0.25.
func clump(noise opensimplex.Noise, angle, r float64) float64 {
	return 0.25 * noise.Eval2(math.Cos(angle)*3, math.Sin(angle)*3+r*0.1)
}
