package gen

import "math"

// PermutationSize is the length of the noise permutation table. Must be a power of two.
const PermutationSize = 512

// gradients are the unit gradient vectors of the 2D lattice.
var gradients = [8][2]float64{
	{1, 0},
	{-1, 0},
	{0, -1},
	{0, 1},
	{math.Sqrt2 / 2, math.Sqrt2 / 2},
	{math.Sqrt2 / 2, -math.Sqrt2 / 2},
	{-math.Sqrt2 / 2, math.Sqrt2 / 2},
	{-math.Sqrt2 / 2, -math.Sqrt2 / 2},
}

// Noise produces deterministic 2D gradient noise from a seed.
type Noise struct {
	perm [PermutationSize * 2]int
}

// NewNoise creates a noise source with a permutation table shuffled from seed.
func NewNoise(seed int64) *Noise {
	n := &Noise{}

	var p [PermutationSize]int
	for i := range p {
		p[i] = i
	}

	// Fisher-Yates shuffle with seed-derived random.
	s := seed
	for i := PermutationSize - 1; i > 0; i-- {
		s = s*6364136223846793005 + 1442695040888963407 // LCG
		j := int((s>>33)&0x7FFFFFFF) % (i + 1)
		p[i], p[j] = p[j], p[i]
	}

	// Double the table so hash sums never need wrapping.
	for i := range n.perm {
		n.perm[i] = p[i&(PermutationSize-1)]
	}
	return n
}

// Noise2D returns gradient noise at (x, y). The result lies in
// [-sqrt(2)/2, sqrt(2)/2] and is zero on integer lattice points.
func (n *Noise) Noise2D(x, y float64) float64 {
	x0 := fastFloor(x)
	y0 := fastFloor(y)
	fx := x - float64(x0)
	fy := y - float64(y0)

	u := fade(fx)
	v := fade(fy)

	return lerp(
		lerp(n.grad(x0, y0, fx, fy), n.grad(x0+1, y0, fx-1, fy), u),
		lerp(n.grad(x0, y0+1, fx, fy-1), n.grad(x0+1, y0+1, fx-1, fy-1), u),
		v,
	)
}

func (n *Noise) hash(x, y int) int {
	const m = PermutationSize - 1
	return n.perm[n.perm[x&m]+y&m]
}

func (n *Noise) grad(x, y int, dx, dy float64) float64 {
	g := gradients[n.hash(x, y)%len(gradients)]
	return g[0]*dx + g[1]*dy
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return (1-t)*a + t*b
}

func fastFloor(x float64) int {
	xi := int(x)
	if x < float64(xi) {
		return xi - 1
	}
	return xi
}
