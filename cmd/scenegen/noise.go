package main

import (
	"math"
	"math/rand"
)

// simplex is seeded 2D simplex noise.
type simplex struct {
	perm [512]int
}

func newSimplex(seed int64) *simplex {
	r := rand.New(rand.NewSource(seed))
	n := &simplex{}
	for i, v := range r.Perm(256) {
		n.perm[i] = v
		n.perm[i+256] = v
	}
	return n
}

const (
	skew   = 0.3660254037844386  // (sqrt(3) - 1) / 2
	unskew = 0.21132486540518713 // (3 - sqrt(3)) / 6
)

func gradDot(hash int, x, y float64) float64 {
	h := hash & 7
	u, v := x, y
	if h >= 4 {
		u, v = y, x
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}

func (n *simplex) corner(hash int, x, y float64) float64 {
	t := 0.5 - x*x - y*y
	if t <= 0 {
		return 0
	}
	t *= t
	return t * t * gradDot(hash, x, y)
}

// at returns noise in [-1, 1].
func (n *simplex) at(x, y float64) float64 {
	s := (x + y) * skew
	i, j := math.Floor(x+s), math.Floor(y+s)
	t := (i + j) * unskew
	x0, y0 := x-(i-t), y-(j-t)

	i1, j1 := 0, 1
	if x0 > y0 {
		i1, j1 = 1, 0
	}
	x1, y1 := x0-float64(i1)+unskew, y0-float64(j1)+unskew
	x2, y2 := x0-1+2*unskew, y0-1+2*unskew

	ii, jj := int(i)&255, int(j)&255
	p := &n.perm
	sum := n.corner(p[ii+p[jj]], x0, y0) +
		n.corner(p[ii+i1+p[jj+j1]], x1, y1) +
		n.corner(p[ii+1+p[jj+1]], x2, y2)
	return 70 * sum
}

// fbm sums octaves of noise at doubling frequency and halving amplitude,
// normalized to [0, 1].
func (n *simplex) fbm(x, y, freq float64, octaves int) float64 {
	var total, norm float64
	amp := 1.0
	for o := 0; o < octaves; o++ {
		total += n.at(x*freq, y*freq) * amp
		norm += amp
		freq *= 2
		amp /= 2
	}
	return (total/norm + 1) / 2
}
