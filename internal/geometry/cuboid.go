// Package geometry provides the axis-aligned cuboid math the packing
// engine is built on: overlap and containment tests, splitting, and
// size-fit checks. Coordinates and extents are integers in engine units.
package geometry

import "fmt"

// Size is a (width, height, depth) extent triple.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
	D int `json:"d"`
}

// Volume returns W*H*D.
func (s Size) Volume() int {
	return s.W * s.H * s.D
}

// Point is a position in engine space. Y is the vertical axis.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Cuboid is an axis-aligned box with origin at the (left, bottom, back)
// corner. Cuboids are plain values and are copied freely.
type Cuboid struct {
	X, Y, Z int
	W, H, D int
}

// NewCuboid builds a cuboid from origin and extents.
func NewCuboid(x, y, z, w, h, d int) Cuboid {
	return Cuboid{X: x, Y: y, Z: z, W: w, H: h, D: d}
}

func (c Cuboid) Left() int   { return c.X }
func (c Cuboid) Right() int  { return c.X + c.W }
func (c Cuboid) Bottom() int { return c.Y }
func (c Cuboid) Top() int    { return c.Y + c.H }
func (c Cuboid) Back() int   { return c.Z }
func (c Cuboid) Front() int  { return c.Z + c.D }

// Volume returns the enclosed volume.
func (c Cuboid) Volume() int {
	return c.W * c.H * c.D
}

// Size returns the extents of the cuboid.
func (c Cuboid) Size() Size {
	return Size{W: c.W, H: c.H, D: c.D}
}

// Origin returns the (left, bottom, back) corner.
func (c Cuboid) Origin() Point {
	return Point{X: c.X, Y: c.Y, Z: c.Z}
}

func (c Cuboid) String() string {
	return fmt.Sprintf("Cuboid(%d, %d, %d, %d, %d, %d)", c.X, c.Y, c.Z, c.W, c.H, c.D)
}

// Intersects reports whether c and other overlap on all three axes.
// With edge=false the test is strict (touching faces do not count as an
// overlap); with edge=true shared faces and edges count too. The strict
// form is the one used for placement legality.
func (c Cuboid) Intersects(other Cuboid, edge bool) bool {
	if edge {
		return c.Left() <= other.Right() && c.Right() >= other.Left() &&
			c.Back() <= other.Front() && c.Front() >= other.Back() &&
			c.Bottom() <= other.Top() && c.Top() >= other.Bottom()
	}
	return c.Left() < other.Right() && c.Right() > other.Left() &&
		c.Back() < other.Front() && c.Front() > other.Back() &&
		c.Bottom() < other.Top() && c.Top() > other.Bottom()
}

// Contains reports whether other lies fully inside c. The comparison is
// non-strict: a cuboid contains itself.
func (c Cuboid) Contains(other Cuboid) bool {
	return c.Left() <= other.Left() && c.Right() >= other.Right() &&
		c.Back() <= other.Back() && c.Front() >= other.Front() &&
		c.Bottom() <= other.Bottom() && c.Top() >= other.Top()
}

// Split cuts c around other and returns the remainder pieces.
//
// With maximal=true it returns up to six overlapping maximal pieces, one
// per face of other that protrudes into c. This is the form used when
// updating free space: the pieces are the largest boxes still free after
// other is placed.
//
// With maximal=false it returns a gap-free, pairwise-disjoint partition
// of c minus the intersection, which is what volume accounting needs.
//
// If c and other do not strictly intersect, Split returns c unchanged.
func (c Cuboid) Split(other Cuboid, maximal bool) []Cuboid {
	if !c.Intersects(other, false) {
		return []Cuboid{c}
	}

	var out []Cuboid

	if maximal {
		if c.Left() < other.Left() {
			out = append(out, Cuboid{c.X, c.Y, c.Z, other.Left() - c.Left(), c.H, c.D})
		}
		if c.Right() > other.Right() {
			out = append(out, Cuboid{other.Right(), c.Y, c.Z, c.Right() - other.Right(), c.H, c.D})
		}
		if c.Bottom() < other.Bottom() {
			out = append(out, Cuboid{c.X, c.Bottom(), c.Z, c.W, other.Bottom() - c.Bottom(), c.D})
		}
		if c.Top() > other.Top() {
			out = append(out, Cuboid{c.X, other.Top(), c.Z, c.W, c.Top() - other.Top(), c.D})
		}
		if c.Back() < other.Back() {
			out = append(out, Cuboid{c.X, c.Y, c.Back(), c.W, c.H, other.Back() - c.Back()})
		}
		if c.Front() > other.Front() {
			out = append(out, Cuboid{c.X, c.Y, other.Front(), c.W, c.H, c.Front() - other.Front()})
		}
		return out
	}

	// Disjoint form: shave each protruding slab off and shrink the working
	// box so later slabs cannot double-count the corners.
	x, y, z := c.X, c.Y, c.Z
	w, h, d := c.W, c.H, c.D

	if c.Left() < other.Left() {
		out = append(out, Cuboid{c.Left(), y, z, other.Left() - c.Left(), h, d})
		w -= other.Left() - c.Left()
		x = other.Left()
	}
	if c.Right() > other.Right() {
		w -= c.Right() - other.Right()
		out = append(out, Cuboid{other.Right(), y, z, c.Right() - other.Right(), h, d})
	}
	if c.Bottom() < other.Bottom() {
		out = append(out, Cuboid{x, c.Bottom(), z, w, other.Bottom() - c.Bottom(), d})
		h -= other.Bottom() - c.Bottom()
		y = other.Bottom()
	}
	if c.Top() > other.Top() {
		h -= c.Top() - other.Top()
		out = append(out, Cuboid{x, other.Top(), z, w, c.Top() - other.Top(), d})
	}
	if c.Back() < other.Back() {
		out = append(out, Cuboid{x, y, c.Back(), w, h, other.Back() - c.Back()})
		d -= other.Back() - c.Back()
		z = other.Back()
	}
	if c.Front() > other.Front() {
		d -= c.Front() - other.Front()
		out = append(out, Cuboid{x, y, other.Front(), w, h, c.Front() - other.Front()})
	}
	return out
}

// Fits reports whether a box of the given size fits inside c ignoring
// position, i.e. every extent of c is at least as large as the request.
func (c Cuboid) Fits(size Size) bool {
	return c.W >= size.W && c.H >= size.H && c.D >= size.D
}
