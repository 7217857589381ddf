// Package space implements the per-bin free-space partitioner: the set of
// placed boxes, the maximal free cuboids left between them, and a height
// map over the bin floor. It is the 3D counterpart of a maximal-rectangles
// packer, with a volume-conservation invariant that ties the three
// structures together.
package space

import (
	"fmt"

	"github.com/kittfreight/deeppack/internal/geometry"
)

// Candidate is a feasible placement position found by PlaceableCoords,
// together with the free split that supports the enumeration.
type Candidate struct {
	Pos     geometry.Point
	Support geometry.Cuboid
}

// Partitioner tracks occupancy of a single bin. It is created empty,
// mutated only through Add, and replaced wholesale when a bin is retired.
// Not safe for concurrent use; each instance is owned by one run loop.
type Partitioner struct {
	size       geometry.Size
	splits     []geometry.Cuboid // placed boxes, append-only
	freeSplits []geometry.Cuboid // maximal free cuboids, pairwise order-stable
	heightMap  [][]int           // [z][x] -> max occupied height in that column
}

// NewPartitioner returns an empty partitioner for a bin of the given size.
func NewPartitioner(size geometry.Size) *Partitioner {
	p := &Partitioner{size: size}
	p.Reset()
	return p
}

// Reset discards all placements and restores the single all-free split.
func (p *Partitioner) Reset() {
	p.splits = nil
	p.freeSplits = []geometry.Cuboid{geometry.NewCuboid(0, 0, 0, p.size.W, p.size.H, p.size.D)}
	p.heightMap = make([][]int, p.size.D)
	for z := range p.heightMap {
		p.heightMap[z] = make([]int, p.size.W)
	}
}

// Size returns the bin extents.
func (p *Partitioner) Size() geometry.Size {
	return p.size
}

// Splits returns a copy of the placed boxes in placement order.
func (p *Partitioner) Splits() []geometry.Cuboid {
	out := make([]geometry.Cuboid, len(p.splits))
	copy(out, p.splits)
	return out
}

// FreeSplits returns a copy of the current maximal free cuboids in their
// stable internal order.
func (p *Partitioner) FreeSplits() []geometry.Cuboid {
	out := make([]geometry.Cuboid, len(p.freeSplits))
	copy(out, p.freeSplits)
	return out
}

// ItemCount returns the number of placed boxes.
func (p *Partitioner) ItemCount() int {
	return len(p.splits)
}

// HeightMap returns a copy of the [z][x] height map.
func (p *Partitioner) HeightMap() [][]int {
	out := make([][]int, len(p.heightMap))
	for z, row := range p.heightMap {
		out[z] = make([]int, len(row))
		copy(out[z], row)
	}
	return out
}

// Fit reports whether the cuboid can be placed without leaving the bin or
// overlapping a placed box. Two equivalent tests exist: no placed split
// strictly intersects the cuboid, or some free split fully contains it.
// Whichever list is currently shorter is consulted; the invariant makes
// the answers identical (covered by property tests in this package).
func (p *Partitioner) Fit(c geometry.Cuboid) bool {
	outer := geometry.NewCuboid(0, 0, 0, p.size.W, p.size.H, p.size.D)
	if !outer.Contains(c) {
		return false
	}
	if len(p.splits) < len(p.freeSplits) {
		return p.fitAgainstPlaced(c)
	}
	return p.fitAgainstFree(c)
}

// fitAgainstPlaced accepts the cuboid when no placed box strictly
// intersects it. Bounds are assumed already checked.
func (p *Partitioner) fitAgainstPlaced(c geometry.Cuboid) bool {
	for _, s := range p.splits {
		if s.Intersects(c, false) {
			return false
		}
	}
	return true
}

// fitAgainstFree accepts the cuboid when some free split contains it.
func (p *Partitioner) fitAgainstFree(c geometry.Cuboid) bool {
	for _, f := range p.freeSplits {
		if f.Contains(c) {
			return true
		}
	}
	return false
}

// Add places the cuboid. It returns false when Fit rejects it; otherwise
// it appends to the placed list, raises the height map over the footprint,
// and rebuilds the free partition: every free split intersecting the new
// box is replaced by its maximal remainder pieces, then pieces contained
// in another free split are pruned. Untouched free splits keep their
// relative order so downstream enumeration stays deterministic.
func (p *Partitioner) Add(c geometry.Cuboid) bool {
	if !p.Fit(c) {
		return false
	}

	p.splits = append(p.splits, c)

	top := c.Top()
	for z := c.Back(); z < c.Front(); z++ {
		for x := c.Left(); x < c.Right(); x++ {
			if p.heightMap[z][x] < top {
				p.heightMap[z][x] = top
			}
		}
	}

	var kept []geometry.Cuboid
	var fresh []geometry.Cuboid
	for _, f := range p.freeSplits {
		if f.Intersects(c, false) {
			fresh = append(fresh, f.Split(c, true)...)
		} else {
			kept = append(kept, f)
		}
	}

	// Only fragments of overlapped splits can be redundant: against each
	// other, or against an untouched split. Untouched splits never shrink,
	// so they need no containment check among themselves.
	nKept := len(kept)
	for i, piece := range fresh {
		contained := false
		for j, other := range fresh {
			// Two identical fragments cannot occur, so one direction
			// of the containment test is enough.
			if i != j && other.Contains(piece) {
				contained = true
				break
			}
		}
		if !contained {
			for j := 0; j < nKept; j++ {
				if kept[j].Contains(piece) {
					contained = true
					break
				}
			}
		}
		if !contained {
			kept = append(kept, piece)
		}
	}

	p.freeSplits = kept
	return true
}

// Utilization returns used volume over bin volume without running the
// conservation cross-check. Cheap; safe to call in tight loops.
func (p *Partitioner) Utilization() float64 {
	used := 0
	for _, s := range p.splits {
		used += s.Volume()
	}
	return float64(used) / float64(p.size.Volume())
}

// SpaceUtilization returns used volume over bin volume and verifies the
// conservation invariant: used volume plus the volume of the disjointified
// free splits must equal the bin volume exactly. A mismatch means the
// partition is corrupt and the run must abort.
func (p *Partitioner) SpaceUtilization() (float64, error) {
	used := 0
	for _, s := range p.splits {
		used += s.Volume()
	}

	// The free splits are maximal and overlap each other; disjointify by
	// splitting every new piece against all previously accepted ones.
	var disjoint []geometry.Cuboid
	for _, f := range p.freeSplits {
		pieces := []geometry.Cuboid{f}
		for _, accepted := range disjoint {
			var next []geometry.Cuboid
			for _, piece := range pieces {
				next = append(next, piece.Split(accepted, false)...)
			}
			pieces = next
		}
		disjoint = append(disjoint, pieces...)
	}

	free := 0
	for _, f := range disjoint {
		free += f.Volume()
	}

	binVolume := p.size.Volume()
	if used+free != binVolume {
		return 0, fmt.Errorf("space accounting mismatch: used %d + free %d != bin %d", used, free, binVolume)
	}
	return float64(used) / float64(binVolume), nil
}

// PlaceableCoords enumerates the feasible positions for an item of the
// given size. Candidate columns come from free splits that reach the bin
// ceiling and are large enough for the item; the landing height is the
// maximum height-map value under the footprint, accepted only when more
// than half of the footprint cells already sit at exactly that height
// (majority support, the anti-overhang rule). Duplicate (x,z) columns are
// collapsed keeping the first supporting split, in first-seen order.
func (p *Partitioner) PlaceableCoords(size geometry.Size) []Candidate {
	type column struct{ x, z int }
	seen := make(map[column]bool)
	var cols []column
	support := make(map[column]geometry.Cuboid)

	for _, f := range p.freeSplits {
		if f.Top() < p.size.H || !f.Fits(size) {
			continue
		}
		key := column{x: f.Left(), z: f.Back()}
		if !seen[key] {
			seen[key] = true
			cols = append(cols, key)
			support[key] = f
		}
	}

	var out []Candidate
	for _, col := range cols {
		y := 0
		for z := col.z; z < col.z+size.D; z++ {
			for x := col.x; x < col.x+size.W; x++ {
				if p.heightMap[z][x] > y {
					y = p.heightMap[z][x]
				}
			}
		}

		level := 0
		for z := col.z; z < col.z+size.D; z++ {
			for x := col.x; x < col.x+size.W; x++ {
				if p.heightMap[z][x] == y {
					level++
				}
			}
		}

		if float64(level)/float64(size.W*size.D) > 0.5 {
			out = append(out, Candidate{
				Pos:     geometry.Point{X: col.x, Y: y, Z: col.z},
				Support: support[col],
			})
		}
	}
	return out
}
