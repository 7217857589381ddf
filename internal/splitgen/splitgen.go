// Package splitgen synthesizes item streams by recursively cutting a bin
// sized cuboid into sub-cuboids. The resulting leaves are, by
// construction, a set of items that packs the bin perfectly, which makes
// the streams useful for exercising and benchmarking packing policies.
//
// Randomness is always drawn from an injected *rand.Rand so that streams
// are reproducible and independent generators never interfere.
package splitgen

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/kittfreight/deeppack/internal/geometry"
	"github.com/kittfreight/deeppack/internal/space"
)

// Params bound the generated sub-cuboids and drive the split decisions.
type Params struct {
	Size    geometry.Size // cuboid being cut, normally the bin size
	MinSize geometry.Size // lower bound per axis for any leaf
	MaxSize geometry.Size // upper bound per axis; larger extents always split
	P       float64       // probability of an optional split per axis
	PDecay  float64       // multiplied into P after every split
	Shuffle bool          // shuffle leaves after sorting
}

// sortSplits orders leaves bottom-most first, then nearest to the origin,
// so downstream consumption is deterministic.
func sortSplits(splits []geometry.Cuboid) {
	sort.SliceStable(splits, func(i, j int) bool {
		a, b := splits[i], splits[j]
		if a.Bottom() != b.Bottom() {
			return a.Bottom() < b.Bottom()
		}
		da := math.Sqrt(float64(a.X*a.X + a.Y*a.Y + a.Z*a.Z))
		db := math.Sqrt(float64(b.X*b.X + b.Y*b.Y + b.Z*b.Z))
		return da < db
	})
}

// axisExtent reads one axis of a size by index (0=w, 1=h, 2=d).
func axisExtent(s geometry.Size, axis int) int {
	switch axis {
	case 0:
		return s.W
	case 1:
		return s.H
	default:
		return s.D
	}
}

func withAxis(s geometry.Size, axis, v int) geometry.Size {
	switch axis {
	case 0:
		s.W = v
	case 1:
		s.H = v
	default:
		s.D = v
	}
	return s
}

// GuillotineCut recursively bisects the cuboid with full-plane cuts.
// An axis longer than MaxSize always splits; an axis at least twice
// MinSize splits with probability P, which decays per recursion level.
// Leaves are returned sorted (and optionally shuffled).
func GuillotineCut(rng *rand.Rand, params Params) []geometry.Cuboid {
	root := geometry.NewCuboid(0, 0, 0, params.Size.W, params.Size.H, params.Size.D)
	splits := guillotine(rng, root, params.MinSize, params.MaxSize, params.P, params.PDecay)
	sortSplits(splits)
	if params.Shuffle {
		rng.Shuffle(len(splits), func(i, j int) {
			splits[i], splits[j] = splits[j], splits[i]
		})
	}
	return splits
}

func guillotine(rng *rand.Rand, c geometry.Cuboid, minSize, maxSize geometry.Size, p, decay float64) []geometry.Cuboid {
	size := c.Size()

	var axes []int
	for axis := 0; axis < 3; axis++ {
		ext := axisExtent(size, axis)
		must := ext > axisExtent(maxSize, axis)
		randSplit := axisExtent(minSize, axis)*2 <= ext && rng.Float64() < p
		if must || randSplit {
			axes = append(axes, axis)
		}
	}

	if len(axes) == 0 {
		return []geometry.Cuboid{c}
	}

	axis := axes[rng.Intn(len(axes))]
	low := axisExtent(minSize, axis)
	high := axisExtent(size, axis) - low
	pivot := low + rng.Intn(high-low+1)

	aSize := withAxis(size, axis, pivot)
	bSize := withAxis(size, axis, axisExtent(size, axis)-pivot)
	bOrigin := c.Origin()
	switch axis {
	case 0:
		bOrigin.X += pivot
	case 1:
		bOrigin.Y += pivot
	default:
		bOrigin.Z += pivot
	}

	a := geometry.NewCuboid(c.X, c.Y, c.Z, aSize.W, aSize.H, aSize.D)
	b := geometry.NewCuboid(bOrigin.X, bOrigin.Y, bOrigin.Z, bSize.W, bSize.H, bSize.D)

	out := guillotine(rng, a, minSize, maxSize, p*decay, decay)
	out = append(out, guillotine(rng, b, minSize, maxSize, p*decay, decay)...)
	return out
}

// NonGuillotineCut carves the cuboid through a free-space partitioner,
// repeatedly shrinking the smallest free split, which produces cut
// patterns no sequence of full-plane cuts could. Leaves are returned
// sorted bottom-first then nearest-origin, optionally shuffled.
func NonGuillotineCut(rng *rand.Rand, params Params) ([]geometry.Cuboid, error) {
	packer := space.NewPartitioner(params.Size)
	p := params.P

	// Free splits too small to ever hold a leaf are skipped rather than
	// carved; fragments of them inherit the skip when they come up.
	dead := make(map[geometry.Cuboid]bool)

	for {
		free := packer.FreeSplits()

		pick := -1
		pickVolume := 0
		for i, f := range free {
			if dead[f] {
				continue
			}
			if pick < 0 || f.Volume() < pickVolume {
				pick = i
				pickVolume = f.Volume()
			}
		}
		if pick < 0 {
			break
		}
		split := free[pick]
		size := split.Size()

		var axes []int
		under := false
		for axis := 0; axis < 3; axis++ {
			ext := axisExtent(size, axis)
			if ext < axisExtent(params.MinSize, axis) {
				under = true
			}
			must := ext > axisExtent(params.MaxSize, axis)
			randSplit := axisExtent(params.MinSize, axis)*2 <= ext && rng.Float64() < p
			if must || randSplit {
				axes = append(axes, axis)
			}
		}

		switch {
		case len(axes) > 0 && !under:
			carved := size
			for _, axis := range axes {
				low := axisExtent(params.MinSize, axis)
				high := axisExtent(params.MaxSize, axis)
				if half := axisExtent(size, axis) / 2; half < high {
					high = half
				}
				v := low
				if high > low {
					v = low + rng.Intn(high-low)
				}
				carved = withAxis(carved, axis, v)
			}
			leaf := geometry.NewCuboid(split.X, split.Y, split.Z, carved.W, carved.H, carved.D)
			if !packer.Add(leaf) {
				return nil, fmt.Errorf("generator produced an unplaceable split %v", leaf)
			}
			p *= params.PDecay

		case !under:
			// Within bounds on every axis: keep the whole split as a leaf.
			if !packer.Add(split) {
				return nil, fmt.Errorf("generator produced an unplaceable split %v", split)
			}

		default:
			dead[split] = true
		}
	}

	splits := packer.Splits()
	sortSplits(splits)
	if params.Shuffle {
		rng.Shuffle(len(splits), func(i, j int) {
			splits[i], splits[j] = splits[j], splits[i]
		})
	}
	return splits, nil
}
