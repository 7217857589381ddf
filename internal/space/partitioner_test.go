package space

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittfreight/deeppack/internal/geometry"
)

func bin10() *Partitioner {
	return NewPartitioner(geometry.Size{W: 10, H: 10, D: 10})
}

func TestFit_RejectsOutOfBounds(t *testing.T) {
	p := NewPartitioner(geometry.Size{W: 5, H: 5, D: 5})

	assert.False(t, p.Fit(geometry.NewCuboid(0, 0, 0, 6, 5, 5)), "item exceeds bin on one axis")
	assert.False(t, p.Fit(geometry.NewCuboid(3, 0, 0, 3, 3, 3)), "placement pokes out of the bin")
	assert.True(t, p.Fit(geometry.NewCuboid(0, 0, 0, 5, 5, 5)), "exact fill is allowed")
}

func TestAdd_RejectsOverlap(t *testing.T) {
	p := bin10()

	require.True(t, p.Add(geometry.NewCuboid(0, 0, 0, 4, 4, 4)))
	assert.False(t, p.Add(geometry.NewCuboid(2, 2, 2, 4, 4, 4)), "overlapping add must be rejected")
	assert.True(t, p.Add(geometry.NewCuboid(4, 0, 0, 4, 4, 4)), "face-touching add is fine")
	assert.Equal(t, 2, p.ItemCount())
}

func TestAdd_UpdatesHeightMap(t *testing.T) {
	p := bin10()

	require.True(t, p.Add(geometry.NewCuboid(0, 0, 0, 3, 5, 2)))
	hm := p.HeightMap()
	assert.Equal(t, 5, hm[0][0])
	assert.Equal(t, 5, hm[1][2])
	assert.Equal(t, 0, hm[2][0], "outside the footprint stays at floor level")
	assert.Equal(t, 0, hm[0][3])
}

func TestSpaceUtilization_Empty(t *testing.T) {
	p := bin10()

	util, err := p.SpaceUtilization()
	require.NoError(t, err)
	assert.Zero(t, util)
}

func TestSpaceUtilization_AfterAdds(t *testing.T) {
	p := bin10()

	require.True(t, p.Add(geometry.NewCuboid(0, 0, 0, 4, 4, 4)))
	require.True(t, p.Add(geometry.NewCuboid(4, 0, 0, 4, 4, 4)))

	util, err := p.SpaceUtilization()
	require.NoError(t, err)
	assert.InDelta(t, 128.0/1000.0, util, 1e-12)
}

func TestReset_RestoresEmptyState(t *testing.T) {
	p := bin10()
	require.True(t, p.Add(geometry.NewCuboid(0, 0, 0, 4, 4, 4)))

	p.Reset()
	p.Reset() // idempotent

	assert.Zero(t, p.ItemCount())
	require.Len(t, p.FreeSplits(), 1)
	assert.Equal(t, geometry.NewCuboid(0, 0, 0, 10, 10, 10), p.FreeSplits()[0])
	util, err := p.SpaceUtilization()
	require.NoError(t, err)
	assert.Zero(t, util)
}

// randomBox draws a box with extents in [1, 5] positioned inside the bin.
func randomBox(rng *rand.Rand, bin geometry.Size) geometry.Cuboid {
	w := 1 + rng.Intn(5)
	h := 1 + rng.Intn(5)
	d := 1 + rng.Intn(5)
	x := rng.Intn(bin.W - w + 1)
	y := rng.Intn(bin.H - h + 1)
	z := rng.Intn(bin.D - d + 1)
	return geometry.NewCuboid(x, y, z, w, h, d)
}

func TestProperty_InvariantsHoldUnderRandomAdds(t *testing.T) {
	binSize := geometry.Size{W: 12, H: 12, D: 12}
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 25; trial++ {
		p := NewPartitioner(binSize)

		for attempt := 0; attempt < 60; attempt++ {
			box := randomBox(rng, binSize)

			// Both feasibility tests must agree before the state changes.
			outer := geometry.NewCuboid(0, 0, 0, binSize.W, binSize.H, binSize.D)
			if outer.Contains(box) {
				require.Equal(t, p.fitAgainstPlaced(box), p.fitAgainstFree(box),
					"trial %d attempt %d: dual fit tests diverge for %v", trial, attempt, box)
			}

			p.Add(box)

			_, err := p.SpaceUtilization()
			require.NoError(t, err, "trial %d attempt %d: volume conservation broken", trial, attempt)
		}

		// No pair of placed boxes may overlap, and all must sit inside the bin.
		placed := p.Splits()
		outer := geometry.NewCuboid(0, 0, 0, binSize.W, binSize.H, binSize.D)
		for i, a := range placed {
			assert.True(t, outer.Contains(a))
			for _, b := range placed[i+1:] {
				assert.False(t, a.Intersects(b, false), "placed boxes %v and %v overlap", a, b)
			}
		}
	}
}

func TestPlaceableCoords_EmptyBin(t *testing.T) {
	p := bin10()

	cands := p.PlaceableCoords(geometry.Size{W: 4, H: 4, D: 4})
	require.Len(t, cands, 1)
	assert.Equal(t, geometry.Point{X: 0, Y: 0, Z: 0}, cands[0].Pos)
}

func TestPlaceableCoords_ItemTooLarge(t *testing.T) {
	p := NewPartitioner(geometry.Size{W: 5, H: 5, D: 5})

	assert.Empty(t, p.PlaceableCoords(geometry.Size{W: 6, H: 5, D: 5}))
}

func TestPlaceableCoords_StacksOnTopWithFullSupport(t *testing.T) {
	p := bin10()
	require.True(t, p.Add(geometry.NewCuboid(0, 0, 0, 4, 4, 4)))

	cands := p.PlaceableCoords(geometry.Size{W: 4, H: 4, D: 4})

	var tops, floors int
	for _, c := range cands {
		switch c.Pos.Y {
		case 4:
			tops++
			assert.Equal(t, geometry.Point{X: 0, Y: 4, Z: 0}, c.Pos)
		case 0:
			floors++
		default:
			t.Fatalf("unexpected landing height %d", c.Pos.Y)
		}
	}
	assert.Equal(t, 1, tops, "exactly one fully supported stacking position")
	assert.NotZero(t, floors, "floor positions beside the box must remain")
}

func TestPlaceableCoords_RejectsOverhang(t *testing.T) {
	p := bin10()
	// A 3-wide pedestal cannot majority-support an 8-wide item: only
	// 3/8 of the footprint sits at the top height.
	require.True(t, p.Add(geometry.NewCuboid(0, 0, 0, 3, 4, 10)))

	for _, c := range p.PlaceableCoords(geometry.Size{W: 8, H: 2, D: 10}) {
		assert.NotEqual(t, 4, c.Pos.Y, "overhanging placement on the pedestal must be filtered out")
	}
}

func TestReplay_ReproducesUtilization(t *testing.T) {
	binSize := geometry.Size{W: 12, H: 12, D: 12}
	rng := rand.New(rand.NewSource(21))

	live := NewPartitioner(binSize)
	var emitted []geometry.Cuboid
	for i := 0; i < 80; i++ {
		box := randomBox(rng, binSize)
		if live.Add(box) {
			emitted = append(emitted, box)
		}
	}
	require.NotEmpty(t, emitted)

	replayed := NewPartitioner(binSize)
	for _, box := range emitted {
		require.True(t, replayed.Add(box), "replayed placement %v must be accepted", box)
	}

	liveUtil, err := live.SpaceUtilization()
	require.NoError(t, err)
	replayUtil, err := replayed.SpaceUtilization()
	require.NoError(t, err)
	assert.Equal(t, liveUtil, replayUtil)
}
