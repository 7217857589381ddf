package splitgen

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittfreight/deeppack/internal/geometry"
)

func testParams() Params {
	return Params{
		Size:    geometry.Size{W: 32, H: 32, D: 32},
		MinSize: geometry.Size{W: 6, H: 6, D: 6},
		MaxSize: geometry.Size{W: 12, H: 12, D: 12},
		P:       0.3,
		PDecay:  0.9,
	}
}

func TestGuillotineCut_LeavesTileTheBin(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	splits := GuillotineCut(rng, testParams())

	require.NotEmpty(t, splits)

	total := 0
	outer := geometry.NewCuboid(0, 0, 0, 32, 32, 32)
	for i, s := range splits {
		total += s.Volume()
		assert.True(t, outer.Contains(s))
		assert.LessOrEqual(t, s.W, 12)
		assert.LessOrEqual(t, s.H, 12)
		assert.LessOrEqual(t, s.D, 12)
		for _, other := range splits[i+1:] {
			assert.False(t, s.Intersects(other, false), "leaves %v and %v overlap", s, other)
		}
	}
	assert.Equal(t, outer.Volume(), total, "guillotine leaves must tile the bin exactly")
}

func TestNonGuillotineCut_LeavesAreDisjointAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	splits, err := NonGuillotineCut(rng, testParams())
	require.NoError(t, err)
	require.NotEmpty(t, splits)

	outer := geometry.NewCuboid(0, 0, 0, 32, 32, 32)
	for i, s := range splits {
		assert.True(t, outer.Contains(s))
		assert.LessOrEqual(t, s.W, 12)
		assert.LessOrEqual(t, s.H, 12)
		assert.LessOrEqual(t, s.D, 12)
		assert.GreaterOrEqual(t, s.W, 6)
		assert.GreaterOrEqual(t, s.H, 6)
		assert.GreaterOrEqual(t, s.D, 6)
		for _, other := range splits[i+1:] {
			assert.False(t, s.Intersects(other, false))
		}
	}
}

func TestNonGuillotineCut_SameSeedSameStream(t *testing.T) {
	a, err := NonGuillotineCut(rand.New(rand.NewSource(42)), testParams())
	require.NoError(t, err)
	b, err := NonGuillotineCut(rand.New(rand.NewSource(42)), testParams())
	require.NoError(t, err)

	assert.Equal(t, a, b, "identical seeds must reproduce the identical leaf sequence")
}

func TestNonGuillotineCut_SortOrder(t *testing.T) {
	params := testParams()
	params.Shuffle = false
	splits, err := NonGuillotineCut(rand.New(rand.NewSource(3)), params)
	require.NoError(t, err)

	for i := 1; i < len(splits); i++ {
		assert.LessOrEqual(t, splits[i-1].Bottom(), splits[i].Bottom(),
			"leaves must come out lowest-first")
	}
}

func TestGuillotineCut_ShuffleKeepsLeafSet(t *testing.T) {
	params := testParams()

	plain := GuillotineCut(rand.New(rand.NewSource(9)), params)

	params.Shuffle = true
	shuffled := GuillotineCut(rand.New(rand.NewSource(9)), params)

	assert.ElementsMatch(t, plain, shuffled, "shuffling must only reorder the leaves")
}
