package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittfreight/deeppack/internal/conveyor"
	"github.com/kittfreight/deeppack/internal/geometry"
	"github.com/kittfreight/deeppack/internal/model"
)

func sliceConveyor(t *testing.T, k int, triples ...[3]int) conveyor.Conveyor {
	t.Helper()
	sizes := make([]geometry.Size, len(triples))
	for i, tr := range triples {
		sizes[i] = geometry.Size{W: tr[0], H: tr[1], D: tr[2]}
	}
	c, err := conveyor.NewSlice(k, sizes)
	require.NoError(t, err)
	return c
}

func settings(binSize int) model.Settings {
	s := model.DefaultSettings()
	s.BinSize = geometry.Size{W: binSize, H: binSize, D: binSize}
	s.UseRotate = false
	return s
}

// bottomLeftIdx picks the action with minimal (top, right, front), the
// way the bottom-left heuristic would, so env tests stay deterministic
// without importing the policy package.
func bottomLeftIdx(actions []Action) int {
	best := 0
	for i, a := range actions[1:] {
		ka := [3]int{a.Pos.Y + a.Size.H, a.Pos.X + a.Size.W, a.Pos.Z + a.Size.D}
		b := actions[best]
		kb := [3]int{b.Pos.Y + b.Size.H, b.Pos.X + b.Size.W, b.Pos.Z + b.Size.D}
		if ka[0] < kb[0] || (ka[0] == kb[0] && (ka[1] < kb[1] || (ka[1] == kb[1] && ka[2] < kb[2]))) {
			best = i + 1
		}
	}
	return best
}

func TestNew_RejectsBadSettings(t *testing.T) {
	conv := sliceConveyor(t, 1, [3]int{1, 1, 1})

	s := settings(10)
	s.Lookahead = 0
	_, err := New(s, conv)
	assert.Error(t, err, "lookahead below 1 must be rejected at construction")

	s = settings(10)
	s.Bins = 3
	s.MaxBins = 2
	_, err = New(s, conv)
	assert.Error(t, err, "cap below preallocated bins must be rejected")
}

func TestScenario_TwoCubesThenSmallOne(t *testing.T) {
	// Bin 10x10x10, items (4,4,4) (4,4,4) (3,3,3), lookahead 1, no
	// rotation, single bin capped at one.
	s := settings(10)
	s.MaxBins = 1
	conv := sliceConveyor(t, 1, [3]int{4, 4, 4}, [3]int{4, 4, 4}, [3]int{3, 3, 3})

	e, err := New(s, conv)
	require.NoError(t, err)
	st, err := e.Reset()
	require.NoError(t, err)
	require.NotEmpty(t, st.Actions)

	st, res, err := e.Step(bottomLeftIdx(st.Actions))
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, 0, res.Placement.ItemSeq)

	st, res, err = e.Step(bottomLeftIdx(st.Actions))
	require.NoError(t, err)
	assert.False(t, res.Done, "the (3,3,3) item is still pending")
	assert.Equal(t, 1, res.Placement.ItemSeq)

	// Utilization after the two 4-cubes: 128/1000.
	require.NotEmpty(t, st.Actions)

	st, res, err = e.Step(bottomLeftIdx(st.Actions))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Placement.ItemSeq)
	assert.True(t, res.Done, "conveyor is spent after the third item")
	assert.Equal(t, model.StatusExhaustedOK, res.Status)

	require.Len(t, e.RetiredBins(), 1)
	assert.InDelta(t, (64+64+27)/1000.0, e.RetiredBins()[0].Utilization, 1e-12)
	assert.Equal(t, 3, e.RetiredBins()[0].Items)

	// No pair of placements overlaps.
	placed := make([]geometry.Cuboid, 0, 3)
	for _, b := range e.packers {
		placed = append(placed, b.Splits()...)
	}
	for i, a := range placed {
		for _, b := range placed[i+1:] {
			assert.False(t, a.Intersects(b, false))
		}
	}
}

func TestScenario_OversizedItemBlocksImmediately(t *testing.T) {
	s := settings(5)
	s.MaxBins = 1
	conv := sliceConveyor(t, 1, [3]int{6, 5, 5})

	e, err := New(s, conv)
	require.NoError(t, err)
	st, err := e.Reset()
	require.NoError(t, err)

	assert.Empty(t, st.Actions, "an item exceeding the bin has no feasible action")
	assert.Equal(t, model.StatusExhaustedBlocked, e.Status(), "items remain but no bin can ever take them")
	assert.Empty(t, e.RetiredBins(), "no bin was ever used")
}

func TestScenario_ReplaceAllWithCapTwo(t *testing.T) {
	// Items fill a 4x4x4 bin exactly one at a time; four of them need
	// four bins, but the cap allows two.
	s := settings(4)
	s.MaxBins = 2
	s.Replace = model.ReplaceAll
	conv := sliceConveyor(t, 1,
		[3]int{4, 4, 4}, [3]int{4, 4, 4}, [3]int{4, 4, 4}, [3]int{4, 4, 4})

	e, err := New(s, conv)
	require.NoError(t, err)
	st, err := e.Reset()
	require.NoError(t, err)

	// First item fills bin 0; the engine must open bin 1 without stalling.
	st, res, err := e.Step(0)
	require.NoError(t, err)
	require.False(t, res.Done)
	require.Len(t, res.Retired, 1, "full bin retired and replaced inline")
	assert.Equal(t, 1.0, res.Retired[0].Utilization)
	require.NotEmpty(t, st.Actions, "fresh bin accepts the next item")

	// Second item fills the replacement; cap reached, items remain.
	_, res, err = e.Step(0)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, model.StatusExhaustedBlocked, res.Status, "termination is a status, not an error")
	assert.Equal(t, 2, e.UsedBins())
	assert.Len(t, e.RetiredBins(), 2)
	assert.False(t, conveyor.Exhausted(conv.Peek()), "unplaced items are still reported on the conveyor")
}

func TestReplaceMax_RetiresOnlyFullestBin(t *testing.T) {
	s := settings(4)
	s.Bins = 2
	s.Replace = model.ReplaceMax
	conv := sliceConveyor(t, 1, [3]int{4, 4, 4}, [3]int{4, 4, 4}, [3]int{4, 4, 4})

	e, err := New(s, conv)
	require.NoError(t, err)
	_, err = e.Reset()
	require.NoError(t, err)

	// Two items fill both open bins; the third forces one replacement.
	for i := 0; i < 3; i++ {
		st, err := e.State()
		require.NoError(t, err)
		require.NotEmpty(t, st.Actions, "step %d", i)
		_, _, err = e.Step(0)
		require.NoError(t, err)
	}

	assert.Equal(t, model.StatusExhaustedOK, e.Status())
	assert.Len(t, e.RetiredBins(), 3)
	assert.Equal(t, 3, e.UsedBins(), "one replacement plus two initial bins, minus none empty")
}

func TestState_UseSkipFalseOnlyOffersFirstItem(t *testing.T) {
	s := settings(10)
	s.Lookahead = 3
	s.UseSkip = false
	conv := sliceConveyor(t, 3, [3]int{2, 2, 2}, [3]int{3, 3, 3}, [3]int{4, 4, 4})

	e, err := New(s, conv)
	require.NoError(t, err)
	st, err := e.Reset()
	require.NoError(t, err)

	require.NotEmpty(t, st.Actions)
	for _, a := range st.Actions {
		assert.Equal(t, 0, a.Slot, "without skip only the first lookahead item may appear")
	}
}

func TestState_LookaheadOffersAllItems(t *testing.T) {
	s := settings(10)
	s.Lookahead = 2
	conv := sliceConveyor(t, 2, [3]int{2, 2, 2}, [3]int{3, 3, 3})

	e, err := New(s, conv)
	require.NoError(t, err)
	st, err := e.Reset()
	require.NoError(t, err)

	slots := map[int]bool{}
	for _, a := range st.Actions {
		slots[a.Slot] = true
	}
	assert.True(t, slots[0])
	assert.True(t, slots[1], "skip-ahead exposes later window items")
}

func TestStep_RewardIsBinLocal(t *testing.T) {
	s := settings(10)
	conv := sliceConveyor(t, 1, [3]int{10, 2, 10})

	e, err := New(s, conv)
	require.NoError(t, err)
	st, err := e.Reset()
	require.NoError(t, err)

	// The slab covers the whole floor at height 2: pyramid = 200/200 = 1,
	// compactness = 200/(10*10*2) = 1.
	_, res, err := e.Step(bottomLeftIdx(st.Actions))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Reward, 1e-12)
}

func TestReset_IsIdempotent(t *testing.T) {
	s := settings(10)
	conv := sliceConveyor(t, 1, [3]int{4, 4, 4}, [3]int{3, 3, 3})

	e, err := New(s, conv)
	require.NoError(t, err)

	st1, err := e.Reset()
	require.NoError(t, err)
	st2, err := e.Reset()
	require.NoError(t, err)

	assert.Equal(t, st1.Items, st2.Items)
	assert.Equal(t, st1.Actions, st2.Actions)
	assert.Equal(t, st1.HeightMaps, st2.HeightMaps)
}
