package conveyor

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittfreight/deeppack/internal/geometry"
	"github.com/kittfreight/deeppack/internal/splitgen"
)

func sizes(triples ...[3]int) []geometry.Size {
	out := make([]geometry.Size, len(triples))
	for i, tr := range triples {
		out[i] = geometry.Size{W: tr[0], H: tr[1], D: tr[2]}
	}
	return out
}

func TestSlice_PeekPadsWithSentinels(t *testing.T) {
	c, err := NewSlice(3, sizes([3]int{1, 2, 3}, [3]int{4, 5, 6}))
	require.NoError(t, err)
	require.NoError(t, c.Reset())

	window := c.Peek()
	require.Len(t, window, 3)
	assert.Equal(t, geometry.Size{W: 1, H: 2, D: 3}, window[0].Size)
	assert.Equal(t, geometry.Size{W: 4, H: 5, D: 6}, window[1].Size)
	assert.Nil(t, window[2], "window beyond the source is padded with nil")
	assert.False(t, Exhausted(window))
}

func TestSlice_GrabRefillsAndNumbersItems(t *testing.T) {
	c, err := NewSlice(2, sizes([3]int{1, 1, 1}, [3]int{2, 2, 2}, [3]int{3, 3, 3}))
	require.NoError(t, err)
	require.NoError(t, c.Reset())

	item, err := c.Grab(1)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Seq)
	assert.Equal(t, geometry.Size{W: 2, H: 2, D: 2}, item.Size)

	window := c.Peek()
	assert.Equal(t, 0, window[0].Seq, "untouched slot keeps its item")
	assert.Equal(t, 2, window[1].Seq, "window refilled from the source")

	_, err = c.Grab(5)
	assert.Error(t, err, "grab outside the window must fail")
}

func TestSlice_ExhaustionAndReset(t *testing.T) {
	c, err := NewSlice(2, sizes([3]int{1, 1, 1}))
	require.NoError(t, err)
	require.NoError(t, c.Reset())

	_, err = c.Grab(0)
	require.NoError(t, err)
	assert.True(t, Exhausted(c.Peek()))

	require.NoError(t, c.Reset())
	window := c.Peek()
	require.NotNil(t, window[0])
	assert.Equal(t, 0, window[0].Seq, "reset restarts sequence numbering")
}

func TestNewSlice_RejectsBadLookahead(t *testing.T) {
	_, err := NewSlice(0, nil)
	assert.Error(t, err)
}

func TestFile_ReadsStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.txt")
	require.NoError(t, os.WriteFile(path, []byte("4 4 4\n3 2 1\n\n5 5 5\n"), 0o644))

	c, err := NewFile(2, path)
	require.NoError(t, err)
	require.NoError(t, c.Reset())

	first, err := c.Grab(0)
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{W: 4, H: 4, D: 4}, first.Size)

	window := c.Peek()
	assert.Equal(t, geometry.Size{W: 3, H: 2, D: 1}, window[0].Size)
	assert.Equal(t, geometry.Size{W: 5, H: 5, D: 5}, window[1].Size)
}

func TestFile_MalformedRecordFailsFast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.txt")
	require.NoError(t, os.WriteFile(path, []byte("4 4 4\n4 four 4\n"), 0o644))

	c, err := NewFile(1, path)
	require.NoError(t, err)

	err = c.Reset()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":2:", "error must name the offending line")
}

func TestReader_RepromptsOnBadInputAndStopsOnSentinel(t *testing.T) {
	in := strings.NewReader("4 5 6\nnot an item\n7 8 9\n-1\n")
	var out bytes.Buffer

	c, err := NewReader(2, in, &out)
	require.NoError(t, err)
	require.NoError(t, c.Reset())

	window := c.Peek()
	require.NotNil(t, window[0])
	require.NotNil(t, window[1])
	assert.Equal(t, geometry.Size{W: 4, H: 5, D: 6}, window[0].Size)
	assert.Equal(t, geometry.Size{W: 7, H: 8, D: 9}, window[1].Size, "malformed line is skipped after a reprompt")
	assert.Contains(t, out.String(), "invalid format")

	_, err = c.Grab(0)
	require.NoError(t, err)
	assert.Nil(t, c.Peek()[1], "-1 ends the stream")
}

func generatedConfig(seed int64) GeneratedConfig {
	return GeneratedConfig{
		Lookahead: 3,
		Seed:      seed,
		Params: splitgen.Params{
			Size:    geometry.Size{W: 32, H: 32, D: 32},
			MinSize: geometry.Size{W: 6, H: 6, D: 6},
			MaxSize: geometry.Size{W: 12, H: 12, D: 12},
			P:       0.25,
			PDecay:  0.95,
		},
		PreallocItems: 10,
	}
}

func TestGenerated_SeededResetReproducesStream(t *testing.T) {
	c, err := NewGenerated(generatedConfig(99))
	require.NoError(t, err)

	grabN := func() []geometry.Size {
		require.NoError(t, c.Reset())
		var out []geometry.Size
		for i := 0; i < 20; i++ {
			item, err := c.Grab(0)
			require.NoError(t, err)
			require.NotNil(t, item)
			out = append(out, item.Size)
		}
		return out
	}

	first := grabN()
	second := grabN()
	assert.Equal(t, first, second, "same seed and reset must replay the same items")
}

func TestGenerated_MaxItemsCapsStream(t *testing.T) {
	cfg := generatedConfig(5)
	cfg.MaxItems = 4
	cfg.PreallocItems = 0

	c, err := NewGenerated(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Reset())

	count := 0
	for {
		item, err := c.Grab(0)
		require.NoError(t, err)
		if item == nil {
			break
		}
		count++
		require.LessOrEqual(t, count, 4)
	}
	assert.Equal(t, 4, count)
}

func TestNewGenerated_RejectsPreallocBeyondCap(t *testing.T) {
	cfg := generatedConfig(1)
	cfg.PreallocBins = 3
	cfg.MaxSpaces = 2

	_, err := NewGenerated(cfg)
	assert.Error(t, err)
}
