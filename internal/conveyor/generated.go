package conveyor

import (
	"fmt"
	"math/rand"

	"github.com/kittfreight/deeppack/internal/geometry"
	"github.com/kittfreight/deeppack/internal/model"
	"github.com/kittfreight/deeppack/internal/splitgen"
)

// GeneratedConfig parameterizes the synthetic conveyor.
type GeneratedConfig struct {
	Lookahead int
	Params    splitgen.Params
	Seed      int64
	// PreallocBins generates this many whole bin cuts up front; the
	// resulting items form the head of the stream.
	PreallocBins int
	// PreallocItems keeps generating bin cuts up front until at least
	// this many items are buffered.
	PreallocItems int
	// MaxItems caps the total number of items emitted; zero means
	// unlimited.
	MaxItems int
	// MaxSpaces caps the number of bin cuts generated; zero means
	// unlimited.
	MaxSpaces int
}

// Generated produces an endless (or capped) item stream by repeatedly
// cutting fresh bins with the non-guillotine generator. The random source
// is owned by the conveyor and reseeded on every Reset, so a given seed
// always reproduces the same stream.
type Generated struct {
	window
	cfg GeneratedConfig
	rng *rand.Rand
}

// NewGenerated validates the configuration and builds the conveyor.
func NewGenerated(cfg GeneratedConfig) (*Generated, error) {
	if cfg.Lookahead < 1 {
		return nil, fmt.Errorf("lookahead must be at least 1, got %d", cfg.Lookahead)
	}
	if cfg.MaxSpaces > 0 && cfg.PreallocBins > cfg.MaxSpaces {
		return nil, fmt.Errorf("prealloc bins %d exceeds max spaces %d", cfg.PreallocBins, cfg.MaxSpaces)
	}
	return &Generated{window: newWindow(cfg.Lookahead), cfg: cfg}, nil
}

// Reset reseeds the generator and rebuilds the preallocated buffer, then
// rearms the lookahead window at the head of the stream.
func (g *Generated) Reset() error {
	g.rng = rand.New(rand.NewSource(g.cfg.Seed))

	var buffer []geometry.Cuboid
	for i := 0; i < g.cfg.PreallocBins; i++ {
		splits, err := splitgen.NonGuillotineCut(g.rng, g.cfg.Params)
		if err != nil {
			return err
		}
		buffer = append(buffer, splits...)
	}
	for len(buffer) < g.cfg.PreallocItems {
		splits, err := splitgen.NonGuillotineCut(g.rng, g.cfg.Params)
		if err != nil {
			return err
		}
		buffer = append(buffer, splits...)
	}

	items := 0
	spaces := g.cfg.PreallocBins
	idx := 0
	var pending []geometry.Cuboid

	g.init(func() (geometry.Size, bool) {
		for {
			if g.cfg.MaxItems > 0 && items >= g.cfg.MaxItems {
				return geometry.Size{}, false
			}
			if idx < len(buffer) {
				size := buffer[idx].Size()
				idx++
				items++
				return size, true
			}
			if len(pending) > 0 {
				size := pending[0].Size()
				pending = pending[1:]
				items++
				return size, true
			}
			if g.cfg.MaxSpaces > 0 && spaces >= g.cfg.MaxSpaces {
				return geometry.Size{}, false
			}
			splits, err := splitgen.NonGuillotineCut(g.rng, g.cfg.Params)
			if err != nil {
				g.fail(err)
				return geometry.Size{}, false
			}
			spaces++
			pending = splits
		}
	})
	return nil
}

// Peek returns the lookahead window.
func (g *Generated) Peek() []*model.StreamItem { return g.peek() }

// Grab removes and returns the item at window index i.
func (g *Generated) Grab(i int) (*model.StreamItem, error) { return g.grab(i) }
