// Package env composes the free-space partitioners with a conveyor into
// the multi-bin packing environment: it enumerates the feasible action
// space for the current lookahead window, commits chosen actions, shapes
// a reward signal, and manages the bin open/retire/replace lifecycle.
package env

import (
	"errors"
	"fmt"

	"github.com/kittfreight/deeppack/internal/conveyor"
	"github.com/kittfreight/deeppack/internal/geometry"
	"github.com/kittfreight/deeppack/internal/model"
	"github.com/kittfreight/deeppack/internal/space"
)

// ErrInvariant marks internal-consistency failures: a commit the
// enumerator promised was feasible got rejected, or volume accounting
// broke. Runs must abort on it rather than continue with wrong numbers.
var ErrInvariant = errors.New("packing invariant violated")

// Action is one candidate placement out of the enumerated action space.
type Action struct {
	Slot        int              // index into the lookahead window
	Bin         int              // open-bin slot index
	Item        model.StreamItem // the item the action would place
	Pos         geometry.Point
	Size        geometry.Size   // possibly a rotated permutation of the item size
	Orientation int             // index into the item's orientation list
	Support     geometry.Cuboid // free split that produced the position
}

// Cuboid returns the box the action would occupy.
func (a Action) Cuboid() geometry.Cuboid {
	return geometry.NewCuboid(a.Pos.X, a.Pos.Y, a.Pos.Z, a.Size.W, a.Size.H, a.Size.D)
}

// State is the snapshot handed to policies: the lookahead window, the
// height map of every open bin, and the full action space. It stays
// valid until the next Step.
type State struct {
	Items      []*model.StreamItem
	HeightMaps [][][]int
	Actions    []Action
}

// StepResult reports what one committed action did.
type StepResult struct {
	Placement model.Placement
	Reward    float64
	Done      bool
	Status    model.Status
	// Retired lists bins closed while handling this step, in the order
	// they were retired.
	Retired []model.BinSummary
}

// Env is the multi-bin packing environment. Not safe for concurrent use;
// one run loop owns one Env.
type Env struct {
	settings model.Settings
	conv     conveyor.Conveyor

	packers []*space.Partitioner
	binIDs  []int // global bin number per open slot
	nextBin int
	// usedBins counts bins opened over the episode; empty leftovers are
	// deducted when the episode finalizes.
	usedBins int
	retired  []model.BinSummary
	status   model.Status
	state    *State
}

// New validates the settings and builds an environment around the given
// conveyor. Reset must be called before the first State.
func New(settings model.Settings, conv conveyor.Conveyor) (*Env, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, errors.New("conveyor is required")
	}
	e := &Env{settings: settings, conv: conv}
	return e, nil
}

// Settings returns the run configuration.
func (e *Env) Settings() model.Settings { return e.settings }

// Status reports why (or whether) the episode ended.
func (e *Env) Status() model.Status { return e.status }

// UsedBins returns the number of bins opened so far, net of empty
// leftovers once the episode has finalized.
func (e *Env) UsedBins() int { return e.usedBins }

// RetiredBins returns the summaries of every closed bin so far.
func (e *Env) RetiredBins() []model.BinSummary {
	out := make([]model.BinSummary, len(e.retired))
	copy(out, e.retired)
	return out
}

// Reset starts a fresh episode: new partitioners, rewound conveyor,
// recomputed action space.
func (e *Env) Reset() (*State, error) {
	e.packers = make([]*space.Partitioner, e.settings.Bins)
	e.binIDs = make([]int, e.settings.Bins)
	for i := range e.packers {
		e.packers[i] = space.NewPartitioner(e.settings.BinSize)
		e.binIDs[i] = i
	}
	e.nextBin = e.settings.Bins
	e.usedBins = e.settings.Bins
	e.retired = nil
	e.status = model.StatusRunning
	e.state = nil

	if err := e.conv.Reset(); err != nil {
		return nil, err
	}
	s, err := e.State()
	if err != nil {
		return nil, err
	}
	// A run can be over before it starts: empty conveyor, or items no
	// bin can ever hold.
	if len(s.Actions) == 0 {
		if err := e.handleExhaustion(); err != nil {
			return nil, err
		}
		s = e.state
	}
	return s, nil
}

// State returns the current snapshot, computing it if a step (or Reset)
// invalidated the cache.
func (e *Env) State() (*State, error) {
	if e.packers == nil {
		return nil, errors.New("environment not reset")
	}
	if e.state == nil {
		e.state = e.computeState()
	}
	return e.state, nil
}

func (e *Env) computeState() *State {
	window := e.conv.Peek()
	items := make([]*model.StreamItem, len(window))
	copy(items, window)

	heightMaps := make([][][]int, len(e.packers))
	for i, p := range e.packers {
		heightMaps[i] = p.HeightMap()
	}

	var actions []Action
	for slot, item := range items {
		if item == nil {
			continue
		}
		for bin, packer := range e.packers {
			for orient, size := range model.Orientations(item.Size, e.settings.UseRotate) {
				for _, cand := range packer.PlaceableCoords(size) {
					actions = append(actions, Action{
						Slot:        slot,
						Bin:         bin,
						Item:        *item,
						Pos:         cand.Pos,
						Size:        size,
						Orientation: orient,
						Support:     cand.Support,
					})
				}
			}
		}
		// Without skip-ahead only the first pending item is offered.
		if !e.settings.UseSkip {
			break
		}
	}

	return &State{Items: items, HeightMaps: heightMaps, Actions: actions}
}

// Step commits the action at the given index of the current action
// space, advances the conveyor, recomputes the state, and runs the bin
// lifecycle when the new action space is empty.
func (e *Env) Step(actionIdx int) (*State, StepResult, error) {
	if e.status != model.StatusRunning {
		return nil, StepResult{}, fmt.Errorf("episode already over (%s)", e.status)
	}
	s, err := e.State()
	if err != nil {
		return nil, StepResult{}, err
	}
	if actionIdx < 0 || actionIdx >= len(s.Actions) {
		return nil, StepResult{}, fmt.Errorf("action index %d outside action space of %d", actionIdx, len(s.Actions))
	}
	a := s.Actions[actionIdx]

	packer := e.packers[a.Bin]
	box := a.Cuboid()
	if !packer.Add(box) {
		return nil, StepResult{}, fmt.Errorf("%w: enumerated action %v rejected by bin %d", ErrInvariant, box, e.binIDs[a.Bin])
	}
	if _, err := e.conv.Grab(a.Slot); err != nil {
		return nil, StepResult{}, err
	}

	result := StepResult{
		Placement: model.Placement{
			ItemSeq:     a.Item.Seq,
			Bin:         e.binIDs[a.Bin],
			Position:    a.Pos,
			Size:        a.Size,
			Orientation: a.Orientation,
		},
		Reward: e.reward(packer),
		Status: model.StatusRunning,
	}

	e.state = e.computeState()

	if len(e.state.Actions) == 0 {
		retiredBefore := len(e.retired)
		if err := e.handleExhaustion(); err != nil {
			return nil, StepResult{}, err
		}
		result.Retired = append(result.Retired, e.retired[retiredBefore:]...)
	}

	result.Done = e.status != model.StatusRunning
	result.Status = e.status
	return e.state, result, nil
}

// reward averages two bin-local signals for the just-modified bin:
// pyramid (used volume over the height-map sum) rewards flat, dense
// stacking; compactness (used volume over footprint times peak height)
// rewards low overall stacks.
func (e *Env) reward(packer *space.Partitioner) float64 {
	used := 0
	for _, s := range packer.Splits() {
		used += s.Volume()
	}

	sum, peak := 0, 0
	for _, row := range packer.HeightMap() {
		for _, h := range row {
			sum += h
			if h > peak {
				peak = h
			}
		}
	}
	if sum == 0 || peak == 0 {
		return 0
	}

	size := packer.Size()
	pyramid := float64(used) / float64(sum)
	compactness := float64(used) / float64(size.W*size.D*peak)
	return (pyramid + compactness) / 2
}

// handleExhaustion runs the bin lifecycle when the action space is
// empty: retire and replace bins per the replace policy, or finalize the
// episode when the cap forbids opening more.
func (e *Env) handleExhaustion() error {
	if e.settings.MaxBins > 0 && e.usedBins+1 > e.settings.MaxBins {
		return e.finalize()
	}

	switch e.settings.Replace {
	case model.ReplaceMax:
		if _, err := e.retireMostUtilized(); err != nil {
			return err
		}
	case model.ReplaceAll:
		for {
			if e.settings.MaxBins > 0 && e.usedBins+1 > e.settings.MaxBins {
				break
			}
			replaced, err := e.retireMostUtilized()
			if err != nil {
				return err
			}
			if !replaced {
				break
			}
		}
	default:
		return fmt.Errorf("unknown replace policy %q", e.settings.Replace)
	}

	e.state = e.computeState()
	if len(e.state.Actions) == 0 {
		return e.finalize()
	}
	return nil
}

// retireMostUtilized closes the fullest open bin and swaps in a fresh
// one. It reports false without retiring anything when every open bin is
// still empty.
func (e *Env) retireMostUtilized() (bool, error) {
	loc := 0
	best := -1.0
	for i, p := range e.packers {
		if u := p.Utilization(); u > best {
			best = u
			loc = i
		}
	}
	if best == 0 {
		return false, nil
	}

	packer := e.packers[loc]
	util, err := packer.SpaceUtilization()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	e.retired = append(e.retired, model.BinSummary{
		Bin:         e.binIDs[loc],
		Utilization: util,
		Items:       packer.ItemCount(),
	})

	e.packers[loc] = space.NewPartitioner(e.settings.BinSize)
	e.binIDs[loc] = e.nextBin
	e.nextBin++
	e.usedBins++
	return true, nil
}

// finalize records every non-empty open bin, deducts still-empty open
// bins from the used count, and settles the terminal status.
func (e *Env) finalize() error {
	empty := 0
	for i, p := range e.packers {
		util, err := p.SpaceUtilization()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvariant, err)
		}
		if util == 0 {
			empty++
			continue
		}
		e.retired = append(e.retired, model.BinSummary{
			Bin:         e.binIDs[i],
			Utilization: util,
			Items:       p.ItemCount(),
		})
	}
	e.usedBins -= empty

	if conveyor.Exhausted(e.conv.Peek()) {
		e.status = model.StatusExhaustedOK
	} else {
		e.status = model.StatusExhaustedBlocked
	}
	return nil
}

// Close finalizes a still-running episode: open bins are recorded and
// the terminal status settled as if no further action were possible.
// Calling Close on a finished (or never reset) environment is a no-op.
func (e *Env) Close() error {
	if e.packers == nil || e.status != model.StatusRunning {
		return nil
	}
	return e.finalize()
}

// Summary builds the episode summary from the current terminal state.
// totalReward is accumulated by the caller across steps.
func (e *Env) Summary(itemsPlaced int, totalReward float64) model.EpisodeSummary {
	bins := e.RetiredBins()
	mean := 0.0
	for _, b := range bins {
		mean += b.Utilization
	}
	if len(bins) > 0 {
		mean /= float64(len(bins))
	}
	return model.EpisodeSummary{
		Bins:            bins,
		BinsUsed:        e.usedBins,
		ItemsPlaced:     itemsPlaced,
		TotalReward:     totalReward,
		Status:          e.status,
		MeanUtilization: mean,
	}
}
