// Package runner drives whole packing episodes: a Cursor walks one
// episode event by event under a single policy, and ComparePolicies
// tabulates every heuristic over the same replayable stream.
package runner

import (
	"errors"
	"fmt"

	"github.com/kittfreight/deeppack/internal/conveyor"
	"github.com/kittfreight/deeppack/internal/env"
	"github.com/kittfreight/deeppack/internal/model"
	"github.com/kittfreight/deeppack/internal/policy"
)

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	// EventPlacement reports one committed placement and its reward.
	EventPlacement EventKind = iota
	// EventBinClosed reports a bin retired by the lifecycle.
	EventBinClosed
	// EventEpisodeEnd is the final event of every episode.
	EventEpisodeEnd
)

func (k EventKind) String() string {
	switch k {
	case EventPlacement:
		return "placement"
	case EventBinClosed:
		return "bin-closed"
	case EventEpisodeEnd:
		return "episode-end"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one tagged episode event. Exactly the field matching Kind is
// set.
type Event struct {
	Kind      EventKind
	Placement *model.Placement
	Reward    float64
	Bin       *model.BinSummary
	Summary   *model.EpisodeSummary
}

// Cursor walks one episode lazily: nothing runs until Next is called,
// and the caller may stop at any event. After the EpisodeEnd event Next
// returns nil.
type Cursor struct {
	env      *env.Env
	pol      policy.Policy
	maxSteps int

	started     bool
	finished    bool
	queue       []Event
	itemsPlaced int
	totalReward float64
}

// NewCursor prepares an episode over the environment with the given
// policy. maxSteps caps the number of placements; zero means unlimited.
// The environment is reset on the first Next call.
func NewCursor(e *env.Env, pol policy.Policy, maxSteps int) (*Cursor, error) {
	if e == nil {
		return nil, errors.New("environment is required")
	}
	if pol == nil {
		return nil, errors.New("policy is required")
	}
	if maxSteps < 0 {
		return nil, fmt.Errorf("max steps must not be negative, got %d", maxSteps)
	}
	return &Cursor{env: e, pol: pol, maxSteps: maxSteps}, nil
}

// Next advances the episode and returns the next event, or nil once the
// EpisodeEnd event has been delivered.
func (c *Cursor) Next() (*Event, error) {
	for {
		if len(c.queue) > 0 {
			ev := c.queue[0]
			c.queue = c.queue[1:]
			return &ev, nil
		}
		if c.finished {
			return nil, nil
		}
		if err := c.advance(); err != nil {
			return nil, err
		}
	}
}

func (c *Cursor) advance() error {
	if !c.started {
		c.started = true
		if _, err := c.env.Reset(); err != nil {
			return err
		}
		if c.env.Status() != model.StatusRunning {
			return c.end()
		}
		return nil
	}

	if c.maxSteps > 0 && c.itemsPlaced >= c.maxSteps {
		return c.truncate()
	}

	s, err := c.env.State()
	if err != nil {
		return err
	}
	idx, err := c.pol.Select(s)
	if err != nil {
		return err
	}
	_, res, err := c.env.Step(idx)
	if err != nil {
		return err
	}

	c.itemsPlaced++
	c.totalReward += res.Reward
	placement := res.Placement
	c.queue = append(c.queue, Event{
		Kind:      EventPlacement,
		Placement: &placement,
		Reward:    res.Reward,
	})
	for i := range res.Retired {
		bin := res.Retired[i]
		c.queue = append(c.queue, Event{Kind: EventBinClosed, Bin: &bin})
	}
	if res.Done {
		return c.end()
	}
	return nil
}

// truncate closes the episode when the step cap is reached; bins still
// open get their BinClosed events before EpisodeEnd.
func (c *Cursor) truncate() error {
	before := len(c.env.RetiredBins())
	if err := c.env.Close(); err != nil {
		return err
	}
	for _, bin := range c.env.RetiredBins()[before:] {
		b := bin
		c.queue = append(c.queue, Event{Kind: EventBinClosed, Bin: &b})
	}
	return c.end()
}

func (c *Cursor) end() error {
	summary := c.env.Summary(c.itemsPlaced, c.totalReward)
	c.queue = append(c.queue, Event{Kind: EventEpisodeEnd, Summary: &summary})
	c.finished = true
	return nil
}

// Run drains the cursor and returns the episode summary. onEvent, when
// non-nil, sees every event before the summary is returned; returning an
// error from it aborts the run.
func (c *Cursor) Run(onEvent func(Event) error) (model.EpisodeSummary, error) {
	for {
		ev, err := c.Next()
		if err != nil {
			return model.EpisodeSummary{}, err
		}
		if ev == nil {
			return model.EpisodeSummary{}, errors.New("episode ended without a summary event")
		}
		if onEvent != nil {
			if err := onEvent(*ev); err != nil {
				return model.EpisodeSummary{}, err
			}
		}
		if ev.Kind == EventEpisodeEnd {
			return *ev.Summary, nil
		}
	}
}

// PolicyResult pairs a policy with its episode outcome.
type PolicyResult struct {
	Policy  string
	Summary model.EpisodeSummary
}

// ComparePolicies runs every policy over the same stream and settings
// and returns one result per policy, in input order. The conveyor must
// replay the same items on every Reset (slice, file and seeded generated
// sources do; the interactive reader does not).
func ComparePolicies(settings model.Settings, conv conveyor.Conveyor, policies []policy.Policy, maxSteps int) ([]PolicyResult, error) {
	results := make([]PolicyResult, 0, len(policies))
	for _, pol := range policies {
		e, err := env.New(settings, conv)
		if err != nil {
			return nil, err
		}
		cur, err := NewCursor(e, pol, maxSteps)
		if err != nil {
			return nil, err
		}
		summary, err := cur.Run(nil)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", pol.Name(), err)
		}
		results = append(results, PolicyResult{Policy: pol.Name(), Summary: summary})
	}
	return results, nil
}

// DefaultPolicies lists the built-in heuristics in their canonical
// comparison order.
func DefaultPolicies() []policy.Policy {
	out := make([]policy.Policy, 0, len(policy.Names()))
	for _, name := range policy.Names() {
		p, _ := policy.ByName(name)
		out = append(out, p)
	}
	return out
}
