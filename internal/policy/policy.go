// Package policy provides the decision functions that pick one action
// out of the enumerated action space. The built-in heuristics are pure
// scoring functions with deterministic lexicographic tie-breaks; callers
// may plug in any other Policy implementation (a learned model, a remote
// scorer) without the engine knowing.
package policy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kittfreight/deeppack/internal/env"
)

// ErrNoActions is returned when a policy is asked to choose from an
// empty action space.
var ErrNoActions = errors.New("no actions to select from")

// Policy selects the index of one action in the state's action space.
type Policy interface {
	Name() string
	Select(s *env.State) (int, error)
}

// Func adapts a plain function into a Policy.
type Func struct {
	PolicyName string
	Fn         func(s *env.State) (int, error)
}

func (f Func) Name() string { return f.PolicyName }

func (f Func) Select(s *env.State) (int, error) { return f.Fn(s) }

// scored ranks all actions by a key function and returns the index of
// the lexicographically smallest key. The sort is stable, so equal keys
// fall back to enumeration order — (item slot, bin, placement) — which
// keeps tie-breaking deterministic.
func scored(name string, key func(a env.Action) []int) Policy {
	return Func{
		PolicyName: name,
		Fn: func(s *env.State) (int, error) {
			if len(s.Actions) == 0 {
				return 0, ErrNoActions
			}
			idx := make([]int, len(s.Actions))
			keys := make([][]int, len(s.Actions))
			for i, a := range s.Actions {
				idx[i] = i
				keys[i] = key(a)
			}
			sort.SliceStable(idx, func(i, j int) bool {
				return lessKeys(keys[idx[i]], keys[idx[j]])
			})
			return idx[0], nil
		},
	}
}

func lessKeys(a, b []int) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// BottomLeft prefers the placement with the lowest top face, then the
// leftmost right face, then the shallowest front face.
func BottomLeft() Policy {
	return scored("bottom-left", func(a env.Action) []int {
		return []int{
			a.Pos.Y + a.Size.H,
			a.Pos.X + a.Size.W,
			a.Pos.Z + a.Size.D,
		}
	})
}

// BestShortSideFit minimizes the smaller residual between the supporting
// free split and the item on the width and height axes.
func BestShortSideFit() Policy {
	return scored("best-short-side-fit", func(a env.Action) []int {
		return []int{shortSide(a)}
	})
}

// BestLongSideFit minimizes the larger of the two residuals.
func BestLongSideFit() Policy {
	return scored("best-long-side-fit", func(a env.Action) []int {
		dw := a.Support.W - a.Size.W
		dh := a.Support.H - a.Size.H
		if dw > dh {
			return []int{dw}
		}
		return []int{dh}
	})
}

// BestAreaFit minimizes the supporting free split's volume, breaking
// ties by the short-side residual.
func BestAreaFit() Policy {
	return scored("best-area-fit", func(a env.Action) []int {
		return []int{a.Support.Volume(), shortSide(a)}
	})
}

func shortSide(a env.Action) int {
	dw := a.Support.W - a.Size.W
	dh := a.Support.H - a.Size.H
	if dw < dh {
		return dw
	}
	return dh
}

// ByName resolves the CLI method names used since the original engine:
// bl, baf, bssf and blsf.
func ByName(name string) (Policy, error) {
	switch name {
	case "bl":
		return BottomLeft(), nil
	case "baf":
		return BestAreaFit(), nil
	case "bssf":
		return BestShortSideFit(), nil
	case "blsf":
		return BestLongSideFit(), nil
	default:
		return nil, fmt.Errorf("unknown method %q (want bl, baf, bssf or blsf)", name)
	}
}

// Names lists the built-in heuristic identifiers.
func Names() []string {
	return []string{"bl", "baf", "bssf", "blsf"}
}
