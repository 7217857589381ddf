// Package model holds the shared value types of the packing engine:
// stream items, placements, run settings and episode summaries.
package model

import (
	"fmt"

	"github.com/kittfreight/deeppack/internal/geometry"
)

// StreamItem is one item pulled off the conveyor. Seq is the arrival
// sequence number, assigned in stream order starting at zero; it is the
// identity callers use to map placements back onto their own records.
type StreamItem struct {
	Seq  int           `json:"seq"`
	Size geometry.Size `json:"size"`
}

// Orientations returns the distinct axis permutations of size that are
// allowed under the rotate flag. With rotate=false only the original
// orientation is returned. The order is deterministic: the original size
// first, then swaps around the x, y and z axes in that expansion order,
// duplicates removed keeping the first occurrence.
func Orientations(size geometry.Size, rotate bool) []geometry.Size {
	if !rotate {
		return []geometry.Size{size}
	}

	sizes := []geometry.Size{size}
	// x: swap height/depth
	for _, s := range sizes[:len(sizes):len(sizes)] {
		sizes = append(sizes, geometry.Size{W: s.W, H: s.D, D: s.H})
	}
	// y: swap width/depth
	for _, s := range sizes[:len(sizes):len(sizes)] {
		sizes = append(sizes, geometry.Size{W: s.D, H: s.H, D: s.W})
	}
	// z: swap width/height
	for _, s := range sizes[:len(sizes):len(sizes)] {
		sizes = append(sizes, geometry.Size{W: s.H, H: s.W, D: s.D})
	}

	seen := make(map[geometry.Size]bool, len(sizes))
	out := make([]geometry.Size, 0, len(sizes))
	for _, s := range sizes {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// ReplacePolicy selects which exhausted bins get swapped for fresh ones
// when no further placement is possible.
type ReplacePolicy string

const (
	// ReplaceMax retires the single most-utilized bin.
	ReplaceMax ReplacePolicy = "max"
	// ReplaceAll retires every non-empty bin, most-utilized first.
	ReplaceAll ReplacePolicy = "all"
)

// Valid reports whether the policy is one of the supported values.
func (p ReplacePolicy) Valid() bool {
	return p == ReplaceMax || p == ReplaceAll
}

// Settings holds the engine configuration for one run.
type Settings struct {
	BinSize   geometry.Size `json:"bin_size"`
	Bins      int           `json:"bins"`      // number of simultaneously open bins
	Lookahead int           `json:"lookahead"` // conveyor window size k
	// MaxBins caps the total number of bins a run may open; zero or
	// negative means unlimited.
	MaxBins   int           `json:"max_bins"`
	Replace   ReplacePolicy `json:"replace"`
	UseRotate bool          `json:"use_rotate"`
	UseSkip   bool          `json:"use_skip"` // allow picking any lookahead item, not just the first
}

// DefaultSettings returns the configuration the CLI starts from: a single
// 32-unit bin, lookahead 1, unlimited bin replacement.
func DefaultSettings() Settings {
	return Settings{
		BinSize:   geometry.Size{W: 32, H: 32, D: 32},
		Bins:      1,
		Lookahead: 1,
		MaxBins:   0,
		Replace:   ReplaceAll,
		UseRotate: true,
		UseSkip:   true,
	}
}

// Validate rejects configurations the engine cannot run.
func (s Settings) Validate() error {
	if s.Lookahead < 1 {
		return fmt.Errorf("lookahead must be at least 1, got %d", s.Lookahead)
	}
	if s.Bins < 1 {
		return fmt.Errorf("at least one open bin is required, got %d", s.Bins)
	}
	if s.BinSize.W < 1 || s.BinSize.H < 1 || s.BinSize.D < 1 {
		return fmt.Errorf("bin size must be positive on all axes, got %+v", s.BinSize)
	}
	if s.MaxBins > 0 && s.MaxBins < s.Bins {
		return fmt.Errorf("max bins %d is smaller than the %d open bins", s.MaxBins, s.Bins)
	}
	if !s.Replace.Valid() {
		return fmt.Errorf("unknown replace policy %q", s.Replace)
	}
	return nil
}

// Placement records one committed placement: which item went where, in
// which orientation, into which bin. Bin numbers are global across the
// episode and survive bin replacement.
type Placement struct {
	ItemSeq     int            `json:"item_seq"`
	Bin         int            `json:"bin"`
	Position    geometry.Point `json:"position"`
	Size        geometry.Size  `json:"size"`
	Orientation int            `json:"orientation"`
}

// Cuboid returns the placed box in engine coordinates.
func (p Placement) Cuboid() geometry.Cuboid {
	return geometry.NewCuboid(p.Position.X, p.Position.Y, p.Position.Z, p.Size.W, p.Size.H, p.Size.D)
}

// BinSummary describes one retired (or finalized) bin.
type BinSummary struct {
	Bin         int     `json:"bin"`
	Utilization float64 `json:"utilization"`
	Items       int     `json:"items"`
}

// Status tells a caller why an episode stopped.
type Status int

const (
	// StatusRunning means placements are still possible.
	StatusRunning Status = iota
	// StatusExhaustedOK means the conveyor ran dry and everything that
	// arrived was handled.
	StatusExhaustedOK
	// StatusExhaustedBlocked means items remain on the conveyor but no
	// feasible placement exists and the bin cap forbids opening more.
	StatusExhaustedBlocked
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusExhaustedOK:
		return "exhausted"
	case StatusExhaustedBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// EpisodeSummary aggregates a finished episode.
type EpisodeSummary struct {
	Bins            []BinSummary `json:"bins"`
	BinsUsed        int          `json:"bins_used"`
	ItemsPlaced     int          `json:"items_placed"`
	TotalReward     float64      `json:"total_reward"`
	Status          Status       `json:"status"`
	MeanUtilization float64      `json:"mean_utilization"`
}
