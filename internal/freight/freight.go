// Package freight adapts the integer packing engine to real-world
// loading jobs: items and containers measured in fractional units (cm,
// inches) with weights and external IDs. Dimensions are scaled into the
// engine's integer grid, the episode runs to completion, and placements
// are mapped back to the caller's units.
package freight

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kittfreight/deeppack/internal/conveyor"
	"github.com/kittfreight/deeppack/internal/env"
	"github.com/kittfreight/deeppack/internal/geometry"
	"github.com/kittfreight/deeppack/internal/model"
	"github.com/kittfreight/deeppack/internal/policy"
	"github.com/kittfreight/deeppack/internal/runner"
)

// gridMax is the largest container dimension after scaling. The grid is
// kept coarse so the action space stays tractable.
const gridMax = 30.0

// Dimensions is a box size in the caller's units.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

// Volume returns width*height*depth.
func (d Dimensions) Volume() float64 { return d.Width * d.Height * d.Depth }

// Item is one piece of freight to load.
type Item struct {
	ID     string     `json:"id"`
	Size   Dimensions `json:"size"`
	Weight float64    `json:"weight"`
}

// Request describes a loading job.
type Request struct {
	Items     []Item     `json:"items"`
	Container Dimensions `json:"container"`
	// MaxWeight caps the per-container weight; zero disables the check.
	MaxWeight float64 `json:"max_weight,omitempty"`
	// Method selects the heuristic (bl, baf, bssf, blsf). Empty means bl.
	Method    string `json:"method,omitempty"`
	Lookahead int    `json:"lookahead,omitempty"`
	Rotate    bool   `json:"rotate"`
	// MaxBins caps how many containers the job may open; zero means
	// unlimited.
	MaxBins int `json:"max_bins,omitempty"`
}

// Position is a placement origin in the caller's units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Placement locates one item inside a container.
type Placement struct {
	ItemID      string     `json:"item_id"`
	Bin         int        `json:"bin"`
	Position    Position   `json:"position"`
	Size        Dimensions `json:"size"`
	Orientation int        `json:"orientation"`
	Weight      float64    `json:"weight"`
}

// BinLoad aggregates one container's contents.
type BinLoad struct {
	Bin         int      `json:"bin"`
	ItemIDs     []string `json:"item_ids"`
	Weight      float64  `json:"weight"`
	Overweight  bool     `json:"overweight"`
	Utilization float64  `json:"utilization"`
}

// Result is the outcome of a loading job.
type Result struct {
	JobID          string        `json:"job_id"`
	Algorithm      string        `json:"algorithm"`
	Container      Dimensions    `json:"container"`
	Placements     []Placement   `json:"placements"`
	Bins           []BinLoad     `json:"bins"`
	BinsUsed       int           `json:"bins_used"`
	ItemsPacked    int           `json:"items_packed"`
	ItemsRequested int           `json:"items_requested"`
	UnplacedIDs    []string      `json:"unplaced_ids,omitempty"`
	UtilizationPct float64       `json:"utilization_pct"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Pack runs the loading job and returns placements in the request's
// units. Items that no container could take (after the bin cap) are
// reported in UnplacedIDs rather than as an error.
func Pack(req Request) (*Result, error) {
	start := time.Now()

	if len(req.Items) == 0 {
		return nil, errors.New("no items to pack")
	}
	if req.Container.Width <= 0 || req.Container.Height <= 0 || req.Container.Depth <= 0 {
		return nil, fmt.Errorf("container dimensions must be positive, got %+v", req.Container)
	}
	for _, it := range req.Items {
		if it.Size.Width <= 0 || it.Size.Height <= 0 || it.Size.Depth <= 0 {
			return nil, fmt.Errorf("item %q has non-positive dimensions %+v", it.ID, it.Size)
		}
	}

	method := req.Method
	if method == "" {
		method = "bl"
	}
	pol, err := policy.ByName(method)
	if err != nil {
		return nil, err
	}

	scale := scaleFactor(req.Container)
	binSize := geometry.Size{
		W: scaleDim(req.Container.Width, scale),
		H: scaleDim(req.Container.Height, scale),
		D: scaleDim(req.Container.Depth, scale),
	}
	sizes := make([]geometry.Size, len(req.Items))
	for i, it := range req.Items {
		sizes[i] = geometry.Size{
			W: scaleDim(it.Size.Width, scale),
			H: scaleDim(it.Size.Height, scale),
			D: scaleDim(it.Size.Depth, scale),
		}
	}

	settings := model.DefaultSettings()
	settings.BinSize = binSize
	settings.Lookahead = req.Lookahead
	if settings.Lookahead < 1 {
		settings.Lookahead = 1
	}
	settings.Replace = model.ReplaceAll
	settings.UseRotate = req.Rotate
	settings.MaxBins = req.MaxBins

	conv, err := conveyor.NewSlice(settings.Lookahead, sizes)
	if err != nil {
		return nil, err
	}
	e, err := env.New(settings, conv)
	if err != nil {
		return nil, err
	}
	cur, err := runner.NewCursor(e, pol, 0)
	if err != nil {
		return nil, err
	}

	result := &Result{
		JobID:          uuid.NewString(),
		Algorithm:      "deeppack-" + method,
		Container:      req.Container,
		ItemsRequested: len(req.Items),
	}
	binUtil := map[int]float64{}

	summary, err := cur.Run(func(ev runner.Event) error {
		switch ev.Kind {
		case runner.EventPlacement:
			p := ev.Placement
			item := req.Items[p.ItemSeq]
			result.Placements = append(result.Placements, Placement{
				ItemID: item.ID,
				Bin:    p.Bin,
				Position: Position{
					X: float64(p.Position.X) / scale,
					Y: float64(p.Position.Y) / scale,
					Z: float64(p.Position.Z) / scale,
				},
				Size: Dimensions{
					Width:  float64(p.Size.W) / scale,
					Height: float64(p.Size.H) / scale,
					Depth:  float64(p.Size.D) / scale,
				},
				Orientation: p.Orientation,
				Weight:      item.Weight,
			})
		case runner.EventBinClosed:
			binUtil[ev.Bin.Bin] = ev.Bin.Utilization
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.ItemsPacked = summary.ItemsPlaced
	result.BinsUsed = summary.BinsUsed
	result.Bins = tallyBins(result.Placements, binUtil, req.MaxWeight)
	result.UnplacedIDs = unplaced(req.Items, result.Placements)
	result.UtilizationPct = utilizationPct(result.Placements, req.Container, result.BinsUsed)
	result.Elapsed = time.Since(start)
	return result, nil
}

// FromEpisode wraps a raw integer-grid episode in a Result so engine
// runs can reuse the exporters. Items are named after their stream
// sequence and carry no weight.
func FromEpisode(binSize geometry.Size, placements []model.Placement, summary model.EpisodeSummary) *Result {
	res := &Result{
		JobID:     uuid.NewString(),
		Algorithm: "deeppack",
		Container: Dimensions{
			Width:  float64(binSize.W),
			Height: float64(binSize.H),
			Depth:  float64(binSize.D),
		},
		BinsUsed:       summary.BinsUsed,
		ItemsPacked:    summary.ItemsPlaced,
		ItemsRequested: summary.ItemsPlaced,
		UtilizationPct: summary.MeanUtilization * 100,
	}
	for _, p := range placements {
		res.Placements = append(res.Placements, Placement{
			ItemID: fmt.Sprintf("item-%d", p.ItemSeq+1),
			Bin:    p.Bin,
			Position: Position{
				X: float64(p.Position.X),
				Y: float64(p.Position.Y),
				Z: float64(p.Position.Z),
			},
			Size: Dimensions{
				Width:  float64(p.Size.W),
				Height: float64(p.Size.H),
				Depth:  float64(p.Size.D),
			},
			Orientation: p.Orientation,
		})
	}
	binUtil := map[int]float64{}
	for _, b := range summary.Bins {
		binUtil[b.Bin] = b.Utilization
	}
	res.Bins = tallyBins(res.Placements, binUtil, 0)
	return res
}

func scaleFactor(container Dimensions) float64 {
	maxDim := math.Max(container.Width, math.Max(container.Height, container.Depth))
	if maxDim > gridMax {
		return gridMax / maxDim
	}
	return 1.0
}

// scaleDim floors into grid units but never below one cell.
func scaleDim(v, scale float64) int {
	n := int(v * scale)
	if n < 1 {
		n = 1
	}
	return n
}

func tallyBins(placements []Placement, binUtil map[int]float64, maxWeight float64) []BinLoad {
	order := []int{}
	byBin := map[int]*BinLoad{}
	for _, p := range placements {
		load, ok := byBin[p.Bin]
		if !ok {
			load = &BinLoad{Bin: p.Bin, Utilization: binUtil[p.Bin]}
			byBin[p.Bin] = load
			order = append(order, p.Bin)
		}
		load.ItemIDs = append(load.ItemIDs, p.ItemID)
		load.Weight += p.Weight
	}
	out := make([]BinLoad, 0, len(order))
	for _, bin := range order {
		load := byBin[bin]
		load.Overweight = maxWeight > 0 && load.Weight > maxWeight
		out = append(out, *load)
	}
	return out
}

func unplaced(items []Item, placements []Placement) []string {
	placed := make(map[string]bool, len(placements))
	for _, p := range placements {
		placed[p.ItemID] = true
	}
	var out []string
	for _, it := range items {
		if !placed[it.ID] {
			out = append(out, it.ID)
		}
	}
	return out
}

func utilizationPct(placements []Placement, container Dimensions, binsUsed int) float64 {
	if len(placements) == 0 || binsUsed == 0 {
		return 0
	}
	total := 0.0
	for _, p := range placements {
		total += p.Size.Volume()
	}
	return total / (container.Volume() * float64(binsUsed)) * 100
}
