// DeepPack — online 3D bin packing with bounded lookahead.
//
// Packs a stream of cuboid items into containers one decision at a
// time, using pluggable placement heuristics, and exports load plans
// in PDF, Excel and DXF formats.
//
// Build:
//
//	go build -o deeppack ./cmd/deeppack
//
// Examples:
//
//	deeppack -data generated -seed 7 -iterations 100
//	deeppack -data file -path items.txt -method baf -lookahead 3
//	deeppack -data file -path items.txt -compare
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/kittfreight/deeppack/internal/config"
	"github.com/kittfreight/deeppack/internal/conveyor"
	"github.com/kittfreight/deeppack/internal/env"
	"github.com/kittfreight/deeppack/internal/export"
	"github.com/kittfreight/deeppack/internal/freight"
	"github.com/kittfreight/deeppack/internal/geometry"
	"github.com/kittfreight/deeppack/internal/model"
	"github.com/kittfreight/deeppack/internal/policy"
	"github.com/kittfreight/deeppack/internal/project"
	"github.com/kittfreight/deeppack/internal/runner"
	"github.com/kittfreight/deeppack/internal/splitgen"
)

func main() {
	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "YAML config file")
		method     = flag.String("method", "bl", "heuristic: bl, baf, bssf or blsf")
		lookahead  = flag.Int("lookahead", 1, "lookahead window size")
		data       = flag.String("data", "generated", "item source: generated, file or input")
		path       = flag.String("path", "", "item stream file for the file source")
		seed       = flag.Int64("seed", 1, "seed for the generated source")
		binSpec    = flag.String("bin", "32x32x32", "bin size as WxHxD")
		bins       = flag.Int("bins", 1, "open bins")
		maxBins    = flag.Int("max-bins", 0, "bin cap over the whole run, 0 for unlimited")
		replace    = flag.String("replace", "all", "bin replace policy: max or all")
		rotate     = flag.Bool("rotate", true, "allow axis-swap orientations")
		skip       = flag.Bool("skip", true, "allow placing any window item, not just the first")
		iterations = flag.Int("iterations", -1, "max placements, -1 for unlimited")
		compare    = flag.Bool("compare", false, "run every heuristic over the stream and tabulate")
		dumpPath   = flag.String("dump-stream", "", "write the item stream to this file and exit")
		exportPDF  = flag.String("export-pdf", "", "write a PDF load plan to this file")
		exportLbl  = flag.String("export-labels", "", "write QR item labels to this file")
		exportXLSX = flag.String("export-xlsx", "", "write an Excel manifest to this file")
		exportDXF  = flag.String("export-dxf", "", "write a DXF top-view layout to this file")
		saveJob    = flag.Bool("save-job", false, "persist the run under ~/.deeppack/jobs")
		verbose    = flag.Bool("verbose", false, "log every placement")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// Flags set on the command line override the config file.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "method":
			cfg.Method = *method
		case "lookahead":
			cfg.Lookahead = *lookahead
		case "data":
			cfg.Source = *data
		case "path":
			cfg.Path = *path
		case "seed":
			cfg.Generator.Seed = *seed
		case "bin":
			size, err := parseBinSpec(*binSpec)
			if err != nil {
				flagErr = err
				return
			}
			cfg.BinSize = size
		case "bins":
			cfg.Bins = *bins
		case "max-bins":
			cfg.MaxBins = *maxBins
		case "replace":
			cfg.Replace = *replace
		case "rotate":
			cfg.Rotate = *rotate
		case "skip":
			cfg.Skip = *skip
		case "iterations":
			cfg.Iterations = *iterations
		case "export-pdf":
			cfg.Export.PDF = *exportPDF
		case "export-labels":
			cfg.Export.Labels = *exportLbl
		case "export-xlsx":
			cfg.Export.XLSX = *exportXLSX
		case "export-dxf":
			cfg.Export.DXF = *exportDXF
		}
	})
	if flagErr != nil {
		return flagErr
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	settings := cfg.Settings()
	conv, err := buildConveyor(cfg, settings)
	if err != nil {
		return err
	}

	if *dumpPath != "" {
		max := cfg.Generator.MaxItems
		if cfg.Iterations > 0 && (max == 0 || cfg.Iterations < max) {
			max = cfg.Iterations
		}
		n, err := project.DumpStreamFile(*dumpPath, conv, max)
		if err != nil {
			return err
		}
		slog.Info("stream dumped", "path", *dumpPath, "items", n)
		return nil
	}

	if *compare {
		if cfg.Source == "input" {
			return fmt.Errorf("compare needs a replayable source, not input")
		}
		return runCompare(settings, conv, cfg.Iterations)
	}

	return runEpisode(cfg, settings, conv, *saveJob)
}

// parseBinSpec parses a WxHxD size like "32x32x32".
func parseBinSpec(spec string) (config.SizeSpec, error) {
	parts := strings.Split(strings.ToLower(spec), "x")
	if len(parts) != 3 {
		return config.SizeSpec{}, fmt.Errorf("bin size must be WxHxD, got %q", spec)
	}
	dims := [3]int{}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 1 {
			return config.SizeSpec{}, fmt.Errorf("bin size must be WxHxD with positive integers, got %q", spec)
		}
		dims[i] = v
	}
	return config.SizeSpec{Width: dims[0], Height: dims[1], Depth: dims[2]}, nil
}

func buildConveyor(cfg config.Config, settings model.Settings) (conveyor.Conveyor, error) {
	switch cfg.Source {
	case "generated":
		return conveyor.NewGenerated(conveyor.GeneratedConfig{
			Lookahead: settings.Lookahead,
			Seed:      cfg.Generator.Seed,
			MaxItems:  cfg.Generator.MaxItems,
			Params: splitgen.Params{
				Size:    settings.BinSize,
				MinSize: sizeOf(cfg.Generator.MinSize),
				MaxSize: sizeOf(cfg.Generator.MaxSize),
				P:       cfg.Generator.P,
				PDecay:  cfg.Generator.PDecay,
			},
		})
	case "file":
		return conveyor.NewFile(settings.Lookahead, cfg.Path)
	case "input":
		return conveyor.NewReader(settings.Lookahead, os.Stdin, os.Stdout)
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func sizeOf(s config.SizeSpec) geometry.Size {
	return geometry.Size{W: s.Width, H: s.Height, D: s.Depth}
}

func maxSteps(iterations int) int {
	if iterations > 0 {
		return iterations
	}
	return 0
}

func runEpisode(cfg config.Config, settings model.Settings, conv conveyor.Conveyor, saveJob bool) error {
	pol, err := policy.ByName(cfg.Method)
	if err != nil {
		return err
	}
	e, err := env.New(settings, conv)
	if err != nil {
		return err
	}
	cur, err := runner.NewCursor(e, pol, maxSteps(cfg.Iterations))
	if err != nil {
		return err
	}

	var placements []model.Placement
	summary, err := cur.Run(func(ev runner.Event) error {
		switch ev.Kind {
		case runner.EventPlacement:
			placements = append(placements, *ev.Placement)
			slog.Debug("placed",
				"item", ev.Placement.ItemSeq,
				"bin", ev.Placement.Bin,
				"pos", ev.Placement.Position,
				"size", ev.Placement.Size,
				"reward", ev.Reward)
		case runner.EventBinClosed:
			slog.Info("bin closed",
				"bin", ev.Bin.Bin,
				"items", ev.Bin.Items,
				"utilization", ev.Bin.Utilization)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("method:       %s\n", pol.Name())
	fmt.Printf("status:       %s\n", summary.Status)
	fmt.Printf("items placed: %d\n", summary.ItemsPlaced)
	fmt.Printf("bins used:    %d\n", summary.BinsUsed)
	fmt.Printf("mean util:    %.1f%%\n", summary.MeanUtilization*100)
	fmt.Printf("total reward: %.3f\n", summary.TotalReward)

	res := freight.FromEpisode(settings.BinSize, placements, summary)
	res.Algorithm = "deeppack-" + cfg.Method
	if err := writeExports(cfg.Export, res); err != nil {
		return err
	}

	if saveJob {
		dir, err := project.DefaultJobsDir()
		if err != nil {
			return err
		}
		job := project.NewJob(freight.Request{
			Container: res.Container,
			Method:    cfg.Method,
			Lookahead: cfg.Lookahead,
			Rotate:    cfg.Rotate,
			MaxBins:   cfg.MaxBins,
		}, res)
		path := project.JobPath(dir, res.JobID)
		if err := project.SaveJob(path, job); err != nil {
			return err
		}
		slog.Info("job saved", "path", path)
	}
	return nil
}

func writeExports(spec config.ExportSpec, res *freight.Result) error {
	if spec.PDF != "" {
		if err := export.ExportPDF(spec.PDF, res); err != nil {
			return fmt.Errorf("pdf export: %w", err)
		}
		slog.Info("load plan written", "path", spec.PDF)
	}
	if spec.Labels != "" {
		if err := export.ExportLabels(spec.Labels, res); err != nil {
			return fmt.Errorf("label export: %w", err)
		}
		slog.Info("labels written", "path", spec.Labels)
	}
	if spec.XLSX != "" {
		if err := export.ExportXLSX(spec.XLSX, res); err != nil {
			return fmt.Errorf("xlsx export: %w", err)
		}
		slog.Info("manifest written", "path", spec.XLSX)
	}
	if spec.DXF != "" {
		if err := export.ExportDXF(spec.DXF, res); err != nil {
			return fmt.Errorf("dxf export: %w", err)
		}
		slog.Info("layout written", "path", spec.DXF)
	}
	return nil
}

func runCompare(settings model.Settings, conv conveyor.Conveyor, iterations int) error {
	results, err := runner.ComparePolicies(settings, conv, runner.DefaultPolicies(), maxSteps(iterations))
	if err != nil {
		return err
	}

	fmt.Printf("%-20s %8s %6s %10s %8s\n", "method", "items", "bins", "mean util", "status")
	for _, r := range results {
		fmt.Printf("%-20s %8d %6d %9.1f%% %8s\n",
			r.Policy,
			r.Summary.ItemsPlaced,
			r.Summary.BinsUsed,
			r.Summary.MeanUtilization*100,
			r.Summary.Status)
	}
	return nil
}
