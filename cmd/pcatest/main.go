// Command pcatest runs the PCA pipeline on a synthetic or recorded walk and
// prints a diagnostic report.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"spider-pca/internal/analysis"
	"spider-pca/internal/config"
	"spider-pca/internal/loader"
	"spider-pca/internal/logging"
	"spider-pca/internal/markers"
)

func main() {
	input := flag.String("f", "", "Marker table (default: synthetic spider)")
	frames := flag.Int("n", 120, "Synthetic frames")
	seed := flag.Int64("seed", 1, "Synthetic seed")
	pooling := flag.String("pool", "", "Pooling: body, legs or bilateral (default: all three)")
	keep := flag.Int("k", 3, "Components kept for the partial reconstruction")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logging.New(level, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	cfg := config.Default()

	var ds *loader.Dataset
	if *input != "" {
		fmt.Printf("=== Loading %s ===\n", *input)
		ds, err = loader.Load(*input, cfg.Loader, log)
	} else {
		fmt.Printf("=== Synthetic spider: %d frames, seed %d ===\n", *frames, *seed)
		ds, err = analysis.SyntheticSpider(*frames, cfg.Anatomy, *seed)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load markers: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  Frames:  %d\n", ds.Markers.Frames)
	fmt.Printf("  Markers: %d\n", ds.Markers.Markers)
	if ds.Dropped > 0 {
		fmt.Printf("  Dropped: %d rows with missing values\n", ds.Dropped)
	}

	poolings := []analysis.Pooling{analysis.PoolBody, analysis.PoolLegs, analysis.PoolBilateral}
	if *pooling != "" {
		poolings = []analysis.Pooling{analysis.Pooling(*pooling)}
	}

	failed := false
	for _, p := range poolings {
		opts := cfg.Analysis
		opts.Pooling = p
		if err := report(ds, cfg, opts, *keep); err != nil {
			fmt.Fprintf(os.Stderr, "  %s pooling failed: %v\n", p, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func report(ds *loader.Dataset, cfg config.Config, opts analysis.Options, keep int) error {
	fmt.Printf("\n=== %s pooling ===\n", opts.Pooling)

	session, err := analysis.NewSession(cfg.Anatomy, opts, nil)
	if err != nil {
		return err
	}
	if err := session.SetData(ds); err != nil {
		return err
	}
	fit, err := session.Fit(nil)
	if err != nil {
		return err
	}
	samples, features := fit.Scores.Dims()
	fmt.Printf("  Samples: %d  Features: %d\n", samples, features)

	ratio := fit.Model.ExplainedVarianceRatio()
	cum := fit.Model.CumulativeVarianceRatio()
	for i := 0; i < len(ratio) && i < 5; i++ {
		fmt.Printf("  PC%-2d %6.2f%%  (cumulative %6.2f%%)\n", i+1, 100*ratio[i], 100*cum[i])
	}
	fmt.Printf("  95%% of variance in %d components\n", fit.Model.ComponentsFor(0.95))

	full, err := session.Reconstruct(nil)
	if err != nil {
		return err
	}
	fmt.Printf("  Full reconstruction RMS error:    %.3g\n", rmsError(full, ds.Markers))

	if keep > features {
		keep = features
	}
	components := make([]int, keep)
	for i := range components {
		components[i] = i
	}
	partial, err := session.Reconstruct(components)
	if err != nil {
		return err
	}
	fmt.Printf("  %d-component reconstruction RMS: %.3g\n", keep, rmsError(partial, ds.Markers))

	anim, err := session.Animate(0, opts.AnimationFrames)
	if err != nil {
		return err
	}
	fmt.Printf("  PC1 animation: %d frames, peak excursion %.3g\n",
		anim.Markers.Frames, peakExcursion(anim.Markers))
	size := anim.Markers.Extent().Size()
	fmt.Printf("  PC1 animation extent: %.3g x %.3g x %.3g (lateral %.3g)\n",
		size.X, size.Y, size.Z, size.Coord(cfg.Anatomy.LateralAxis))
	fmt.Printf("  PC1 animation centroid drift: %.3g\n", centroidDrift(anim.Markers))
	return nil
}

func rmsError(a, b markers.Frame) float64 {
	var sum float64
	for i := range a.Data {
		d := a.Data[i] - b.Data[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(a.Data)))
}

// centroidDrift is the largest distance the pose centroid moves from its
// position in the first animation frame.
func centroidDrift(x markers.Frame) float64 {
	start := x.Centroid(0)
	var drift float64
	for f := 1; f < x.Frames; f++ {
		drift = math.Max(drift, x.Centroid(f).Distance(start))
	}
	return drift
}

// peakExcursion is the largest distance any marker travels from its
// position in the first animation frame.
func peakExcursion(x markers.Frame) float64 {
	var peak float64
	for f := 1; f < x.Frames; f++ {
		for m := 0; m < x.Markers; m++ {
			peak = math.Max(peak, x.Point(f, m).Distance(x.Point(0, m)))
		}
	}
	return peak
}
