package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/subcommands"
	"github.com/wbrown/tilecluster"
)

type featuresCmd struct {
	logFlags
	dir          string
	threshold    float64
	windowCounts bool
}

func (c *featuresCmd) Name() string     { return "features" }
func (c *featuresCmd) Synopsis() string { return "compute per-tile features of an extracted run" }
func (c *featuresCmd) Usage() string {
	return "tileclust features -d <dir> [-threshold 0.7 -counts]\n"
}
func (c *featuresCmd) SetFlags(f *flag.FlagSet) {
	c.logFlags.setFlags(f)
	f.StringVar(&c.dir, "d", "", "Run directory written by extract")
	f.Float64Var(&c.threshold, "threshold", 0.7, "Fraction of tile key characters a mirror partial match needs")
	f.BoolVar(&c.windowCounts, "counts", false, "Use per-window occurrence counts instead of presence")
}

func (c *featuresCmd) config() tilecluster.FeatureConfig {
	cfg := tilecluster.DefaultFeatureConfig()
	cfg.MirrorThreshold = c.threshold
	cfg.WindowCounts = c.windowCounts
	return cfg
}

// writeFeatures writes one row per tile: index, adjacency per direction,
// mirror class and the number of windows the tile appears in.
func writeFeatures(path string, cfg tilecluster.FeatureConfig, fv *tilecluster.FeatureVectors) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"tile"}
	for _, d := range cfg.Directions {
		header = append(header, "adj_"+d.String())
	}
	header = append(header, "mirror", "windows")
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < fv.Len(); i++ {
		row := []string{strconv.Itoa(i)}
		for _, v := range fv.Adjacency[i] {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		present := 0
		for _, v := range fv.Windows[i] {
			if v > 0 {
				present++
			}
		}
		row = append(row, strconv.Itoa(fv.Mirror[i]), strconv.Itoa(present))
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func (c *featuresCmd) run() error {
	logger := c.logger()
	r, err := loadRun(c.dir)
	if err != nil {
		return err
	}
	cfg := c.config()
	fv, err := tilecluster.NewFeatureBuilder(cfg, logger).Build(r.tileset, r.windows)
	if err != nil {
		return err
	}
	path := filepath.Join(c.dir, featuresFile)
	if err := writeFeatures(path, cfg, fv); err != nil {
		return fmt.Errorf("write features: %w: %w", tilecluster.ErrIO, err)
	}
	mirrors := make(map[int]int)
	for _, m := range fv.Mirror {
		mirrors[m]++
	}
	logger.Info("features written", "path", path, "tiles", fv.Len(),
		"windows", r.windows.Len(),
		"mirror_none", mirrors[tilecluster.MirrorNone],
		"mirror_other", mirrors[tilecluster.MirrorOther],
		"mirror_self", mirrors[tilecluster.MirrorSelf])
	return nil
}

func (c *featuresCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.dir == "" {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	if err := c.run(); err != nil {
		c.logger().Error("features failed", "err", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
