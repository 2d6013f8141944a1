package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	"github.com/wbrown/tilecluster"
	"github.com/wbrown/tilecluster/store"
)

type clusterCmd struct {
	featuresCmd
	first     string
	second    string
	weights   string
	k1, k2    int
	seed      int64
	restarts  int
	ordinal   bool
	sheet     bool
	sheetName string
	bundle    bool
	sheetOpts store.ClusterSheetOptions
}

func (c *clusterCmd) Name() string     { return "cluster" }
func (c *clusterCmd) Synopsis() string { return "cluster the tiles of an extracted run in two phases" }
func (c *clusterCmd) Usage() string {
	return "tileclust cluster -d <dir> -first <features> -k1 <n> [-second <features> -k2 <n>] [-weights f=w,...]\n" +
		"  features: adjacency, window, mirror, pixel\n"
}
func (c *clusterCmd) SetFlags(f *flag.FlagSet) {
	c.featuresCmd.SetFlags(f)
	f.StringVar(&c.first, "first", "adjacency,window", "First phase features")
	f.IntVar(&c.k1, "k1", 8, "First phase cluster count")
	f.StringVar(&c.second, "second", "", "Second phase features (empty skips the second phase)")
	f.IntVar(&c.k2, "k2", 0, "Second phase cluster count (0 skips the second phase)")
	f.StringVar(&c.weights, "weights", "", "Per-feature weights, e.g. adjacency=1,window=0.5")
	f.BoolVar(&c.ordinal, "ordinal", false, "Use the single second phase feature value (e.g. mirror) as the sub-label")
	f.Int64Var(&c.seed, "seed", 0, "k-means random seed")
	f.IntVar(&c.restarts, "restarts", 10, "k-means restarts")
	f.BoolVar(&c.sheet, "sheet", true, "Render a cluster sheet image")
	f.StringVar(&c.sheetName, "sheet_name", clustersFile, "Cluster sheet file name; the extension picks png, jpg or gif")
	f.BoolVar(&c.bundle, "bundle", false, "Store labels in the run's SQLite bundle")
	f.IntVar(&c.sheetOpts.Scale, "sheet_scale", 4, "Cluster sheet tile scale")
	f.IntVar(&c.sheetOpts.Columns, "sheet_columns", 8, "Cluster sheet tiles per row")
}

func (c *clusterCmd) run() error {
	logger := c.logger()
	first, err := tilecluster.ParseFeatureSet(c.first)
	if err != nil {
		return err
	}
	second, err := tilecluster.ParseFeatureSet(c.second)
	if err != nil {
		return err
	}
	weights, err := tilecluster.ParseFeatureWeights(c.weights)
	if err != nil {
		return err
	}

	r, err := loadRun(c.dir)
	if err != nil {
		return err
	}
	fv, err := tilecluster.NewFeatureBuilder(c.config(), logger).Build(r.tileset, r.windows)
	if err != nil {
		return err
	}

	km := tilecluster.DefaultKMeans()
	km.Seed, km.Restarts = c.seed, c.restarts
	opts := []tilecluster.CascadeOption{
		tilecluster.WithPartitioner(km),
		tilecluster.WithCascadeLogger(logger),
	}
	if c.ordinal {
		opts = append(opts, tilecluster.WithSecondPartitioner(tilecluster.OrdinalPartitioner{}))
	}
	cascade := tilecluster.NewCascade(tilecluster.CascadeConfig{
		First:   first,
		K1:      c.k1,
		Second:  second,
		K2:      c.k2,
		Weights: weights,
	}, opts...)
	res, err := cascade.Run(fv)
	if err != nil {
		return err
	}

	out := func(name string) string { return filepath.Join(c.dir, name) }
	if err := store.ExportLabels(out(labelsFile), res.Labels); err != nil {
		return err
	}
	if c.sheet {
		if err := store.ExportClusterSheet(out(c.sheetName), r.tileset, res.Labels, c.sheetOpts); err != nil {
			return err
		}
	}
	if c.bundle {
		if err := c.storeLabels(out(bundleFile), res.Labels); err != nil {
			return err
		}
	}

	ids, groups := res.Labels.Groups()
	for _, id := range ids {
		logger.Debug("cluster", "label", id, "members", groups[id])
	}
	logger.Info("clustering done", "state", res.State, "clusters", len(ids),
		"largest", res.Largest, "largest_members", len(res.Members))
	return nil
}

// storeLabels adds labels to the bundle written by extract.
func (c *clusterCmd) storeLabels(path string, labels tilecluster.Labeling) error {
	w, err := store.OpenBundleWriter(path, store.WithLogger(c.logger()))
	if err != nil {
		return err
	}
	return errors.Join(w.WriteLabels(labels), w.Close())
}

func (c *clusterCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.dir == "" {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	if err := c.run(); err != nil {
		c.logger().Error("cluster failed", "err", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
