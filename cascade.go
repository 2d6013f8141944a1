package tilecluster

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Feature names one of the per-tile feature vectors.
type Feature int

const (
	FeatureAdjacency Feature = iota
	FeatureWindow
	FeatureMirror
	FeaturePixel
)

var featureNames = map[Feature]string{
	FeatureAdjacency: "adjacency",
	FeatureWindow:    "window",
	FeatureMirror:    "mirror",
	FeaturePixel:     "pixel",
}

var featureAliases = map[string]Feature{
	"adjacency":       FeatureAdjacency,
	"adj":             FeatureAdjacency,
	"window":          FeatureWindow,
	"window-location": FeatureWindow,
	"win":             FeatureWindow,
	"mirror":          FeatureMirror,
	"partial-mirror":  FeatureMirror,
	"pixel":           FeaturePixel,
	"pixels":          FeaturePixel,
}

func (f Feature) String() string {
	if name, ok := featureNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Feature(%d)", int(f))
}

// ParseFeatureSet parses a comma separated feature list such as
// "adjacency,window". An empty string yields an empty set.
func ParseFeatureSet(s string) ([]Feature, error) {
	var out []Feature
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		f, ok := featureAliases[part]
		if !ok {
			return nil, fmt.Errorf("unknown feature %q: %w", part, ErrConfig)
		}
		out = append(out, f)
	}
	return out, nil
}

// ParseFeatureWeights parses per-feature weights such as
// "adjacency=1,window=0.5". Features not listed keep weight 1. Weights must
// be finite and non-negative.
func ParseFeatureWeights(s string) (map[Feature]float64, error) {
	weights := make(map[Feature]float64)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("weight %q is not of the form feature=value: %w", part, ErrConfig)
		}
		f, ok := featureAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown feature %q: %w", name, ErrConfig)
		}
		if _, dup := weights[f]; dup {
			return nil, fmt.Errorf("feature %v weighted twice: %w", f, ErrConfig)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || w < 0 || math.IsInf(w, 0) || math.IsNaN(w) {
			return nil, fmt.Errorf("weight %q for %v: %w", value, f, ErrConfig)
		}
		weights[f] = w
	}
	return weights, nil
}

// block returns the feature columns of tile i.
func (fv *FeatureVectors) block(f Feature, i int) []float64 {
	switch f {
	case FeatureAdjacency:
		return fv.Adjacency[i]
	case FeatureWindow:
		return fv.Windows[i]
	case FeatureMirror:
		return []float64{float64(fv.Mirror[i])}
	case FeaturePixel:
		return fv.Pixels[i]
	}
	return nil
}

// Matrix concatenates the selected features column-wise, in selector
// order, one row per tile. Each block is scaled by its weight (1 when
// absent from weights). rows restricts and orders the tiles; nil means
// every tile.
func (fv *FeatureVectors) Matrix(features []Feature, weights map[Feature]float64, rows []int) (*mat.Dense, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("empty feature selection: %w", ErrConfig)
	}
	if rows == nil {
		rows = make([]int, fv.Len())
		for i := range rows {
			rows[i] = i
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no tiles to cluster: %w", ErrConfig)
	}
	cols := 0
	for _, f := range features {
		if _, ok := featureNames[f]; !ok {
			return nil, fmt.Errorf("unknown feature %v: %w", f, ErrConfig)
		}
		cols += len(fv.block(f, rows[0]))
	}
	if cols == 0 {
		return nil, fmt.Errorf("features %v have no columns: %w", features, ErrConfig)
	}

	m := mat.NewDense(len(rows), cols, nil)
	for r, tile := range rows {
		c := 0
		for _, f := range features {
			w, ok := weights[f]
			if !ok {
				w = 1
			}
			for _, v := range fv.block(f, tile) {
				m.Set(r, c, v*w)
				c++
			}
		}
	}
	return m, nil
}

// CascadeState tracks the progress of a cascade run.
type CascadeState int

const (
	StateInit CascadeState = iota
	StatePhase1Done
	StatePhase2Done
	StateTerminal
)

func (s CascadeState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePhase1Done:
		return "phase1-done"
	case StatePhase2Done:
		return "phase2-done"
	case StateTerminal:
		return "terminal"
	}
	return fmt.Sprintf("CascadeState(%d)", int(s))
}

// CascadeConfig selects the features and cluster counts of both phases.
type CascadeConfig struct {
	First  []Feature
	K1     int
	Second []Feature
	// K2 of 0, or an empty Second, skips the second phase.
	K2      int
	Weights map[Feature]float64
}

// Labeling maps each tileset index to its final cluster label.
type Labeling []int

// Map returns the labels keyed by the decimal tileset index.
func (l Labeling) Map() map[string]int {
	out := make(map[string]int, len(l))
	for i, label := range l {
		out[strconv.Itoa(i)] = label
	}
	return out
}

// Groups returns the sorted label ids and, for each, its member indices in
// ascending order.
func (l Labeling) Groups() ([]int, map[int][]int) {
	groups := make(map[int][]int)
	for i, label := range l {
		groups[label] = append(groups[label], i)
	}
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, groups
}

// CascadeResult records every stage of a cascade run.
type CascadeResult struct {
	State CascadeState
	// Phase1 holds the first-phase label of every tile.
	Phase1 []int
	// Largest is the most populated first-phase label.
	Largest int
	// Members lists the tiles of the largest group, ascending.
	Members []int
	// Sub holds the second-phase label of each member, aligned with
	// Members; nil when the second phase was skipped.
	Sub    []int
	Labels Labeling
}

// Cascade is a two-phase clusterer: the first phase partitions every tile,
// the second re-partitions only the largest first-phase group using a
// different feature selection.
type Cascade struct {
	Config      CascadeConfig
	Partitioner Partitioner
	// Second partitions the largest group; nil means Partitioner.
	Second Partitioner
	logger *slog.Logger
}

// CascadeOption is a functional option for configuring a Cascade.
type CascadeOption func(*Cascade)

// WithPartitioner replaces the default KMeans partitioner.
func WithPartitioner(p Partitioner) CascadeOption {
	return func(c *Cascade) { c.Partitioner = p }
}

// WithSecondPartitioner uses p for the second phase only.
func WithSecondPartitioner(p Partitioner) CascadeOption {
	return func(c *Cascade) { c.Second = p }
}

// WithCascadeLogger sets the logger used for phase diagnostics.
func WithCascadeLogger(logger *slog.Logger) CascadeOption {
	return func(c *Cascade) { c.logger = logger }
}

// NewCascade creates a Cascade for cfg using DefaultKMeans unless another
// partitioner is supplied.
func NewCascade(cfg CascadeConfig, opts ...CascadeOption) *Cascade {
	c := &Cascade{
		Config:      cfg,
		Partitioner: DefaultKMeans(),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cascade) validate() error {
	cfg := c.Config
	if len(cfg.First) == 0 {
		return fmt.Errorf("first feature selection is empty: %w", ErrConfig)
	}
	if cfg.K1 <= 0 {
		return fmt.Errorf("first cluster count %d: %w", cfg.K1, ErrConfig)
	}
	if cfg.K2 < 0 {
		return fmt.Errorf("second cluster count %d: %w", cfg.K2, ErrConfig)
	}
	for _, f := range append(slices.Clone(cfg.First), cfg.Second...) {
		if _, ok := featureNames[f]; !ok {
			return fmt.Errorf("unknown feature %v: %w", f, ErrConfig)
		}
	}
	return nil
}

// Run clusters the tiles described by fv. Configuration errors are
// reported before any clustering work is done.
//
// The largest first-phase group is the label with the highest member
// count; ties go to the smallest label id. In the second phase sub-label 0
// keeps the parent label and sub-label a > 0 becomes K1+a-1, so final
// labels never collide with first-phase ids. K2 is clamped to the size of
// the largest group.
func (c *Cascade) Run(fv *FeatureVectors) (*CascadeResult, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	cfg := c.Config
	if cfg.K1 > fv.Len() {
		return nil, fmt.Errorf("first cluster count %d exceeds %d tiles: %w", cfg.K1, fv.Len(), ErrConfig)
	}
	res := &CascadeResult{State: StateInit}

	x1, err := fv.Matrix(cfg.First, cfg.Weights, nil)
	if err != nil {
		return nil, err
	}
	phase1, err := c.Partitioner.Partition(x1, cfg.K1)
	if err != nil {
		return nil, fmt.Errorf("first phase: %w", err)
	}
	res.Phase1 = slices.Clone(phase1)
	res.State = StatePhase1Done

	res.Largest = largestLabel(phase1)
	for i, label := range phase1 {
		if label == res.Largest {
			res.Members = append(res.Members, i)
		}
	}
	c.logger.Debug("tilecluster: first phase done",
		"k", cfg.K1, "features", cfg.First,
		"largest", res.Largest, "members", len(res.Members))

	labels := slices.Clone(phase1)
	if cfg.K2 == 0 || len(cfg.Second) == 0 {
		res.Labels = labels
		res.State = StateTerminal
		return res, nil
	}

	k2 := cfg.K2
	if k2 > len(res.Members) {
		c.logger.Warn("tilecluster: second cluster count clamped",
			"k2", cfg.K2, "members", len(res.Members))
		k2 = len(res.Members)
	}
	x2, err := fv.Matrix(cfg.Second, cfg.Weights, res.Members)
	if err != nil {
		return nil, err
	}
	second := c.Second
	if second == nil {
		second = c.Partitioner
	}
	sub, err := second.Partition(x2, k2)
	if err != nil {
		return nil, fmt.Errorf("second phase: %w", err)
	}
	res.Sub = slices.Clone(sub)
	for j, tile := range res.Members {
		if a := sub[j]; a > 0 {
			labels[tile] = cfg.K1 + a - 1
		}
	}
	res.Labels = labels
	res.State = StatePhase2Done
	c.logger.Debug("tilecluster: second phase done", "k", k2, "features", cfg.Second)
	return res, nil
}

// largestLabel returns the most frequent label, preferring the smallest
// id among equally frequent labels.
func largestLabel(labels []int) int {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	best, bestCount := 0, -1
	for l, n := range counts {
		if n > bestCount || (n == bestCount && l < best) {
			best, bestCount = l, n
		}
	}
	return best
}
