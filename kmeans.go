package tilecluster

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Partitioner splits the rows of a matrix into groups and returns a
// non-negative group id for every row. KMeans ids lie in [0, k).
type Partitioner interface {
	Partition(data mat.Matrix, k int) ([]int, error)
}

// OrdinalPartitioner labels every row by the value of its single column,
// which must be a non-negative integer. k is not consulted. Over the mirror
// feature it makes the mirror class itself the group id.
type OrdinalPartitioner struct{}

// Partition implements Partitioner.
func (OrdinalPartitioner) Partition(data mat.Matrix, k int) ([]int, error) {
	n, d := data.Dims()
	if d != 1 {
		return nil, fmt.Errorf("ordinal partition over %d columns: %w", d, ErrConfig)
	}
	labels := make([]int, n)
	for i := range labels {
		v := data.At(i, 0)
		if v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
			return nil, fmt.Errorf("row %d value %v is not an ordinal: %w", i, v, ErrConfig)
		}
		labels[i] = int(v)
	}
	return labels, nil
}

// KMeans is a seeded Lloyd's k-means with k-means++ seeding. Runs are
// deterministic for a fixed Seed.
type KMeans struct {
	Seed          int64
	MaxIterations int
	// Restarts is the number of independent seedings; the run with the
	// lowest within-cluster sum of squares wins.
	Restarts int
}

// DefaultKMeans returns seed 0, 300 iterations and 10 restarts.
func DefaultKMeans() KMeans {
	return KMeans{Seed: 0, MaxIterations: 300, Restarts: 10}
}

// KMeansResult is the outcome of a single k-means run.
type KMeansResult struct {
	Labels  []int
	Centers *mat.Dense
	Inertia float64
}

// Partition implements Partitioner.
func (km KMeans) Partition(data mat.Matrix, k int) ([]int, error) {
	res, err := km.Run(data, k)
	if err != nil {
		return nil, err
	}
	return res.Labels, nil
}

// Run clusters the rows of data into k groups.
func (km KMeans) Run(data mat.Matrix, k int) (KMeansResult, error) {
	n, _ := data.Dims()
	if k <= 0 {
		return KMeansResult{}, fmt.Errorf("k-means with k=%d: %w", k, ErrConfig)
	}
	if n < k {
		return KMeansResult{}, fmt.Errorf("k-means with k=%d over %d rows: %w", k, n, ErrConfig)
	}
	rows := denseRows(data)
	rng := rand.New(rand.NewSource(km.Seed))

	restarts := max(1, km.Restarts)
	var best KMeansResult
	for run := 0; run < restarts; run++ {
		res := km.lloyd(rows, k, rng)
		if run == 0 || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

func denseRows(data mat.Matrix) [][]float64 {
	n, d := data.Dims()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, d)
		mat.Row(rows[i], i, data)
	}
	return rows
}

func (km KMeans) lloyd(rows [][]float64, k int, rng *rand.Rand) KMeansResult {
	n, d := len(rows), len(rows[0])
	centers := seedPlusPlus(rows, k, rng)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	iterations := max(1, km.MaxIterations)
	for iter := 0; iter < iterations; iter++ {
		// Assign rows to their nearest center
		changed := false
		for i, row := range rows {
			c := nearest(row, centers)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		// Move every non-empty center to the mean of its rows
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, d)
		}
		for i, row := range rows {
			floats.Add(sums[labels[i]], row)
			counts[labels[i]]++
		}
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centers[c] = sums[c]
		}
	}

	inertia := 0.0
	for i, row := range rows {
		inertia += sqDist(row, centers[labels[i]])
	}
	cm := mat.NewDense(k, d, nil)
	for c, center := range centers {
		cm.SetRow(c, center)
	}
	return KMeansResult{Labels: labels, Centers: cm, Inertia: inertia}
}

// seedPlusPlus picks k initial centers: the first uniformly, each next
// with probability proportional to its squared distance from the nearest
// chosen center.
func seedPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(rows)
	chosen := make([]bool, n)
	centers := make([][]float64, 0, k)

	first := rng.Intn(n)
	chosen[first] = true
	centers = append(centers, append([]float64(nil), rows[first]...))

	dist := make([]float64, n)
	for len(centers) < k {
		sum := 0.0
		for i, row := range rows {
			dist[i] = sqDist(row, centers[nearest(row, centers)])
			sum += dist[i]
		}
		next := -1
		if sum > 0 {
			target := rng.Float64() * sum
			for i := range rows {
				if dist[i] == 0 {
					continue
				}
				next = i
				if target -= dist[i]; target <= 0 {
					break
				}
			}
		}
		if next < 0 {
			// Every remaining row coincides with a center
			for i := range rows {
				if !chosen[i] {
					next = i
					break
				}
			}
		}
		chosen[next] = true
		centers = append(centers, append([]float64(nil), rows[next]...))
	}
	return centers
}

func nearest(row []float64, centers [][]float64) int {
	best, bestDist := 0, math.MaxFloat64
	for c, center := range centers {
		if dd := sqDist(row, center); dd < bestDist {
			best, bestDist = c, dd
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		diff := a[i] - b[i]
		s += diff * diff
	}
	return s
}
