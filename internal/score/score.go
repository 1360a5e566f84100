// Package score summarises discovered paths and flattens them back into the
// refined edge table.
package score

import (
	"math"

	"github.com/matsen/grnrefine/internal/network"
	"github.com/matsen/grnrefine/internal/search"
)

// Columns names the fields of a scored path table, in output order.
var Columns = []string{
	"path", "importance_total", "importance_sd", "importance_mean",
	"importance_cv", "path_string", "input", "output", "TF",
}

// ScoredPath is a path with aggregate importance statistics.
type ScoredPath struct {
	Path  search.Path
	Total float64
	// SD is the population standard deviation of the edge importances.
	SD float64
	// Mean is Total divided by the number of genes on the path.
	Mean float64
	// CV is SD/Mean. It is NaN when Mean is zero or the path has a single
	// edge, since dispersion is undefined there.
	CV         float64
	PathString string
	Input      string
	Output     string
	TF         string
}

// Score computes statistics for each path against the subnetwork it was
// found in. The result is empty, not nil, when there are no paths.
func Score(net network.Network, paths []search.Path) []ScoredPath {
	imp := firstImportance(net)

	scored := make([]ScoredPath, 0, len(paths))
	for _, p := range paths {
		pairs := p.Edges()
		values := make([]float64, len(pairs))
		for i, pair := range pairs {
			values[i] = imp[pair]
		}

		total := sum(values)
		sd := populationSD(values)
		mean := total / float64(len(p))
		cv := math.NaN()
		if len(values) > 1 {
			cv = sd / mean
		}

		scored = append(scored, ScoredPath{
			Path:       p,
			Total:      total,
			SD:         sd,
			Mean:       mean,
			CV:         cv,
			PathString: p.String(),
			Input:      p.Input(),
			Output:     p.Output(),
			TF:         p.TerminalTF(),
		})
	}
	return scored
}

// Rows collects every subnetwork row used by any path, sorted by importance
// descending with exact duplicates removed.
func Rows(net network.Network, paths []search.Path) network.Network {
	reset := net.Renumber()
	byPair := make(map[network.Pair][]int)
	for i, e := range reset {
		byPair[e.Key()] = append(byPair[e.Key()], i)
	}

	picked := make(network.Network, 0)
	for _, p := range paths {
		for _, pair := range p.Edges() {
			for _, i := range byPair[pair] {
				picked = append(picked, reset[i])
			}
		}
	}
	return picked.Refined()
}

// firstImportance maps each pair to the importance of its first row. Pairs
// repeated across rows of the subnetwork are scored by table order.
func firstImportance(net network.Network) map[network.Pair]float64 {
	imp := make(map[network.Pair]float64, len(net))
	for _, e := range net {
		if _, ok := imp[e.Key()]; !ok {
			imp[e.Key()] = e.Importance
		}
	}
	return imp
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func populationSD(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	mean := sum(values) / float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
