// Package search finds input-to-output regulatory paths whose every edge is
// admitted both top-down (from the regulating TF) and bottom-up (from the
// regulated target).
package search

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"

	"github.com/matsen/grnrefine/internal/network"
)

// Path is a simple path of gene identifiers from an input to an output.
type Path []string

// String renders the path as "A->B->C".
func (p Path) String() string {
	return strings.Join(p, "->")
}

// Input returns the first gene of the path.
func (p Path) Input() string {
	return p[0]
}

// Output returns the last gene of the path.
func (p Path) Output() string {
	return p[len(p)-1]
}

// TerminalTF returns the TF that regulates the output.
func (p Path) TerminalTF() string {
	return p[len(p)-2]
}

// Edges returns the consecutive (TF, target) pairs of the path.
func (p Path) Edges() []network.Pair {
	if len(p) < 2 {
		return nil
	}
	pairs := make([]network.Pair, 0, len(p)-1)
	for i := 0; i+1 < len(p); i++ {
		pairs = append(pairs, network.Pair{TF: p[i], Target: p[i+1]})
	}
	return pairs
}

// Rules are the admission thresholds for an edge. An edge is admitted when
// its importance beats the absolute threshold or the local quantile of its
// neighbour pool.
type Rules struct {
	Absolute float64 `json:"absolute" yaml:"absolute"`
	Quantile float64 `json:"quantile" yaml:"quantile"`
}

// DefaultRules are the thresholds used by the refinement pipeline.
var DefaultRules = Rules{Absolute: 1, Quantile: 0.75}

// ErrInvalidRules is returned by Rules.Validate.
var ErrInvalidRules = errors.New("invalid admission rules")

// Validate checks that the quantile fraction lies in [0, 1] and the absolute
// threshold is a non-negative number.
func (r Rules) Validate() error {
	if math.IsNaN(r.Quantile) || r.Quantile < 0 || r.Quantile > 1 {
		return fmt.Errorf("%w: quantile %v outside [0, 1]", ErrInvalidRules, r.Quantile)
	}
	if math.IsNaN(r.Absolute) || r.Absolute < 0 {
		return fmt.Errorf("%w: absolute threshold %v must be non-negative", ErrInvalidRules, r.Absolute)
	}
	return nil
}

// Searcher holds forward and reverse neighbour pools of a subnetwork. It is
// read-only after construction and safe for concurrent use.
type Searcher struct {
	net     network.Network
	forward map[string][]int // TF -> rows it regulates
	reverse map[string][]int // target -> rows regulating it
	rows    map[network.Pair][]int
}

// New indexes net for searching. Row order of net fixes neighbour order.
func New(net network.Network) *Searcher {
	s := &Searcher{
		net:     net,
		forward: make(map[string][]int),
		reverse: make(map[string][]int),
		rows:    make(map[network.Pair][]int),
	}
	for i, e := range net {
		s.forward[e.TF] = append(s.forward[e.TF], i)
		s.reverse[e.Target] = append(s.reverse[e.Target], i)
		s.rows[e.Key()] = append(s.rows[e.Key()], i)
	}
	return s
}

// Rows returns the subnetwork rows holding the pair, in table order.
func (s *Searcher) Rows(pair network.Pair) network.Network {
	idx := s.rows[pair]
	out := make(network.Network, len(idx))
	for i, j := range idx {
		out[i] = s.net[j]
	}
	return out
}

func (s *Searcher) importances(rows []int) []float64 {
	vals := make([]float64, len(rows))
	for i, j := range rows {
		vals[i] = s.net[j].Importance
	}
	return vals
}

// quantiles memoises the per-node thresholds of one traversal.
type quantiles struct {
	pool  map[string][]int
	cache map[string]float64
	s     *Searcher
	q     float64
}

func (s *Searcher) newQuantiles(pool map[string][]int, q float64) *quantiles {
	return &quantiles{pool: pool, cache: make(map[string]float64), s: s, q: q}
}

func (qs *quantiles) of(node string) float64 {
	if v, ok := qs.cache[node]; ok {
		return v
	}
	v := Quantile(qs.s.importances(qs.pool[node]), qs.q)
	qs.cache[node] = v
	return v
}

// admitForward is the top-down rule: strictly above either threshold.
func admitForward(imp, threshold float64, rules Rules) bool {
	return imp > rules.Absolute || imp > threshold
}

// admitReverse is the bottom-up rule: at or above either threshold.
func admitReverse(imp, threshold float64, rules Rules) bool {
	return imp >= rules.Absolute || imp >= threshold
}

// candidates returns the distinct targets of node admitted by the forward
// rule, in table order.
func (s *Searcher) candidates(node string, fq *quantiles, rules Rules) []string {
	threshold := fq.of(node)
	var out []string
	seen := make(map[string]bool)
	for _, j := range s.forward[node] {
		e := s.net[j]
		if seen[e.Target] || !admitForward(e.Importance, threshold, rules) {
			continue
		}
		seen[e.Target] = true
		out = append(out, e.Target)
	}
	return out
}

// Paths lazily yields the paths from start to any output that pass both the
// forward and the reverse admission rules. Traversal is an exhaustive
// depth-first search driven by an explicit stack; a branch stops at the first
// output it reaches. Breaking out of the loop ends the search.
func (s *Searcher) Paths(start string, outputs []string, rules Rules) iter.Seq[Path] {
	isOutput := make(map[string]bool, len(outputs))
	for _, o := range outputs {
		isOutput[o] = true
	}

	return func(yield func(Path) bool) {
		fq := s.newQuantiles(s.forward, rules.Quantile)
		rq := s.newQuantiles(s.reverse, rules.Quantile)

		type frame struct {
			node string
			path Path
		}
		stack := []frame{{node: start, path: Path{start}}}

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, next := range s.candidates(top.node, fq, rules) {
				if slices.Contains(top.path, next) {
					continue
				}
				extended := append(slices.Clip(top.path), next)
				if !isOutput[next] {
					stack = append(stack, frame{node: next, path: extended})
					continue
				}
				if s.acceptsReverse(extended, rq, rules) && !yield(extended) {
					return
				}
			}
		}
	}
}

// AcceptsReverse reports whether every edge of path passes the bottom-up rule,
// judged against the pool of all edges entering the edge's target.
func (s *Searcher) AcceptsReverse(path Path, rules Rules) bool {
	return s.acceptsReverse(path, s.newQuantiles(s.reverse, rules.Quantile), rules)
}

func (s *Searcher) acceptsReverse(path Path, rq *quantiles, rules Rules) bool {
	for i := len(path) - 1; i > 0; i-- {
		target, tf := path[i], path[i-1]
		threshold := rq.of(target)
		if !s.anyRow(network.Pair{TF: tf, Target: target}, func(imp float64) bool {
			return admitReverse(imp, threshold, rules)
		}) {
			return false
		}
	}
	return true
}

// AcceptsForward reports whether every edge of path passes the top-down rule,
// judged against the pool of all edges leaving the edge's TF.
func (s *Searcher) AcceptsForward(path Path, rules Rules) bool {
	fq := s.newQuantiles(s.forward, rules.Quantile)
	for i := 0; i+1 < len(path); i++ {
		tf, target := path[i], path[i+1]
		threshold := fq.of(tf)
		if !s.anyRow(network.Pair{TF: tf, Target: target}, func(imp float64) bool {
			return admitForward(imp, threshold, rules)
		}) {
			return false
		}
	}
	return true
}

func (s *Searcher) anyRow(pair network.Pair, ok func(float64) bool) bool {
	for _, j := range s.rows[pair] {
		if ok(s.net[j].Importance) {
			return true
		}
	}
	return false
}

// All runs Paths from every input in order and collects the results.
func (s *Searcher) All(inputs, outputs []string, rules Rules) []Path {
	paths := make([]Path, 0)
	for _, in := range inputs {
		for p := range s.Paths(in, outputs, rules) {
			paths = append(paths, p)
		}
	}
	return paths
}
