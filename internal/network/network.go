// Package network defines the core domain types for weighted TF-target networks.
package network

import (
	"cmp"
	"errors"
	"math"
	"slices"
)

// Edge is a single regulatory interaction: a transcription factor (TF)
// regulating a target gene with an inferred importance.
type Edge struct {
	// ID is the row identity assigned at load time. Two rows with equal
	// values keep distinct IDs so row-level set operations stay exact.
	ID         int     `json:"id"`
	TF         string  `json:"tf"`
	Target     string  `json:"target"`
	Importance float64 `json:"importance"`
}

// Validation errors.
var (
	ErrEmptyTF             = errors.New("TF is required")
	ErrEmptyTarget         = errors.New("target is required")
	ErrNegativeImportance  = errors.New("importance must be non-negative")
	ErrNonFiniteImportance = errors.New("importance must be finite")
)

// Validate checks the structural requirements of an edge.
func (e *Edge) Validate() error {
	if e.TF == "" {
		return ErrEmptyTF
	}
	if e.Target == "" {
		return ErrEmptyTarget
	}
	if math.IsNaN(e.Importance) || math.IsInf(e.Importance, 0) {
		return ErrNonFiniteImportance
	}
	if e.Importance < 0 {
		return ErrNegativeImportance
	}
	return nil
}

// Key returns the (TF, target) pair of the edge.
func (e *Edge) Key() Pair {
	return Pair{TF: e.TF, Target: e.Target}
}

// Pair identifies an interaction independent of its weight or row.
type Pair struct {
	TF     string
	Target string
}

// Row is the value portion of an edge used for exact-duplicate detection.
type Row struct {
	TF         string  `json:"tf"`
	Target     string  `json:"target"`
	Importance float64 `json:"importance"`
}

// Row returns the value portion of the edge.
func (e *Edge) Row() Row {
	return Row{TF: e.TF, Target: e.Target, Importance: e.Importance}
}

// Network is an ordered edge table. Order is significant: it fixes the
// neighbour iteration order of every traversal built on top of it.
type Network []Edge

// FromRows builds a network from value rows, assigning IDs in row order.
func FromRows(rows []Row) Network {
	net := make(Network, len(rows))
	for i, r := range rows {
		net[i] = Edge{ID: i, TF: r.TF, Target: r.Target, Importance: r.Importance}
	}
	return net
}

// Renumber returns a copy of the network with IDs reassigned in row order.
func (n Network) Renumber() Network {
	out := make(Network, len(n))
	for i, e := range n {
		e.ID = i
		out[i] = e
	}
	return out
}

// Where returns the rows for which keep returns true, in table order.
func (n Network) Where(keep func(Edge) bool) Network {
	out := make(Network, 0)
	for _, e := range n {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Values returns the distinct values of a role column in first-seen order.
func (n Network) Values(role Role) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range n {
		v := role.Of(e)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// ValueSet returns the distinct values of a role column as a set.
func (n Network) ValueSet(role Role) map[string]bool {
	set := make(map[string]bool)
	for _, e := range n {
		set[role.Of(e)] = true
	}
	return set
}

// IDSet returns the row identities present in the network.
func (n Network) IDSet() map[int]bool {
	set := make(map[int]bool, len(n))
	for _, e := range n {
		set[e.ID] = true
	}
	return set
}

// Concat joins tables in argument order without deduplication.
func Concat(parts ...Network) Network {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make(Network, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Refined sorts by importance descending and drops rows that are identical
// across TF, target and importance. Ties keep their table order.
func (n Network) Refined() Network {
	sorted := slices.Clone(n)
	slices.SortStableFunc(sorted, func(a, b Edge) int {
		return cmp.Compare(b.Importance, a.Importance)
	})

	seen := make(map[Row]bool, len(sorted))
	out := make(Network, 0, len(sorted))
	for _, e := range sorted {
		if seen[e.Row()] {
			continue
		}
		seen[e.Row()] = true
		out = append(out, e)
	}
	return out
}

// FindDuplicatePairs reports (TF, target) pairs that occur on more than one row.
func (n Network) FindDuplicatePairs() map[Pair]int {
	counts := make(map[Pair]int)
	for _, e := range n {
		counts[e.Key()]++
	}

	duplicates := make(map[Pair]int)
	for key, count := range counts {
		if count > 1 {
			duplicates[key] = count
		}
	}
	return duplicates
}

// SelfLoops returns rows whose TF regulates itself.
func (n Network) SelfLoops() Network {
	return n.Where(func(e Edge) bool { return e.TF == e.Target })
}
