// Package endpoint selects the input TFs and output genes that bound the
// refined subnetwork.
package endpoint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/matsen/grnrefine/internal/network"
)

// DefaultInputs are the signalling TFs used when no inputs are configured.
var DefaultInputs = []string{
	"STAT1", "STAT3", "JUN", "FOS", "NFKB1", "RELA", "CREB1", "CREBBP",
	"SMAD3", "MYC", "NFATC1", "NFATC3", "SRF", "TEAD2", "TEAD4", "YAP1", "WWTR1",
}

// DefaultOutputs are the fibrosis-associated output genes used when no
// outputs are configured and regex selection is off.
var DefaultOutputs = []string{
	"CTGF", "FN1", "ACTA2", "TIMP1", "TIMP2", "SERPINE1", "MMP12",
	"MMP14", "MMP1", "MMP2", "MMP3", "MMP8", "MMP9", "POSTN", "COL1A1",
	"COL1A2", "COL3A1", "TNC", "THBS4", "SPP1",
}

// DefaultOutputPatterns select output gene families when regex selection is on.
var DefaultOutputPatterns = []string{
	`^COL\d{1,2}A\d$`, // collagens
	`^MMP\d`,          // matrix metalloproteinases
	`TIMP\d`,
	`CTS+[A-Z]`, // cathepsins
	`TGFB\d$`,
	`THBS\d`,
	`^LOX`,
	"SPP1", "POSTN", "^FN1", "SPARC$", "TNC", "CTGF", "SERPINE1", "ACTA2",
}

// Select returns the candidates that occur at least once in the role column
// of net. The result follows candidate order, lists each key once, and is
// empty (not nil) when nothing matches.
func Select(net network.Network, candidates []string, role network.Role) []string {
	present := net.ValueSet(role)
	keys := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if present[c] {
			keys = append(keys, c)
			delete(present, c)
		}
	}
	return keys
}

// Restrict returns, for each key in order, the rows whose role column equals
// the key. Rows within one key keep table order.
func Restrict(net network.Network, keys []string, role network.Role) network.Network {
	byKey := make(map[string]network.Network, len(keys))
	for _, e := range net {
		v := role.Of(e)
		byKey[v] = append(byKey[v], e)
	}

	out := make(network.Network, 0)
	for _, k := range keys {
		out = append(out, byKey[k]...)
	}
	return out
}

// MatchOutputs returns the distinct targets of net that match any of the
// patterns, in first-seen order.
func MatchOutputs(net network.Network, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return []string{}, nil
	}
	re, err := regexp.Compile(strings.Join(patterns, "|"))
	if err != nil {
		return nil, fmt.Errorf("compiling output patterns: %w", err)
	}

	outputs := make([]string, 0)
	for _, t := range net.Values(network.TargetRole) {
		if re.MatchString(t) {
			outputs = append(outputs, t)
		}
	}
	return outputs, nil
}
