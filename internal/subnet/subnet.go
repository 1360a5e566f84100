// Package subnet extracts the input-to-output subnetwork that the path search
// walks.
package subnet

import "github.com/matsen/grnrefine/internal/network"

// Extract builds the working subnetwork from the input-restricted edges (in),
// the output-restricted edges (out) and the library-filtered network.
//
// Input edges are kept only when their target is itself a TF of filtered, so
// direct input-to-output edges whose output never acts as a TF are excluded.
// With includeIntermediates, TF-TF edges are added when they leave a TF
// reached by an input edge and enter a TF that regulates an output. The
// result is in_tf, then TF-TF, then out, with no deduplication.
func Extract(in, out, filtered network.Network, includeIntermediates bool) network.Network {
	tfs := filtered.ValueSet(network.SourceRole)

	inTF := in.Where(func(e network.Edge) bool { return tfs[e.Target] })
	if !includeIntermediates {
		return network.Concat(inTF, out)
	}
	return network.Concat(inTF, Intermediates(filtered, inTF, out), out)
}

// Intermediates returns the TF-TF rows of filtered that start at a target of
// inTF and end at a TF of tfOut. The two conditions are evaluated as separate
// row sets and intersected by row identity.
func Intermediates(filtered, inTF, tfOut network.Network) network.Network {
	tfs := filtered.ValueSet(network.SourceRole)
	tftf := filtered.Where(func(e network.Edge) bool { return tfs[e.Target] })

	reached := inTF.ValueSet(network.TargetRole)
	feeding := tfOut.ValueSet(network.SourceRole)

	fromInput := tftf.Where(func(e network.Edge) bool { return reached[e.TF] })
	toOutput := tftf.Where(func(e network.Edge) bool { return feeding[e.Target] }).IDSet()

	return fromInput.Where(func(e network.Edge) bool { return toOutput[e.ID] })
}
