package endpoint

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/matsen/grnrefine/internal/network"
)

func sampleNetwork() network.Network {
	return network.FromRows([]network.Row{
		{"STAT3", "JUN", 3},
		{"SMAD3", "COL1A1", 2},
		{"JUN", "MMP9", 1},
		{"STAT3", "COL3A1", 4},
		{"SMAD3", "TIMP1", 5},
	})
}

func TestSelect(t *testing.T) {
	net := sampleNetwork()

	tests := []struct {
		name       string
		candidates []string
		role       network.Role
		want       []string
	}{
		{
			name:       "inputs follow candidate order",
			candidates: []string{"SMAD3", "MYC", "STAT3"},
			role:       network.SourceRole,
			want:       []string{"SMAD3", "STAT3"},
		},
		{
			name:       "outputs from target column",
			candidates: []string{"COL3A1", "STAT3", "MMP9"},
			role:       network.TargetRole,
			want:       []string{"COL3A1", "MMP9"},
		},
		{
			name:       "repeated candidates kept once",
			candidates: []string{"STAT3", "SMAD3", "STAT3", "SMAD3"},
			role:       network.SourceRole,
			want:       []string{"STAT3", "SMAD3"},
		},
		{
			name:       "no match",
			candidates: []string{"YAP1"},
			role:       network.SourceRole,
			want:       []string{},
		},
		{
			name:       "no candidates",
			candidates: nil,
			role:       network.TargetRole,
			want:       []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(net, tt.candidates, tt.role)
			if got == nil {
				t.Fatal("Select must return an empty slice, not nil")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Select() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Select()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRestrict_KeyOrder(t *testing.T) {
	net := sampleNetwork()

	got := Restrict(net, []string{"SMAD3", "STAT3"}, network.SourceRole)
	wantIDs := []int{1, 4, 0, 3}
	if len(got) != len(wantIDs) {
		t.Fatalf("Restrict returned %d rows, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("row %d has ID %d, want %d", i, got[i].ID, id)
		}
	}
}

func TestRestrict_Empty(t *testing.T) {
	got := Restrict(sampleNetwork(), nil, network.TargetRole)
	if got == nil || len(got) != 0 {
		t.Errorf("Restrict with no keys = %#v, want empty table", got)
	}
}

func TestMatchOutputs(t *testing.T) {
	net := sampleNetwork()

	got, err := MatchOutputs(net, DefaultOutputPatterns)
	if err != nil {
		t.Fatalf("MatchOutputs failed: %v", err)
	}
	want := []string{"COL1A1", "MMP9", "COL3A1", "TIMP1"}
	if len(got) != len(want) {
		t.Fatalf("MatchOutputs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MatchOutputs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMatchOutputs_InvalidPattern(t *testing.T) {
	if _, err := MatchOutputs(sampleNetwork(), []string{"("}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestSelect_Soundness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	names := []string{"A", "B", "C", "D", "E", "F"}
	genes := gen.IntRange(0, len(names)-1).Map(func(i int) string { return names[i] })
	rowGen := gen.SliceOf(gen.SliceOfN(2, genes))

	properties.Property("selected keys are present, rejected keys are absent", prop.ForAll(
		func(pairs [][]string, candidates []string) bool {
			rows := make([]network.Row, len(pairs))
			for i, p := range pairs {
				rows[i] = network.Row{TF: p[0], Target: p[1], Importance: 1}
			}
			net := network.FromRows(rows)

			for _, role := range []network.Role{network.SourceRole, network.TargetRole} {
				column := net.ValueSet(role)
				selected := make(map[string]bool)
				for _, k := range Select(net, candidates, role) {
					if !column[k] {
						return false
					}
					selected[k] = true
				}
				for _, c := range candidates {
					if !selected[c] && column[c] {
						return false
					}
				}
			}
			return true
		},
		rowGen,
		gen.SliceOf(genes),
	))

	properties.TestingRun(t)
}
