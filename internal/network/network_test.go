package network

import (
	"math"
	"testing"
)

func TestEdge_Validate(t *testing.T) {
	tests := []struct {
		name    string
		edge    Edge
		wantErr error
	}{
		{
			name:    "valid edge",
			edge:    Edge{TF: "STAT3", Target: "JUN", Importance: 2.5},
			wantErr: nil,
		},
		{
			name:    "zero importance",
			edge:    Edge{TF: "STAT3", Target: "JUN"},
			wantErr: nil,
		},
		{
			name:    "empty TF",
			edge:    Edge{Target: "JUN", Importance: 1},
			wantErr: ErrEmptyTF,
		},
		{
			name:    "empty target",
			edge:    Edge{TF: "STAT3", Importance: 1},
			wantErr: ErrEmptyTarget,
		},
		{
			name:    "negative importance",
			edge:    Edge{TF: "STAT3", Target: "JUN", Importance: -1},
			wantErr: ErrNegativeImportance,
		},
		{
			name:    "NaN importance",
			edge:    Edge{TF: "STAT3", Target: "JUN", Importance: math.NaN()},
			wantErr: ErrNonFiniteImportance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.edge.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromRows_AssignsIDsInOrder(t *testing.T) {
	net := FromRows([]Row{{"A", "B", 1}, {"A", "B", 1}, {"B", "C", 2}})
	for i, e := range net {
		if e.ID != i {
			t.Errorf("row %d has ID %d", i, e.ID)
		}
	}
	if net[0].ID == net[1].ID {
		t.Error("duplicate value rows must keep distinct IDs")
	}
}

func TestRole_Of(t *testing.T) {
	e := Edge{TF: "SMAD3", Target: "COL1A1"}
	if got := SourceRole.Of(e); got != "SMAD3" {
		t.Errorf("SourceRole.Of = %q, want SMAD3", got)
	}
	if got := TargetRole.Of(e); got != "COL1A1" {
		t.Errorf("TargetRole.Of = %q, want COL1A1", got)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"TF", SourceRole, false},
		{"source", SourceRole, false},
		{"target", TargetRole, false},
		{"output", TargetRole, false},
		{"importance", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNetwork_Values(t *testing.T) {
	net := FromRows([]Row{{"B", "X", 1}, {"A", "Y", 1}, {"B", "Z", 1}})
	got := net.Values(SourceRole)
	want := []string{"B", "A"}
	if len(got) != len(want) {
		t.Fatalf("Values = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNetwork_Refined(t *testing.T) {
	net := FromRows([]Row{
		{"A", "B", 1},
		{"C", "D", 5},
		{"A", "B", 1},
		{"E", "F", 3},
		{"A", "B", 2},
	})

	got := net.Refined()
	want := []Row{{"C", "D", 5}, {"E", "F", 3}, {"A", "B", 2}, {"A", "B", 1}}
	if len(got) != len(want) {
		t.Fatalf("Refined() returned %d rows, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Row() != want[i] {
			t.Errorf("row %d = %v, want %v", i, got[i].Row(), want[i])
		}
	}
}

func TestNetwork_RefinedEmpty(t *testing.T) {
	got := Network(nil).Refined()
	if got == nil || len(got) != 0 {
		t.Errorf("Refined() of empty network = %#v, want empty non-nil table", got)
	}
}

func TestConcat_KeepsDuplicates(t *testing.T) {
	a := FromRows([]Row{{"A", "B", 1}})
	got := Concat(a, a, nil)
	if len(got) != 2 {
		t.Errorf("Concat returned %d rows, want 2", len(got))
	}
}

func TestNetwork_FindDuplicatePairs(t *testing.T) {
	net := FromRows([]Row{{"A", "B", 1}, {"A", "B", 3}, {"B", "C", 1}})
	dups := net.FindDuplicatePairs()
	if len(dups) != 1 || dups[Pair{"A", "B"}] != 2 {
		t.Errorf("FindDuplicatePairs() = %v", dups)
	}
}

func TestNetwork_SelfLoops(t *testing.T) {
	net := FromRows([]Row{{"A", "A", 1}, {"A", "B", 3}})
	if loops := net.SelfLoops(); len(loops) != 1 || loops[0].TF != "A" {
		t.Errorf("SelfLoops() = %v", loops)
	}
}
