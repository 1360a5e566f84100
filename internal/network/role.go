package network

import "fmt"

// Role selects one endpoint column of an edge.
type Role int

const (
	// SourceRole is the TF column.
	SourceRole Role = iota
	// TargetRole is the target column.
	TargetRole
)

// Of returns the gene identifier the edge holds in this role.
func (r Role) Of(e Edge) string {
	if r == SourceRole {
		return e.TF
	}
	return e.Target
}

// String returns the column name of the role.
func (r Role) String() string {
	switch r {
	case SourceRole:
		return "TF"
	case TargetRole:
		return "target"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ParseRole converts a column name ("TF", "source", "target") to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "TF", "tf", "source", "input":
		return SourceRole, nil
	case "target", "output":
		return TargetRole, nil
	default:
		return 0, fmt.Errorf("unknown role %q (valid: TF, target)", s)
	}
}
