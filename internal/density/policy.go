package density

import (
	"strings"

	"github.com/rotisserie/eris"
)

// AreaPolicy decides what happens to records whose area cannot divide.
type AreaPolicy string

const (
	// PolicyExclude drops invalid-area records from every ranking.
	PolicyExclude AreaPolicy = "exclude"
	// PolicyReject fails the whole operation on the first invalid-area record.
	PolicyReject AreaPolicy = "reject"
)

// ParsePolicy maps a config value onto an AreaPolicy. Empty means exclude.
func ParsePolicy(s string) (AreaPolicy, error) {
	switch AreaPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyExclude:
		return PolicyExclude, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", eris.Errorf("density: unknown area policy %q", s)
	}
}
