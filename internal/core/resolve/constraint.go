package resolve

import (
	"fmt"
	"strings"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
)

// ConstraintKind enumerates the closed set of dimension-constraint shapes
// that appear in persisted slices. Modeling them as variants keeps the
// eligibility filter a total match rather than string sniffing scattered
// through the pipeline.
type ConstraintKind int

const (
	// ConstraintValue pins the dimension to one concrete value. The only
	// shape that can participate in a provably complete partition.
	ConstraintValue ConstraintKind = iota

	// ConstraintAnyValue matches every value of the dimension ("any", "*").
	ConstraintAnyValue

	// ConstraintCaseSelector selects a named sub-case ("case:<name>").
	ConstraintCaseSelector

	// ConstraintExclusion matches everything except one value ("!<value>").
	ConstraintExclusion
)

// Constraint is one parsed dimension-constraint expression.
type Constraint struct {
	Kind  ConstraintKind
	Value string
}

// ParseConstraint classifies a persisted constraint expression. Unknown
// inputs fall through to ConstraintValue: a plain string is by far the
// common case and anything else is caught by MECE validation downstream.
func ParseConstraint(raw string) Constraint {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "" || trimmed == "*" || strings.EqualFold(trimmed, "any"):
		return Constraint{Kind: ConstraintAnyValue}
	case strings.HasPrefix(trimmed, "case:"):
		return Constraint{Kind: ConstraintCaseSelector, Value: strings.TrimPrefix(trimmed, "case:")}
	case strings.HasPrefix(trimmed, "!"):
		return Constraint{Kind: ConstraintExclusion, Value: strings.TrimPrefix(trimmed, "!")}
	default:
		return Constraint{Kind: ConstraintValue, Value: trimmed}
	}
}

// member is a slice that survived the signature and eligibility filters,
// carrying its parsed identity so later stages never re-parse.
type member struct {
	slice  *v1.Slice
	sig    v1.Signature
	values map[string]string // dimension key -> concrete value
}

// eligible checks that a slice can participate in a provably complete
// partition: its structure is sound and every constraint pins a single
// concrete value. Returns the extracted value map on success, or the skip
// detail on failure.
func eligible(s *v1.Slice) (map[string]string, map[string]string) {
	if s.RetrievedAt.IsZero() {
		return nil, map[string]string{"field": "retrieved_at", "problem": "zero timestamp"}
	}
	if len(s.Series) == 0 {
		return nil, map[string]string{"field": "series", "problem": "empty"}
	}

	seen := make(map[v1.Date]struct{}, len(s.Series))
	for _, p := range s.Series {
		if _, dup := seen[p.Date]; dup {
			return nil, map[string]string{"field": "series", "problem": fmt.Sprintf("duplicate date %s", p.Date)}
		}
		seen[p.Date] = struct{}{}
	}

	values := make(map[string]string, len(s.DimensionConstraints))
	for key, raw := range s.DimensionConstraints {
		c := ParseConstraint(raw)
		switch c.Kind {
		case ConstraintValue:
			values[key] = c.Value
		case ConstraintAnyValue:
			return nil, map[string]string{"dimension": key, "problem": "non-partitionable constraint: any value"}
		case ConstraintCaseSelector:
			return nil, map[string]string{"dimension": key, "problem": "non-partitionable constraint: case selector"}
		case ConstraintExclusion:
			return nil, map[string]string{"dimension": key, "problem": "non-partitionable constraint: exclusion"}
		}
	}
	return values, nil
}
