// Package batch resolves a plan of independent circuit queries.
//
// A plan names one or more queries, each resolving one target wire against
// the circuit, optionally after overriding wire definitions. Queries never
// share resolution caches: every query runs against its own circuit copy
// with a fresh resolver, so results are identical whether the plan runs
// serially or in parallel.
package batch

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidPlan = errors.New("invalid plan")

// PlanError wraps deterministic plan validation failures.
type PlanError struct {
	Msg string
}

func (e *PlanError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", ErrInvalidPlan.Error(), e.Msg)
}

func (e *PlanError) Unwrap() error { return ErrInvalidPlan }

func planErrorf(format string, args ...any) error {
	return &PlanError{Msg: fmt.Sprintf(format, args...)}
}

// Override replaces one wire's gate before a query resolves.
//
// Exactly one of Gate and From must be set:
//   - Gate is a wire-file gate expression ("956", "NOT x", "x AND y").
//   - From names an earlier query in the plan; the override becomes a
//     direct value gate carrying that query's resolved value.
type Override struct {
	Wire string `yaml:"wire"`
	Gate string `yaml:"gate,omitempty"`
	From string `yaml:"from,omitempty"`
}

// Query resolves one target wire.
type Query struct {
	Name      string     `yaml:"name"`
	Target    string     `yaml:"target"`
	Overrides []Override `yaml:"overrides,omitempty"`
}

// Plan is an ordered list of queries. Order matters only for From
// references: a query may take values only from queries listed before it.
type Plan struct {
	Queries []Query `yaml:"queries"`
}

// ParsePlan reads a YAML plan.
//
// The decoder is strict: unknown fields are rejected to avoid silent
// divergence between the file and the model.
func ParsePlan(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse plan yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPlan reads and validates the plan file at path.
func LoadPlan(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	defer f.Close()

	p, err := ParsePlan(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Validate rejects structurally broken plans:
//   - no queries
//   - empty or duplicate query names
//   - empty targets
//   - overrides without a wire, with both or neither of gate/from, or with
//     a from reference that does not name an earlier query
//   - two overrides of the same wire within one query
//
// Rejecting duplicate wires keeps a query's overrides a set, so its cache
// identity does not depend on override order.
func (p *Plan) Validate() error {
	if p == nil || len(p.Queries) == 0 {
		return planErrorf("no queries")
	}

	seen := make(map[string]struct{}, len(p.Queries))
	for i, q := range p.Queries {
		if strings.TrimSpace(q.Name) == "" {
			return planErrorf("queries[%d]: name is required", i)
		}
		if _, dup := seen[q.Name]; dup {
			return planErrorf("duplicate query name: %q", q.Name)
		}
		if strings.TrimSpace(q.Target) == "" {
			return planErrorf("query %q: target is required", q.Name)
		}
		ovWires := make(map[string]struct{}, len(q.Overrides))
		for j, ov := range q.Overrides {
			if strings.TrimSpace(ov.Wire) == "" {
				return planErrorf("query %q: overrides[%d]: wire is required", q.Name, j)
			}
			if _, dup := ovWires[ov.Wire]; dup {
				return planErrorf("query %q: overrides[%d]: duplicate override of wire %q", q.Name, j, ov.Wire)
			}
			ovWires[ov.Wire] = struct{}{}
			hasGate := strings.TrimSpace(ov.Gate) != ""
			hasFrom := strings.TrimSpace(ov.From) != ""
			if hasGate == hasFrom {
				return planErrorf("query %q: overrides[%d]: exactly one of gate/from is required", q.Name, j)
			}
			if hasFrom {
				if _, ok := seen[ov.From]; !ok {
					return planErrorf("query %q: overrides[%d]: from references %q, which is not an earlier query", q.Name, j, ov.From)
				}
			}
		}
		seen[q.Name] = struct{}{}
	}
	return nil
}

// stages partitions the queries into waves: stage 0 holds queries with no
// from-overrides, stage n+1 holds queries whose donors all finished by
// stage n. Queries within a stage are independent of each other.
//
// Validate guarantees donors precede their consumers, so the stage of a
// query is 1 + the maximum stage among its donors.
func (p *Plan) stages() [][]Query {
	stageOf := make(map[string]int, len(p.Queries))
	var out [][]Query

	for _, q := range p.Queries {
		stage := 0
		for _, ov := range q.Overrides {
			if ov.From == "" {
				continue
			}
			if s := stageOf[ov.From] + 1; s > stage {
				stage = s
			}
		}
		stageOf[q.Name] = stage
		for len(out) <= stage {
			out = append(out, nil)
		}
		out[stage] = append(out[stage], q)
	}
	return out
}
