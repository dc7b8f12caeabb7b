package batch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"wireweaver/internal/circuit"
	"wireweaver/internal/resultcache"
	"wireweaver/internal/trace"
	"wireweaver/internal/wirefile"
)

// QueryResult is the outcome of one query.
type QueryResult struct {
	Query  string
	Target string
	Value  uint16

	// State is QueryResolved for a fresh resolution pass or QueryReplayed
	// when the value came from the result cache.
	State QueryState

	// Hash is the query's deterministic identity.
	Hash resultcache.QueryHash
}

// RunResult is the deterministic summary of a plan run.
type RunResult struct {
	CircuitHash circuit.CircuitHash

	// FinalState is the terminal state of each query by name.
	FinalState map[string]QueryState

	// Results holds one entry per query, in plan order regardless of
	// completion order.
	Results []QueryResult
}

// Runner resolves a plan's queries against one circuit.
//
// Every query gets its own circuit copy (for overrides) and its own private
// resolver, so no resolution cache is ever shared between queries. Queries
// within a stage run concurrently; all shared runner state is guarded by a
// single mutex.
type Runner struct {
	Circuit *circuit.Circuit

	// Cache, if non-nil, is consulted before resolving and updated after.
	Cache resultcache.Cache

	// Sink, if non-nil, receives trace events for overrides, evaluations,
	// and cache hits, tagged with the query name.
	Sink trace.Sink

	// Parallelism bounds concurrent queries per stage. Values < 1 mean
	// unbounded.
	Parallelism int

	mu     sync.Mutex
	state  map[string]QueryState
	values map[string]uint16 // resolved value by query name
}

// NewRunner creates a runner over the given circuit.
func NewRunner(c *circuit.Circuit) (*Runner, error) {
	if c == nil {
		return nil, fmt.Errorf("nil circuit")
	}
	return &Runner{Circuit: c}, nil
}

// Run resolves all queries in the plan.
//
// Queries are grouped into stages so that from-overrides always read a
// donor query resolved in an earlier stage; queries within a stage are
// independent and run concurrently. The first failing query aborts the run.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if plan == nil {
		return nil, planErrorf("nil plan")
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.state = make(map[string]QueryState, len(plan.Queries))
	r.values = make(map[string]uint16, len(plan.Queries))
	for _, q := range plan.Queries {
		r.state[q.Name] = QueryPending
	}
	r.mu.Unlock()

	resultsByName := make(map[string]QueryResult, len(plan.Queries))
	var resultsMu sync.Mutex

	for _, wave := range plan.stages() {
		g, gctx := errgroup.WithContext(ctx)
		if r.Parallelism > 0 {
			g.SetLimit(r.Parallelism)
		}
		for _, q := range wave {
			q := q
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				res, err := r.runQuery(q)
				if err != nil {
					return err
				}
				resultsMu.Lock()
				resultsByName[q.Name] = res
				resultsMu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	out := &RunResult{
		CircuitHash: r.Circuit.Hash(),
		FinalState:  make(map[string]QueryState, len(plan.Queries)),
		Results:     make([]QueryResult, 0, len(plan.Queries)),
	}
	r.mu.Lock()
	for name, st := range r.state {
		out.FinalState[name] = st
	}
	r.mu.Unlock()
	for _, q := range plan.Queries {
		out.Results = append(out.Results, resultsByName[q.Name])
	}
	return out, nil
}

func (r *Runner) runQuery(q Query) (QueryResult, error) {
	cur, renderings, err := r.applyOverrides(q)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query %q: %w", q.Name, err)
	}

	hash := resultcache.ComputeQueryHash(r.Circuit.Hash().String(), q.Target, renderings)

	if r.Cache != nil {
		entry, err := r.Cache.Get(hash)
		if err != nil {
			return QueryResult{}, fmt.Errorf("query %q: probing cache: %w", q.Name, err)
		}
		if entry != nil {
			if err := r.transitionLocked(q.Name, QueryPending, QueryReplayed); err != nil {
				return QueryResult{}, err
			}
			r.storeValue(q.Name, entry.Value)
			return QueryResult{Query: q.Name, Target: q.Target, Value: entry.Value, State: QueryReplayed, Hash: hash}, nil
		}
	}

	if err := r.transitionLocked(q.Name, QueryPending, QueryRunning); err != nil {
		return QueryResult{}, err
	}

	resolver, err := circuit.NewResolver(cur)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query %q: %w", q.Name, err)
	}
	if r.Sink != nil {
		resolver.Observer = sinkObserver{sink: r.Sink, query: q.Name}
	}

	value, err := resolver.Resolve(q.Target)
	if err != nil {
		_ = r.transitionLocked(q.Name, QueryRunning, QueryFailed)
		return QueryResult{}, fmt.Errorf("query %q: %w", q.Name, err)
	}
	if err := r.transitionLocked(q.Name, QueryRunning, QueryResolved); err != nil {
		return QueryResult{}, err
	}
	r.storeValue(q.Name, value)

	if r.Cache != nil {
		entry := &resultcache.Entry{Hash: hash, Target: q.Target, Value: value}
		if err := r.Cache.Put(entry); err != nil {
			return QueryResult{}, fmt.Errorf("query %q: storing result: %w", q.Name, err)
		}
	}

	return QueryResult{Query: q.Name, Target: q.Target, Value: value, State: QueryResolved, Hash: hash}, nil
}

// applyOverrides builds the query's private circuit copy and the canonical
// override renderings ("wire=gate") that contribute to query identity.
func (r *Runner) applyOverrides(q Query) (*circuit.Circuit, []string, error) {
	cur := r.Circuit
	renderings := make([]string, 0, len(q.Overrides))

	for _, ov := range q.Overrides {
		var gate circuit.Gate
		switch {
		case ov.From != "":
			donor, ok := r.loadValue(ov.From)
			if !ok {
				return nil, nil, fmt.Errorf("override of %q: donor query %q has no value", ov.Wire, ov.From)
			}
			gate = circuit.ValueGate(circuit.Lit(donor))
		default:
			parsed, err := wirefile.ParseGate(ov.Gate)
			if err != nil {
				return nil, nil, fmt.Errorf("override of %q: %w", ov.Wire, err)
			}
			gate = parsed
		}

		next, err := cur.WithOverride(ov.Wire, gate)
		if err != nil {
			return nil, nil, err
		}
		cur = next
		renderings = append(renderings, ov.Wire+"="+gate.String())

		if r.Sink != nil {
			event := trace.TraceEvent{
				Kind:  trace.EventWireOverridden,
				Wire:  ov.Wire,
				Query: q.Name,
				Gate:  gate.String(),
			}
			if gate.Kind == circuit.GateValue && !gate.Left.IsRef() {
				event.Value = gate.Left.Literal()
			}
			trace.SafeRecord(r.Sink, event)
		}
	}
	return cur, renderings, nil
}

func (r *Runner) transitionLocked(query string, from, to QueryState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return transition(r.state, query, from, to)
}

func (r *Runner) storeValue(query string, v uint16) {
	r.mu.Lock()
	r.values[query] = v
	r.mu.Unlock()
}

func (r *Runner) loadValue(query string) (uint16, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[query]
	return v, ok
}

// sinkObserver forwards resolver events to the trace sink, tagged with the
// owning query.
type sinkObserver struct {
	sink  trace.Sink
	query string
}

func (o sinkObserver) WireEvaluated(wire string, gate circuit.Gate, value uint16) {
	trace.SafeRecord(o.sink, trace.TraceEvent{
		Kind:  trace.EventWireEvaluated,
		Wire:  wire,
		Query: o.query,
		Gate:  gate.String(),
		Value: value,
	})
}

func (o sinkObserver) WireCacheHit(wire string, value uint16) {
	trace.SafeRecord(o.sink, trace.TraceEvent{
		Kind:  trace.EventWireCacheHit,
		Wire:  wire,
		Query: o.query,
		Value: value,
	})
}
