package batch

import "fmt"

// QueryState is the runtime state of one query in a plan run.
type QueryState string

const (
	QueryPending  QueryState = "PENDING"
	QueryRunning  QueryState = "RUNNING"
	QueryResolved QueryState = "RESOLVED"
	QueryReplayed QueryState = "REPLAYED"
	QueryFailed   QueryState = "FAILED"
)

// IsTerminal reports whether the state is terminal (finished).
func IsTerminal(s QueryState) bool {
	switch s {
	case QueryResolved, QueryReplayed, QueryFailed:
		return true
	default:
		return false
	}
}

// transition performs a validated state transition for a single query.
//
// The caller supplies the expected prior state so races are observable
// instead of silently overwriting progress.
func transition(state map[string]QueryState, query string, from, to QueryState) error {
	cur, ok := state[query]
	if !ok {
		return fmt.Errorf("unknown query in state: %q", query)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", query, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", query, from, to)
	}
	state[query] = to
	return nil
}

func isAllowedTransition(from, to QueryState) bool {
	switch from {
	case QueryPending:
		return to == QueryRunning || to == QueryReplayed
	case QueryRunning:
		return to == QueryResolved || to == QueryFailed
	default:
		return false
	}
}
