package circuit

import (
	"container/heap"
	"sort"
)

// topology is the reference structure of a circuit: for each wire, the wires
// its gate reads from. It is derived on demand; the Circuit itself stays a
// plain definition map.
type topology struct {
	names    []string       // canonical order (sorted)
	index    map[string]int // name -> canonical index
	outgoing [][]int        // by canonical index, sorted ascending; edge u -> v means v reads u
	indeg    []int          // by canonical index, over distinct inputs
}

// newTopology builds the reference structure, rejecting references to wires
// the circuit does not define.
//
// Determinism: wires are visited in canonical order and operands in
// left-then-right order, so the first unknown reference reported is stable.
func (c *Circuit) newTopology() (*topology, error) {
	t := &topology{
		names:    c.names,
		index:    make(map[string]int, len(c.names)),
		outgoing: make([][]int, len(c.names)),
		indeg:    make([]int, len(c.names)),
	}
	for i, name := range c.names {
		t.index[name] = i
	}

	for i, name := range c.names {
		seen := make(map[int]struct{}, 2)
		for _, ref := range c.gates[name].references() {
			from, ok := t.index[ref]
			if !ok {
				return nil, unknownWiref(ref, "wire %q reads undefined wire %q", name, ref)
			}
			// A gate reading the same wire twice (e.g. "x AND x") is a
			// single dependency edge.
			if _, dup := seen[from]; dup {
				continue
			}
			seen[from] = struct{}{}
			t.outgoing[from] = append(t.outgoing[from], i)
			t.indeg[i]++
		}
	}
	for i := range t.outgoing {
		sort.Ints(t.outgoing[i])
	}
	return t, nil
}

// Validate checks the whole circuit structure eagerly: every referenced wire
// must be defined, and the reference graph must be acyclic.
//
// Resolution does not require a prior Validate; it reports the same
// conditions lazily for the wires it actually visits.
func (c *Circuit) Validate() error {
	t, err := c.newTopology()
	if err != nil {
		return err
	}
	order := t.topoOrderIndices()
	if len(order) == len(t.names) {
		return nil
	}
	return cycleError(t.findCycleDeterministic())
}

// TopologicalOrder returns wire names ordered so that every wire appears
// after all wires its gate reads from.
//
// Determinism: ties are broken by canonical index (sorted name order).
func (c *Circuit) TopologicalOrder() ([]string, error) {
	t, err := c.newTopology()
	if err != nil {
		return nil, err
	}
	order := t.topoOrderIndices()
	if len(order) != len(t.names) {
		return nil, cycleError(t.findCycleDeterministic())
	}
	names := make([]string, 0, len(order))
	for _, idx := range order {
		names = append(names, t.names[idx])
	}
	return names, nil
}

// Depths returns the topological depth of every wire: the length of the
// longest reference chain below it. Leaf wires (gates with only literal
// operands) have depth 0.
func (c *Circuit) Depths() (map[string]int, error) {
	t, err := c.newTopology()
	if err != nil {
		return nil, err
	}
	order := t.topoOrderIndices()
	if len(order) != len(t.names) {
		return nil, cycleError(t.findCycleDeterministic())
	}

	depth := make([]int, len(t.names))
	incoming := make([][]int, len(t.names))
	for u, outs := range t.outgoing {
		for _, v := range outs {
			incoming[v] = append(incoming[v], u)
		}
	}
	for _, u := range order {
		maxParent := 0
		for _, p := range incoming[u] {
			if cand := depth[p] + 1; cand > maxParent {
				maxParent = cand
			}
		}
		depth[u] = maxParent
	}

	out := make(map[string]int, len(t.names))
	for i, name := range t.names {
		out[name] = depth[i]
	}
	return out, nil
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrderIndices returns a deterministic topological ordering of wire
// indices using Kahn's algorithm.
//
// Determinism: the ready queue is a min-heap by canonical index. If the
// circuit contains a cycle, the returned ordering is shorter than the wire
// count.
func (t *topology) topoOrderIndices() []int {
	indeg := make([]int, len(t.indeg))
	copy(indeg, t.indeg)

	ready := &intMinHeap{}
	heap.Init(ready)
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range t.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycleDeterministic performs a deterministic DFS over canonical indices
// to extract one cycle path for error reporting.
//
// This does not attempt to list all cycles; it returns a single stable
// witness.
func (t *topology) findCycleDeterministic() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(t.names))
	parent := make([]int, len(t.names))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int

	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range t.outgoing[u] { // already sorted
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				// Found a back-edge u -> v. Reconstruct cycle v ... u -> v.
				cycle = append(cycle, v)
				cur := u
				for cur != -1 && cur != v {
					cycle = append(cycle, cur)
					cur = parent[cur]
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := 0; i < len(t.names); i++ {
		if color[i] != white {
			continue
		}
		if dfs(i) {
			break
		}
	}

	if len(cycle) == 0 {
		return nil
	}

	// The collected path is in reverse parent-walk order; flip it so the
	// witness reads forward and keeps the closing repeat of the entry wire.
	rev := make([]int, len(cycle))
	for i := range cycle {
		rev[i] = cycle[len(cycle)-1-i]
	}

	out := make([]string, 0, len(rev))
	for _, idx := range rev {
		out = append(out, t.names[idx])
	}
	return out
}
