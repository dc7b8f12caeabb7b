package batch

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	in := `
queries:
  - name: part1
    target: a
  - name: part2
    target: a
    overrides:
      - wire: b
        from: part1
`
	p, err := ParsePlan(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, p.Queries, 2)
	require.Equal(t, "part1", p.Queries[0].Name)
	require.Equal(t, "a", p.Queries[0].Target)
	require.Equal(t, []Override{{Wire: "b", From: "part1"}}, p.Queries[1].Overrides)
}

func TestParsePlanRejectsUnknownFields(t *testing.T) {
	in := `
queries:
  - name: part1
    target: a
    extra: true
`
	_, err := ParsePlan(strings.NewReader(in))
	require.Error(t, err)
}

func TestPlanValidate(t *testing.T) {
	cases := []struct {
		name    string
		plan    *Plan
		wantMsg string
	}{
		{
			name:    "no queries",
			plan:    &Plan{},
			wantMsg: "no queries",
		},
		{
			name:    "empty name",
			plan:    &Plan{Queries: []Query{{Target: "a"}}},
			wantMsg: "name is required",
		},
		{
			name: "duplicate name",
			plan: &Plan{Queries: []Query{
				{Name: "q", Target: "a"},
				{Name: "q", Target: "b"},
			}},
			wantMsg: `duplicate query name: "q"`,
		},
		{
			name:    "empty target",
			plan:    &Plan{Queries: []Query{{Name: "q"}}},
			wantMsg: "target is required",
		},
		{
			name: "override without wire",
			plan: &Plan{Queries: []Query{
				{Name: "q", Target: "a", Overrides: []Override{{Gate: "1"}}},
			}},
			wantMsg: "wire is required",
		},
		{
			name: "override with gate and from",
			plan: &Plan{Queries: []Query{
				{Name: "p", Target: "a"},
				{Name: "q", Target: "a", Overrides: []Override{{Wire: "b", Gate: "1", From: "p"}}},
			}},
			wantMsg: "exactly one of gate/from",
		},
		{
			name: "override with neither gate nor from",
			plan: &Plan{Queries: []Query{
				{Name: "q", Target: "a", Overrides: []Override{{Wire: "b"}}},
			}},
			wantMsg: "exactly one of gate/from",
		},
		{
			name: "from references later query",
			plan: &Plan{Queries: []Query{
				{Name: "q", Target: "a", Overrides: []Override{{Wire: "b", From: "later"}}},
				{Name: "later", Target: "a"},
			}},
			wantMsg: "not an earlier query",
		},
		{
			name: "from references itself",
			plan: &Plan{Queries: []Query{
				{Name: "q", Target: "a", Overrides: []Override{{Wire: "b", From: "q"}}},
			}},
			wantMsg: "not an earlier query",
		},
		{
			name: "same wire overridden twice",
			plan: &Plan{Queries: []Query{
				{Name: "q", Target: "a", Overrides: []Override{
					{Wire: "x", Gate: "7"},
					{Wire: "x", Gate: "9"},
				}},
			}},
			wantMsg: `duplicate override of wire "x"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.plan.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidPlan))
			require.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestPlanValidateAccepts(t *testing.T) {
	p := &Plan{Queries: []Query{
		{Name: "part1", Target: "a"},
		{Name: "part2", Target: "a", Overrides: []Override{{Wire: "b", From: "part1"}}},
		{Name: "part3", Target: "d", Overrides: []Override{{Wire: "x", Gate: "NOT y"}}},
	}}
	require.NoError(t, p.Validate())
}

func TestPlanStages(t *testing.T) {
	p := &Plan{Queries: []Query{
		{Name: "a1", Target: "a"},
		{Name: "a2", Target: "b"},
		{Name: "b1", Target: "a", Overrides: []Override{{Wire: "b", From: "a1"}}},
		{Name: "c1", Target: "a", Overrides: []Override{
			{Wire: "b", From: "b1"},
			{Wire: "c", From: "a2"},
		}},
	}}
	require.NoError(t, p.Validate())

	waves := p.stages()
	require.Len(t, waves, 3)

	names := func(qs []Query) []string {
		out := make([]string, len(qs))
		for i, q := range qs {
			out[i] = q.Name
		}
		return out
	}
	require.Equal(t, []string{"a1", "a2"}, names(waves[0]))
	require.Equal(t, []string{"b1"}, names(waves[1]))
	require.Equal(t, []string{"c1"}, names(waves[2]))
}

func TestQueryStateTransitions(t *testing.T) {
	state := map[string]QueryState{"q": QueryPending}

	require.NoError(t, transition(state, "q", QueryPending, QueryRunning))
	require.NoError(t, transition(state, "q", QueryRunning, QueryResolved))
	require.True(t, IsTerminal(QueryResolved))

	// A terminal state never transitions again.
	err := transition(state, "q", QueryResolved, QueryRunning)
	require.Error(t, err)

	// A stale expectation is rejected.
	state["p"] = QueryRunning
	err = transition(state, "p", QueryPending, QueryRunning)
	require.Error(t, err)

	// An unknown query is rejected.
	err = transition(state, "ghost", QueryPending, QueryRunning)
	require.Error(t, err)
}
