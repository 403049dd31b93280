package taskgraph

import (
	"fmt"
	"sort"
)

// CircularPair is a detected circular dependency between two tasks,
// reported once per unordered endpoint pair.
type CircularPair struct {
	FromID   string
	FromName string
	ToID     string
	ToName   string
}

// DFS colors
const (
	white = 0 // unvisited
	gray  = 1 // on the current path
	black = 2 // fully explored
)

// CircularChains runs a colored DFS over the composite edges and returns
// every circular dependency pair. Cycles are warnings, never fatal.
func (m *Model) CircularChains() []CircularPair {
	downstream := m.downstreamAdjacency()
	color := make(map[string]int, len(m.tasks))

	seen := make(map[[2]string]bool)
	var pairs []CircularPair

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		for _, next := range downstream[id] {
			switch color[next] {
			case gray:
				// Back-edge: id -> next closes a cycle
				key := unorderedKey(id, next)
				if !seen[key] {
					seen[key] = true
					pairs = append(pairs, CircularPair{
						FromID:   id,
						FromName: m.taskName(id),
						ToID:     next,
						ToName:   m.taskName(next),
					})
				}
			case white:
				visit(next)
			}
		}
		color[id] = black
	}

	for _, id := range m.order {
		if color[id] == white {
			visit(id)
		}
	}
	return pairs
}

// DuplicateEdge reports a (upstream, downstream, ruleState) triple that
// occurs more than once in the graph.
type DuplicateEdge struct {
	UpstreamID     string
	UpstreamName   string
	DownstreamID   string
	DownstreamName string
	State          int
	Count          int
}

// DuplicateEdges counts every (upstream, downstream, ruleState) triple and
// reports those occurring at least twice, one report per triple.
func (m *Model) DuplicateEdges() []DuplicateEdge {
	type key struct {
		up    string
		down  string
		state int
	}
	counts := make(map[key]int)
	for _, e := range m.Edges() {
		counts[key{e.UpstreamID, e.DownstreamID, e.State}]++
	}

	var dups []DuplicateEdge
	for k, n := range counts {
		if n < 2 {
			continue
		}
		dups = append(dups, DuplicateEdge{
			UpstreamID:     k.up,
			UpstreamName:   m.taskName(k.up),
			DownstreamID:   k.down,
			DownstreamName: m.taskName(k.down),
			State:          k.state,
			Count:          n,
		})
	}
	sort.Slice(dups, func(i, j int) bool {
		if dups[i].UpstreamID != dups[j].UpstreamID {
			return dups[i].UpstreamID < dups[j].UpstreamID
		}
		return dups[i].DownstreamID < dups[j].DownstreamID
	})
	return dups
}

// IntegrityWarnings formats the graph health checks for command output.
// Circular chains and duplicate triggers are warnings, never fatal: the
// scheduler runs such graphs, so the commands report them and keep going.
func (m *Model) IntegrityWarnings() []string {
	var warnings []string
	for _, p := range m.CircularChains() {
		warnings = append(warnings,
			fmt.Sprintf("circular dependency between %q and %q", p.FromName, p.ToName))
	}
	for _, d := range m.DuplicateEdges() {
		warnings = append(warnings,
			fmt.Sprintf("duplicate trigger: %q starts %q on %s, %d occurrences",
				d.UpstreamName, d.DownstreamName, RuleStateName(d.State), d.Count))
	}
	return warnings
}

func (m *Model) taskName(id string) string {
	if t, ok := m.tasks[id]; ok {
		return t.Name
	}
	return id
}

func unorderedKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
