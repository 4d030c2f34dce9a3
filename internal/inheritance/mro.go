package inheritance

import (
	"fmt"

	"github.com/pkg/errors"

	"symgraph/internal/graph"
	"symgraph/internal/ids"
)

// Policy selects how the method resolution order is linearized.
type Policy string

const (
	// PolicyC3 merges each parent's MRO with the parent list and reports
	// inconsistent precedence instead of guessing.
	PolicyC3 Policy = "c3"
	// PolicyDepthFirst walks parents left to right and keeps first occurrences.
	PolicyDepthFirst Policy = "depth_first"
)

// ParsePolicy accepts "c3" or "depth_first".
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyC3, "":
		return PolicyC3, nil
	case PolicyDepthFirst:
		return PolicyDepthFirst, nil
	}
	return "", errors.Errorf("unknown mro policy %q", s)
}

// linearizer memoizes MROs across one analysis pass. Entities whose
// traversal found a cycle never get an MRO.
type linearizer struct {
	g      *graph.Graph
	policy Policy
	cyclic map[ids.SymbolID]bool

	mro        map[ids.SymbolID][]ids.SymbolID
	failed     map[ids.SymbolID]bool
	inProgress map[ids.SymbolID]bool
	diags      []Diagnostic
}

func newLinearizer(g *graph.Graph, policy Policy, cyclic map[ids.SymbolID]bool) *linearizer {
	return &linearizer{
		g:          g,
		policy:     policy,
		cyclic:     cyclic,
		mro:        make(map[ids.SymbolID][]ids.SymbolID),
		failed:     make(map[ids.SymbolID]bool),
		inProgress: make(map[ids.SymbolID]bool),
	}
}

func (l *linearizer) linearize(id ids.SymbolID) ([]ids.SymbolID, bool) {
	if m, ok := l.mro[id]; ok {
		return m, true
	}
	if l.failed[id] {
		return nil, false
	}
	if !l.g.Has(id) {
		// External bases linearize to themselves.
		return []ids.SymbolID{id}, true
	}
	if l.cyclic[id] || l.inProgress[id] {
		l.failed[id] = true
		return nil, false
	}

	l.inProgress[id] = true
	defer delete(l.inProgress, id)

	var (
		m  []ids.SymbolID
		ok bool
	)
	switch l.policy {
	case PolicyDepthFirst:
		m, ok = l.depthFirst(id), true
	default:
		m, ok = l.c3(id)
	}
	if !ok {
		l.failed[id] = true
		return nil, false
	}
	l.mro[id] = m
	return m, true
}

func (l *linearizer) c3(id ids.SymbolID) ([]ids.SymbolID, bool) {
	parents := l.g.Parents(id)
	seqs := make([][]ids.SymbolID, 0, len(parents)+1)
	for _, p := range parents {
		pm, ok := l.linearize(p)
		if !ok {
			l.diags = append(l.diags, conflictDiagnostic(id, []ids.SymbolID{p},
				fmt.Sprintf("base %s has no consistent linearization", p.Name)))
			return nil, false
		}
		seqs = append(seqs, pm)
	}
	seqs = append(seqs, parents)

	merged, blocked := c3Merge(seqs)
	if blocked != nil {
		l.diags = append(l.diags, conflictDiagnostic(id, blocked,
			"inconsistent precedence between "+joinNames(blocked)))
		return nil, false
	}
	return append([]ids.SymbolID{id}, merged...), true
}

// c3Merge repeatedly takes the first head that appears in no other
// sequence's tail. When no head qualifies the remaining heads are returned
// as the blocking set.
func c3Merge(seqs [][]ids.SymbolID) ([]ids.SymbolID, []ids.SymbolID) {
	var out []ids.SymbolID
	for {
		live := seqs[:0:0]
		for _, s := range seqs {
			if len(s) > 0 {
				live = append(live, s)
			}
		}
		seqs = live
		if len(seqs) == 0 {
			return out, nil
		}

		var (
			next  ids.SymbolID
			found bool
		)
		for _, s := range seqs {
			if !inAnyTail(s[0], seqs) {
				next, found = s[0], true
				break
			}
		}
		if !found {
			var heads []ids.SymbolID
			for _, s := range seqs {
				if !containsID(heads, s[0]) {
					heads = append(heads, s[0])
				}
			}
			return nil, heads
		}

		out = append(out, next)
		for i, s := range seqs {
			if s[0] == next {
				seqs[i] = s[1:]
			}
		}
	}
}

func inAnyTail(id ids.SymbolID, seqs [][]ids.SymbolID) bool {
	for _, s := range seqs {
		if containsID(s[1:], id) {
			return true
		}
	}
	return false
}

func (l *linearizer) depthFirst(id ids.SymbolID) []ids.SymbolID {
	seen := map[ids.SymbolID]bool{id: true}
	out := []ids.SymbolID{id}
	var visit func(ids.SymbolID)
	visit = func(n ids.SymbolID) {
		for _, p := range l.g.Parents(n) {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
			visit(p)
		}
	}
	visit(id)
	return out
}

func containsID(list []ids.SymbolID, id ids.SymbolID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
