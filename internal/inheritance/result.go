package inheritance

import (
	"symgraph/internal/graph"
	"symgraph/internal/ids"
	"symgraph/internal/resolution"
)

// Result is the immutable snapshot of one analysis pass.
type Result struct {
	// Types holds copies of the input entities with Ancestors, Descendants
	// and MRO filled in.
	Types       map[ids.SymbolID]*graph.TypeEntity
	Diamonds    []graph.DiamondProblem
	Diagnostics []Diagnostic
	// Bases reports how each entity's direct bases were found, in parent order.
	Bases map[ids.SymbolID][]resolution.Resolution[ids.SymbolID]
	// Transitions is the state history of each entity.
	Transitions map[ids.SymbolID][]State

	order []ids.SymbolID
}

// IDs returns analyzed entity ids in graph insertion order.
func (r *Result) IDs() []ids.SymbolID {
	out := make([]ids.SymbolID, len(r.order))
	copy(out, r.order)
	return out
}

// Type returns the analyzed copy of id, or nil.
func (r *Result) Type(id ids.SymbolID) *graph.TypeEntity {
	return r.Types[id]
}

// Ancestors returns every transitive base of id.
func (r *Result) Ancestors(id ids.SymbolID) []ids.SymbolID {
	if t := r.Types[id]; t != nil {
		return t.Ancestors
	}
	return nil
}

// Descendants returns every type that transitively inherits from id.
func (r *Result) Descendants(id ids.SymbolID) []ids.SymbolID {
	if t := r.Types[id]; t != nil {
		return t.Descendants
	}
	return nil
}

// MRO returns the linearization, or false when it could not be computed.
func (r *Result) MRO(id ids.SymbolID) ([]ids.SymbolID, bool) {
	t := r.Types[id]
	if t == nil || t.MRO == nil {
		return nil, false
	}
	return t.MRO, true
}

// State returns the latest state reached by the entity.
func (r *Result) State(id ids.SymbolID) State {
	history := r.Transitions[id]
	if len(history) == 0 {
		return Unanalyzed
	}
	return history[len(history)-1]
}

// MROConflict reports whether the entity's linearization failed.
func (r *Result) MROConflict(id ids.SymbolID) bool {
	for _, s := range r.Transitions[id] {
		if s == MroConflict {
			return true
		}
	}
	return false
}

// DiagnosticsFor returns the diagnostics raised for id.
func (r *Result) DiagnosticsFor(id ids.SymbolID) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Entity == id {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any diagnostic is error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// LookupMember finds the member a name resolves to on a type, following the
// MRO. A member declared on the type itself is a direct match; one found on
// an ancestor is inherited. When the MRO is unavailable the breadth-first
// ancestor order is used with reduced confidence.
func (r *Result) LookupMember(typeID ids.SymbolID, name string) resolution.Resolution[ids.SymbolID] {
	return r.lookup(typeID, name, 0)
}

// LookupSuperMember is LookupMember starting after the type itself, as for
// super.name.
func (r *Result) LookupSuperMember(typeID ids.SymbolID, name string) resolution.Resolution[ids.SymbolID] {
	return r.lookup(typeID, name, 1)
}

func (r *Result) lookup(typeID ids.SymbolID, name string, skip int) resolution.Resolution[ids.SymbolID] {
	if r.Types[typeID] == nil {
		return resolution.Failed[ids.SymbolID]()
	}

	order, ok := r.MRO(typeID)
	confidence := resolution.High
	if !ok {
		order = append([]ids.SymbolID{typeID}, r.Ancestors(typeID)...)
		confidence = resolution.Medium
	}
	if skip > len(order) {
		skip = len(order)
	}

	var path []string
	for i, id := range order[skip:] {
		t := r.Types[id]
		if t == nil {
			continue
		}
		if len(path) == 0 || path[len(path)-1] != id.FilePath {
			path = append(path, id.FilePath)
		}
		member, ok := t.Members[name]
		if !ok {
			continue
		}
		if i+skip == 0 {
			return resolution.HighConfidence(member, resolution.ReasonDirectMatch, path...)
		}
		if confidence == resolution.High {
			return resolution.HighConfidence(member, resolution.ReasonInherited, path...)
		}
		return resolution.MediumConfidence(member, resolution.ReasonInherited, path...)
	}
	return resolution.Failed[ids.SymbolID](path...)
}
