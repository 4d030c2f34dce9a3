package resolver

import (
	"symgraph/internal/graph"
	"symgraph/internal/ids"
	"symgraph/internal/reference"
	"symgraph/internal/resolution"
)

// SelfStage resolves this/self/super/cls calls against the enclosing type.
type SelfStage struct{}

// NewSelfStage creates the stage for this/self/super calls.
func NewSelfStage() *SelfStage { return &SelfStage{} }

func (s *SelfStage) Name() string { return "self" }

func (s *SelfStage) Resolve(rc *Context) (ResolveStats, error) {
	var stats ResolveStats
	for i, ref := range rc.Refs {
		call, ok := ref.(reference.SelfReferenceCall)
		if !ok || rc.Resolutions[i].IsResolved() {
			continue
		}
		stats.Attempted++
		// Only keyword.member is decidable here; deeper chains need the
		// member's type.
		if len(call.PropertyChain) != 2 || rc.Analysis == nil {
			stats.Skipped++
			continue
		}

		enclosing := enclosingType(rc.Graph, call.Location)
		member := call.PropertyChain[1]
		r := resolution.Then(enclosing, func(t ids.SymbolID) resolution.Resolution[ids.SymbolID] {
			if call.Keyword == reference.KeywordSuper {
				return rc.Analysis.LookupSuperMember(t, member)
			}
			return rc.Analysis.LookupMember(t, member)
		})
		if rc.offer(i, r) {
			stats.Resolved++
		}
	}
	return stats, nil
}

func enclosingType(g *graph.Graph, loc ids.Location) resolution.Resolution[ids.SymbolID] {
	t, ok := g.EnclosingType(loc)
	if !ok {
		return resolution.Failed[ids.SymbolID](loc.FilePath)
	}
	return resolution.HighConfidence(t.ID, resolution.ReasonDirectMatch, loc.FilePath)
}

// MemberStage resolves method calls and property accesses whose receiver
// type the extractor recorded.
type MemberStage struct{}

func NewMemberStage() *MemberStage { return &MemberStage{} }

func (s *MemberStage) Name() string { return "member" }

func (s *MemberStage) Resolve(rc *Context) (ResolveStats, error) {
	var stats ResolveStats
	for i, ref := range rc.Refs {
		switch ref.(type) {
		case reference.MethodCall, reference.PropertyAccess:
		default:
			continue
		}
		if rc.Resolutions[i].IsResolved() {
			continue
		}
		stats.Attempted++

		common := ref.Common()
		if common.TypeInfo == nil || common.TypeInfo.TypeName == "" || rc.Analysis == nil {
			stats.Skipped++
			continue
		}

		receiver := lookupType(rc.Graph, common.TypeInfo.TypeName, common.Location, common.TypeInfo.Certainty)
		r := resolution.Then(receiver, func(t ids.SymbolID) resolution.Resolution[ids.SymbolID] {
			return rc.Analysis.LookupMember(t, common.Name)
		})
		if rc.offer(i, r) {
			stats.Resolved++
		}
	}
	return stats, nil
}

// NameStage resolves constructor calls, type references and calls of a
// type name (e.g. Python's Dog()) through the project name index.
type NameStage struct{}

func NewNameStage() *NameStage { return &NameStage{} }

func (s *NameStage) Name() string { return "name" }

func (s *NameStage) Resolve(rc *Context) (ResolveStats, error) {
	var stats ResolveStats
	for i, ref := range rc.Refs {
		certainty := resolution.High
		switch ref.(type) {
		case reference.ConstructorCall, reference.TypeReference:
		case reference.FunctionCall:
			certainty = resolution.Medium
		default:
			continue
		}
		if rc.Resolutions[i].IsResolved() {
			continue
		}
		stats.Attempted++

		common := ref.Common()
		if len(rc.Graph.FindByName(common.Name)) == 0 {
			stats.Skipped++
			continue
		}
		if rc.offer(i, lookupType(rc.Graph, common.Name, common.Location, certainty)) {
			stats.Resolved++
		}
	}
	return stats, nil
}

// lookupType finds a type by name as seen from a use-site. A single
// candidate in the same file is a direct match, a single candidate elsewhere
// an import; several candidates with no local winner are ambiguous.
func lookupType(g *graph.Graph, name string, from ids.Location, certainty resolution.Confidence) resolution.Resolution[ids.SymbolID] {
	candidates := g.FindByName(name)
	if len(candidates) == 0 {
		return resolution.Failed[ids.SymbolID](from.FilePath)
	}

	var local []ids.SymbolID
	for _, c := range candidates {
		if c.FilePath == from.FilePath {
			local = append(local, c)
		}
	}

	switch {
	case len(local) == 1:
		return atConfidence(certainty, local[0], resolution.ReasonDirectMatch, from.FilePath)
	case len(candidates) == 1:
		return atConfidence(certainty, candidates[0], resolution.ReasonImported, from.FilePath, candidates[0].FilePath)
	default:
		return resolution.Ambiguous[ids.SymbolID](from.FilePath)
	}
}

func atConfidence(c resolution.Confidence, id ids.SymbolID, reason resolution.Reason, path ...string) resolution.Resolution[ids.SymbolID] {
	switch c {
	case resolution.High:
		return resolution.HighConfidence(id, reason, path...)
	case resolution.Medium:
		return resolution.MediumConfidence(id, reason, path...)
	case resolution.Low:
		return resolution.LowConfidence(id, resolution.ReasonInferred, path...)
	default:
		// Unknown certainty: the name matched but nothing vouches for it.
		return resolution.LowConfidence(id, resolution.ReasonPartialMatch, path...)
	}
}
