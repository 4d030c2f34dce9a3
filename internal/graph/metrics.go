package graph

import "symgraph/internal/ids"

// RelationTypeCounts counts direct base edges by relation type, including
// the ones declared on entities rather than supplied as relations.
func (g *Graph) RelationTypeCounts() map[RelationType]int {
	counts := make(map[RelationType]int)
	if g == nil {
		return counts
	}
	for _, id := range g.order {
		t := g.types[id]
		counts[RelationExtends] += len(t.Extends)
		counts[RelationImplements] += len(t.Implements)
		counts[RelationUses] += len(t.Uses)
	}
	for _, rel := range g.relations {
		if !rel.IsDirect || !g.Has(rel.From) || declares(g.types[rel.From], rel.To) {
			continue
		}
		counts[rel.RelationType]++
	}
	return counts
}

func declares(t *TypeEntity, parent ids.SymbolID) bool {
	return containsID(t.Extends, parent) || containsID(t.Implements, parent) || containsID(t.Uses, parent)
}
