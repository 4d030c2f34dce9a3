package graph

import (
	"sync"

	"github.com/pkg/errors"

	"symgraph/internal/ids"
)

var (
	ErrSealed        = errors.New("graph builder already sealed")
	ErrDuplicateType = errors.New("duplicate type entity")
)

// Builder assembles the project-wide type graph. File workers may add
// entities and relations concurrently; Seal is the barrier after which the
// graph is read-only and ready for analysis.
type Builder struct {
	mu        sync.Mutex
	types     map[ids.SymbolID]*TypeEntity
	order     []ids.SymbolID
	relations []InheritanceRelation
	sealed    bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		types: make(map[ids.SymbolID]*TypeEntity),
	}
}

// AddType registers an entity. Computed fields are dropped.
func (b *Builder) AddType(t *TypeEntity) error {
	if t == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return ErrSealed
	}
	if _, ok := b.types[t.ID]; ok {
		return errors.Wrapf(ErrDuplicateType, "%s", t.ID)
	}
	entity := t.Clone()
	entity.Ancestors, entity.Descendants, entity.MRO = nil, nil, nil
	b.types[t.ID] = entity
	b.order = append(b.order, t.ID)
	return nil
}

// AddRelation records an edge supplied separately from the entity declarations.
func (b *Builder) AddRelation(rel InheritanceRelation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return ErrSealed
	}
	b.relations = append(b.relations, rel)
	return nil
}

// Seal freezes the builder and returns the assembled graph.
func (b *Builder) Seal() *Graph {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true

	g := &Graph{
		types:     b.types,
		order:     b.order,
		relations: b.relations,
		parents:   make(map[ids.SymbolID][]ids.SymbolID, len(b.types)),
		children:  make(map[ids.SymbolID][]ids.SymbolID),
		nameIndex: make(map[string][]ids.SymbolID),
		byFile:    make(map[string][]ids.SymbolID),
	}
	g.buildIndices()
	return g
}

// Graph is the sealed, read-only project-wide type graph.
type Graph struct {
	types     map[ids.SymbolID]*TypeEntity
	order     []ids.SymbolID
	relations []InheritanceRelation

	parents  map[ids.SymbolID][]ids.SymbolID
	children map[ids.SymbolID][]ids.SymbolID

	// Index for name-based lookups: Name -> []ID
	nameIndex map[string][]ids.SymbolID
	byFile    map[string][]ids.SymbolID
}

func (g *Graph) buildIndices() {
	for _, id := range g.order {
		t := g.types[id]
		g.nameIndex[id.Name] = append(g.nameIndex[id.Name], id)
		if id.Qualifier != "" {
			key := id.Qualifier + "." + id.Name
			g.nameIndex[key] = append(g.nameIndex[key], id)
		}
		g.byFile[id.FilePath] = append(g.byFile[id.FilePath], id)

		var ps []ids.SymbolID
		ps = appendUnique(ps, t.Extends...)
		ps = appendUnique(ps, t.Implements...)
		ps = appendUnique(ps, t.Uses...)
		g.parents[id] = ps
	}

	// Direct relations not already declared on the entity follow in edge order.
	for _, rel := range g.relations {
		if !rel.IsDirect {
			continue
		}
		if _, ok := g.types[rel.From]; !ok {
			continue
		}
		g.parents[rel.From] = appendUnique(g.parents[rel.From], rel.To)
	}

	for _, id := range g.order {
		for _, p := range g.parents[id] {
			g.children[p] = append(g.children[p], id)
		}
	}
}

// appendUnique adds candidates to list, skipping duplicates. A self edge is
// kept so the analyzer can report it as a cycle.
func appendUnique(list []ids.SymbolID, candidates ...ids.SymbolID) []ids.SymbolID {
	for _, c := range candidates {
		if c.IsZero() || containsID(list, c) {
			continue
		}
		list = append(list, c)
	}
	return list
}

func containsID(list []ids.SymbolID, id ids.SymbolID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// Type returns the entity for id, or nil if it is not part of the project.
func (g *Graph) Type(id ids.SymbolID) *TypeEntity {
	return g.types[id]
}

// Has reports whether id was added to the graph.
func (g *Graph) Has(id ids.SymbolID) bool {
	_, ok := g.types[id]
	return ok
}

// IDs returns entity ids in insertion order.
func (g *Graph) IDs() []ids.SymbolID {
	return cloneIDs(g.order)
}

// Len returns the number of types.
func (g *Graph) Len() int {
	return len(g.order)
}

// Parents returns the direct base types of id in declaration order:
// extends, implements, uses, then direct relations not listed on the entity.
func (g *Graph) Parents(id ids.SymbolID) []ids.SymbolID {
	return g.parents[id]
}

// Children returns the types that list id as a direct base.
func (g *Graph) Children(id ids.SymbolID) []ids.SymbolID {
	return g.children[id]
}

// FindByName returns types declared with name, or with Qualifier.Name.
func (g *Graph) FindByName(name string) []ids.SymbolID {
	return g.nameIndex[name]
}

// EnclosingType returns the innermost type whose definition range contains loc.
func (g *Graph) EnclosingType(loc ids.Location) (*TypeEntity, bool) {
	var best *TypeEntity
	for _, id := range g.byFile[loc.FilePath] {
		if !id.Location.Contains(loc) {
			continue
		}
		if best == nil || id.Location.Span() < best.ID.Location.Span() {
			best = g.types[id]
		}
	}
	return best, best != nil
}
