package graph

import "symgraph/internal/ids"

type TypeKind string

const (
	TypeClass     TypeKind = "class"
	TypeInterface TypeKind = "interface"
	TypeTrait     TypeKind = "trait"
	TypeMixin     TypeKind = "mixin"
	TypeStruct    TypeKind = "struct"
	TypeEnum      TypeKind = "enum"
)

type RelationType string

const (
	RelationExtends    RelationType = "extends"
	RelationImplements RelationType = "implements"
	RelationUses       RelationType = "uses"
)

// TypeEntity is a class-like declaration.
//
// Ancestors, Descendants and MRO are computed by the inheritance analyzer on
// a copy of the entity; producers leave them empty.
type TypeEntity struct {
	ID         ids.SymbolID            `json:"id"`
	Kind       TypeKind                `json:"kind"`
	Extends    []ids.SymbolID          `json:"extends,omitempty"`
	Implements []ids.SymbolID          `json:"implements,omitempty"`
	Uses       []ids.SymbolID          `json:"uses,omitempty"`
	Members    map[string]ids.SymbolID `json:"members,omitempty"`

	Ancestors   []ids.SymbolID `json:"ancestors,omitempty"`
	Descendants []ids.SymbolID `json:"descendants,omitempty"`
	MRO         []ids.SymbolID `json:"mro,omitempty"`
}

// Clone copies the entity so computed fields can be filled without touching
// the assembled input graph.
func (t *TypeEntity) Clone() *TypeEntity {
	out := *t
	out.Extends = cloneIDs(t.Extends)
	out.Implements = cloneIDs(t.Implements)
	out.Uses = cloneIDs(t.Uses)
	out.Ancestors = cloneIDs(t.Ancestors)
	out.Descendants = cloneIDs(t.Descendants)
	out.MRO = cloneIDs(t.MRO)
	if t.Members != nil {
		out.Members = make(map[string]ids.SymbolID, len(t.Members))
		for k, v := range t.Members {
			out.Members[k] = v
		}
	}
	return &out
}

// InheritanceRelation is one base-type edge from child to parent.
type InheritanceRelation struct {
	From         ids.SymbolID `json:"from"`
	To           ids.SymbolID `json:"to"`
	RelationType RelationType `json:"relation_type"`
	Location     ids.Location `json:"location"`
	IsDirect     bool         `json:"is_direct"`
}

// DiamondProblem records an ancestor reached from one descendant by more
// than one distinct path. Every path starts at the descendant and ends at Base.
type DiamondProblem struct {
	Base               ids.SymbolID     `json:"base"`
	Paths              [][]ids.SymbolID `json:"paths"`
	ConflictingMembers []string         `json:"conflicting_members,omitempty"`
}

// Descendant is the type from which the diamond was observed.
func (d DiamondProblem) Descendant() ids.SymbolID {
	if len(d.Paths) == 0 || len(d.Paths[0]) == 0 {
		return ids.SymbolID{}
	}
	return d.Paths[0][0]
}

func cloneIDs(in []ids.SymbolID) []ids.SymbolID {
	if in == nil {
		return nil
	}
	out := make([]ids.SymbolID, len(in))
	copy(out, in)
	return out
}
