// Package ir is the hand-off format between a language extractor and the
// analyzer. Identifiers travel as encoded strings.
package ir

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"symgraph/internal/graph"
	"symgraph/internal/ids"
	"symgraph/internal/reference"
)

// TypeIR is one type declaration as emitted by an extractor.
type TypeIR struct {
	ID         string            `json:"id" yaml:"id"`
	Kind       graph.TypeKind    `json:"kind" yaml:"kind"`
	Extends    []string          `json:"extends,omitempty" yaml:"extends,omitempty"`
	Implements []string          `json:"implements,omitempty" yaml:"implements,omitempty"`
	Uses       []string          `json:"uses,omitempty" yaml:"uses,omitempty"`
	Members    map[string]string `json:"members,omitempty" yaml:"members,omitempty"`
}

// RelationIR is a base-type edge found outside the declaration itself,
// e.g. a mixin applied later in the file.
type RelationIR struct {
	From     string             `json:"from" yaml:"from"`
	To       string             `json:"to" yaml:"to"`
	Type     graph.RelationType `json:"type" yaml:"type"`
	Location ids.Location       `json:"location" yaml:"location"`
	Direct   bool               `json:"direct" yaml:"direct"`
}

// Document is one extractor run. YAML is a superset of JSON, so both load.
type Document struct {
	Version   string              `json:"version,omitempty" yaml:"version,omitempty"`
	Types     []TypeIR            `json:"types" yaml:"types"`
	Relations []RelationIR        `json:"relations,omitempty" yaml:"relations,omitempty"`
	UseSites  []reference.UseSite `json:"use_sites,omitempty" yaml:"use_sites,omitempty"`
}

// Load reads a YAML or JSON document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return Parse(data)
}

// Parse decodes a document. JSON is accepted as a subset of YAML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse document")
	}
	return &doc, nil
}

// Decoded is a document with every identifier decoded, ready to be added to
// a graph builder.
type Decoded struct {
	Types     []*graph.TypeEntity
	Relations []graph.InheritanceRelation
	UseSites  []reference.UseSite
}

// Decode resolves every identifier through table. It does not touch any
// graph, so documents can be decoded concurrently against one table.
func (d *Document) Decode(table *ids.Table) (*Decoded, error) {
	out := &Decoded{
		Types:     make([]*graph.TypeEntity, 0, len(d.Types)),
		Relations: make([]graph.InheritanceRelation, 0, len(d.Relations)),
	}

	for i, t := range d.Types {
		entity, err := t.entity(table)
		if err != nil {
			return nil, errors.Wrapf(err, "types[%d]", i)
		}
		out.Types = append(out.Types, entity)
	}

	for i, r := range d.Relations {
		from, err := table.Resolve(r.From)
		if err != nil {
			return nil, errors.Wrapf(err, "relations[%d].from", i)
		}
		to, err := table.Resolve(r.To)
		if err != nil {
			return nil, errors.Wrapf(err, "relations[%d].to", i)
		}
		out.Relations = append(out.Relations, graph.InheritanceRelation{
			From:         from,
			To:           to,
			RelationType: r.Type,
			Location:     r.Location,
			IsDirect:     r.Direct,
		})
	}

	out.UseSites = make([]reference.UseSite, len(d.UseSites))
	copy(out.UseSites, d.UseSites)
	return out, nil
}

// AddTo registers the decoded types and relations with b.
func (d *Decoded) AddTo(b *graph.Builder) error {
	for _, t := range d.Types {
		if err := b.AddType(t); err != nil {
			return err
		}
	}
	for _, r := range d.Relations {
		if err := b.AddRelation(r); err != nil {
			return err
		}
	}
	return nil
}

// Assemble decodes the document and builds the sealed project graph from it
// alone. Use-sites are returned for classification.
func (d *Document) Assemble(table *ids.Table) (*graph.Graph, []reference.UseSite, error) {
	decoded, err := d.Decode(table)
	if err != nil {
		return nil, nil, err
	}
	b := graph.NewBuilder()
	if err := decoded.AddTo(b); err != nil {
		return nil, nil, err
	}
	return b.Seal(), decoded.UseSites, nil
}

func (t TypeIR) entity(table *ids.Table) (*graph.TypeEntity, error) {
	id, err := table.Resolve(t.ID)
	if err != nil {
		return nil, errors.Wrap(err, "id")
	}
	out := &graph.TypeEntity{ID: id, Kind: t.Kind}
	if out.Kind == "" {
		out.Kind = graph.TypeClass
	}

	if out.Extends, err = resolveAll(table, t.Extends, "extends"); err != nil {
		return nil, err
	}
	if out.Implements, err = resolveAll(table, t.Implements, "implements"); err != nil {
		return nil, err
	}
	if out.Uses, err = resolveAll(table, t.Uses, "uses"); err != nil {
		return nil, err
	}

	if len(t.Members) > 0 {
		out.Members = make(map[string]ids.SymbolID, len(t.Members))
		for name, raw := range t.Members {
			m, err := table.Resolve(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "members[%s]", name)
			}
			out.Members[name] = m
		}
	}
	return out, nil
}

func resolveAll(table *ids.Table, raw []string, field string) ([]ids.SymbolID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]ids.SymbolID, 0, len(raw))
	for i, s := range raw {
		id, err := table.Resolve(s)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", field, i)
		}
		out = append(out, id)
	}
	return out, nil
}
