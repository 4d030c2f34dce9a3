package analysis

import (
	"path/filepath"
	"strings"

	"symgraph/internal/git"
	"symgraph/internal/graph"
	"symgraph/internal/ids"
)

// ImpactReport summarizes the types affected by a change set. A type whose
// definition range covers a changed line is direct; every descendant of a
// direct type is indirect, because it inherits whatever changed.
type ImpactReport struct {
	DirectlyAffected   []*graph.TypeEntity
	IndirectlyAffected []*graph.TypeEntity
}

// Analyzer performs impact analysis over analyzed types. The entities must
// carry computed descendants.
type Analyzer struct {
	types  []*graph.TypeEntity
	byID   map[ids.SymbolID]*graph.TypeEntity
	byFile map[string][]*graph.TypeEntity
}

// NewAnalyzer indexes types by id and file.
func NewAnalyzer(types []*graph.TypeEntity) *Analyzer {
	a := &Analyzer{
		types:  types,
		byID:   make(map[ids.SymbolID]*graph.TypeEntity, len(types)),
		byFile: make(map[string][]*graph.TypeEntity),
	}
	for _, t := range types {
		a.byID[t.ID] = t
		path := filepath.ToSlash(t.ID.FilePath)
		a.byFile[path] = append(a.byFile[path], t)
	}
	return a
}

// AnalyzeImpact identifies which types are affected by the given changes.
// Change paths are repository-relative, so they match any type path they
// are a suffix of.
func (a *Analyzer) AnalyzeImpact(changes []git.ChangedFile) (*ImpactReport, error) {
	report := &ImpactReport{
		DirectlyAffected:   []*graph.TypeEntity{},
		IndirectlyAffected: []*graph.TypeEntity{},
	}

	seenDirect := make(map[ids.SymbolID]bool)
	seenIndirect := make(map[ids.SymbolID]bool)

	for _, change := range changes {
		for _, t := range a.typesFor(change.Path) {
			if seenDirect[t.ID] || !isAffected(t, change.ChangedLines) {
				continue
			}
			report.DirectlyAffected = append(report.DirectlyAffected, t)
			seenDirect[t.ID] = true
		}
	}

	for _, t := range report.DirectlyAffected {
		for _, d := range t.Descendants {
			if seenDirect[d] || seenIndirect[d] {
				continue
			}
			dep, ok := a.byID[d]
			if !ok {
				continue
			}
			report.IndirectlyAffected = append(report.IndirectlyAffected, dep)
			seenIndirect[d] = true
		}
	}

	return report, nil
}

func (a *Analyzer) typesFor(changePath string) []*graph.TypeEntity {
	changePath = filepath.ToSlash(changePath)
	if ts, ok := a.byFile[changePath]; ok {
		return ts
	}
	var out []*graph.TypeEntity
	for _, t := range a.types {
		if strings.HasSuffix(filepath.ToSlash(t.ID.FilePath), "/"+changePath) {
			out = append(out, t)
		}
	}
	return out
}

func isAffected(t *graph.TypeEntity, lines []int) bool {
	for _, line := range lines {
		if t.ID.SpansLine(line) {
			return true
		}
	}
	return false
}
