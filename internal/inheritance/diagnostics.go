package inheritance

import (
	"fmt"
	"strings"

	"symgraph/internal/ids"
)

type DiagnosticKind string

const (
	CyclicInheritance        DiagnosticKind = "cyclic_inheritance"
	ConflictingLinearization DiagnosticKind = "conflicting_linearization"
	UnresolvedBase           DiagnosticKind = "unresolved_base"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a per-entity analysis problem. It never aborts the pass.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Severity Severity       `json:"severity"`
	Entity   ids.SymbolID   `json:"entity"`
	Related  []ids.SymbolID `json:"related,omitempty"`
	Message  string         `json:"message"`
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Entity.Name, d.Message)
}

func cycleDiagnostic(root ids.SymbolID, cycle []ids.SymbolID) Diagnostic {
	return Diagnostic{
		Kind:     CyclicInheritance,
		Severity: SeverityError,
		Entity:   root,
		Related:  cycle,
		Message:  "inheritance cycle " + joinNames(cycle),
	}
}

func conflictDiagnostic(id ids.SymbolID, related []ids.SymbolID, msg string) Diagnostic {
	return Diagnostic{
		Kind:     ConflictingLinearization,
		Severity: SeverityError,
		Entity:   id,
		Related:  related,
		Message:  msg,
	}
}

func unresolvedBaseDiagnostic(id, base ids.SymbolID) Diagnostic {
	return Diagnostic{
		Kind:     UnresolvedBase,
		Severity: SeverityWarning,
		Entity:   id,
		Related:  []ids.SymbolID{base},
		Message:  fmt.Sprintf("base %s is not part of the project", base.Name),
	}
}

func joinNames(list []ids.SymbolID) string {
	names := make([]string, len(list))
	for i, id := range list {
		names[i] = id.Name
	}
	return strings.Join(names, " -> ")
}
