// Package reference classifies every use-site of a symbol into exactly one
// variant. Variants are distinct Go types behind the sealed Reference
// interface, so a reference cannot carry another variant's fields.
package reference

import (
	"symgraph/internal/ids"
	"symgraph/internal/resolution"
)

type Kind string

const (
	KindSelfReferenceCall Kind = "self_reference_call"
	KindMethodCall        Kind = "method_call"
	KindFunctionCall      Kind = "function_call"
	KindConstructorCall   Kind = "constructor_call"
	KindVariableReference Kind = "variable_reference"
	KindPropertyAccess    Kind = "property_access"
	KindTypeReference     Kind = "type_reference"
	KindAssignment        Kind = "assignment"
)

// SelfKeyword names the enclosing instance or class.
type SelfKeyword string

const (
	KeywordThis  SelfKeyword = "this"
	KeywordSelf  SelfKeyword = "self"
	KeywordSuper SelfKeyword = "super"
	KeywordCls   SelfKeyword = "cls"
)

func (k SelfKeyword) Valid() bool {
	switch k {
	case KeywordThis, KeywordSelf, KeywordSuper, KeywordCls:
		return true
	}
	return false
}

type Access string

const (
	AccessRead  Access = "read"
	AccessWrite Access = "write"
)

type TypeContext string

const (
	TypeContextAnnotation      TypeContext = "annotation"
	TypeContextExtends         TypeContext = "extends"
	TypeContextImplements      TypeContext = "implements"
	TypeContextGenericArgument TypeContext = "generic_argument"
	TypeContextReturn          TypeContext = "return"
)

// TypeInfo is what the extractor knows about the type at a use-site. For
// member accesses and calls it describes the receiver.
type TypeInfo struct {
	TypeName  string                `json:"type_name" yaml:"type_name"`
	Certainty resolution.Confidence `json:"certainty" yaml:"certainty"`
}

// Base holds the fields shared by every variant.
type Base struct {
	Location ids.Location `json:"location"`
	Scope    ids.ScopeID  `json:"scope"`
	Name     string       `json:"name"`
	TypeInfo *TypeInfo    `json:"type_info,omitempty"`
}

func (b Base) Common() Base { return b }

// Reference is implemented only by the variant types in this package.
type Reference interface {
	Kind() Kind
	Common() Base
	sealed()
}

// SelfReferenceCall is a call through this/self/super/cls. It resolves
// against the enclosing type, not against an inferred receiver type.
type SelfReferenceCall struct {
	Base
	Keyword       SelfKeyword `json:"keyword"`
	PropertyChain []string    `json:"property_chain"`
	Optional      bool        `json:"optional,omitempty"`
}

type MethodCall struct {
	Base
	ReceiverLocation ids.Location `json:"receiver_location"`
	PropertyChain    []string     `json:"property_chain"`
	Optional         bool         `json:"optional,omitempty"`
}

type FunctionCall struct {
	Base
}

// ConstructorCall has an AssignTarget only when the constructed value is bound.
type ConstructorCall struct {
	Base
	AssignTarget *ids.Location `json:"assign_target,omitempty"`
}

type VariableReference struct {
	Base
	Access Access `json:"access"`
}

type PropertyAccess struct {
	Base
	ReceiverLocation ids.Location `json:"receiver_location"`
	PropertyChain    []string     `json:"property_chain"`
	Optional         bool         `json:"optional,omitempty"`
}

type TypeReference struct {
	Base
	Context TypeContext `json:"context"`
}

type Assignment struct {
	Base
	TargetLocation ids.Location `json:"target_location"`
}

func (SelfReferenceCall) Kind() Kind { return KindSelfReferenceCall }
func (MethodCall) Kind() Kind        { return KindMethodCall }
func (FunctionCall) Kind() Kind      { return KindFunctionCall }
func (ConstructorCall) Kind() Kind   { return KindConstructorCall }
func (VariableReference) Kind() Kind { return KindVariableReference }
func (PropertyAccess) Kind() Kind    { return KindPropertyAccess }
func (TypeReference) Kind() Kind     { return KindTypeReference }
func (Assignment) Kind() Kind        { return KindAssignment }

func (SelfReferenceCall) sealed() {}
func (MethodCall) sealed()        {}
func (FunctionCall) sealed()      {}
func (ConstructorCall) sealed()   {}
func (VariableReference) sealed() {}
func (PropertyAccess) sealed()    {}
func (TypeReference) sealed()     {}
func (Assignment) sealed()        {}
