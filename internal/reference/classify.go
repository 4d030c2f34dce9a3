package reference

import (
	"github.com/pkg/errors"

	"symgraph/internal/ids"
)

var (
	ErrIncompleteUseSite = errors.New("incomplete use-site")
	ErrInvalidReference  = errors.New("invalid reference")
)

// Receiver is the expression a member is accessed on.
type Receiver struct {
	Location ids.Location `json:"location" yaml:"location"`
	Text     string       `json:"text" yaml:"text"`
}

// UseSite is the structural context the extractor captured for one use of a name.
type UseSite struct {
	Location ids.Location `json:"location" yaml:"location"`
	Scope    ids.ScopeID  `json:"scope" yaml:"scope"`
	Name     string       `json:"name" yaml:"name"`
	TypeInfo *TypeInfo    `json:"type_info,omitempty" yaml:"type_info,omitempty"`

	// Receiver is set for member accesses (obj.x, obj.x()). Self-rooted
	// accesses may omit its location.
	Receiver *Receiver `json:"receiver,omitempty" yaml:"receiver,omitempty"`
	// Chain is the full member chain, root first: a.b.c.d -> [a b c d].
	Chain    []string `json:"chain,omitempty" yaml:"chain,omitempty"`
	Optional bool     `json:"optional,omitempty" yaml:"optional,omitempty"`

	Invoked   bool `json:"invoked,omitempty" yaml:"invoked,omitempty"`
	Construct bool `json:"construct,omitempty" yaml:"construct,omitempty"`
	// Written is set when the use-site is the target of an assignment.
	Written bool `json:"written,omitempty" yaml:"written,omitempty"`
	// AssignTarget is where a constructed or assigned value is bound.
	AssignTarget *ids.Location `json:"assign_target,omitempty" yaml:"assign_target,omitempty"`

	TypeContext TypeContext `json:"type_context,omitempty" yaml:"type_context,omitempty"`
}

// Classify assigns the use-site to exactly one variant. The order of checks
// matters: type positions and constructions are decided first, then member
// accesses (where the presence of an invocation separates a call from a
// property read), then bare names.
func Classify(site UseSite) (Reference, error) {
	if site.Name == "" {
		return nil, errors.Wrap(ErrIncompleteUseSite, "name is empty")
	}

	base := Base{
		Location: site.Location,
		Scope:    site.Scope,
		Name:     site.Name,
		TypeInfo: site.TypeInfo,
	}

	if site.TypeContext != "" {
		return TypeReference{Base: base, Context: site.TypeContext}, nil
	}

	if site.Construct {
		ref := ConstructorCall{Base: base}
		if site.AssignTarget != nil {
			target := *site.AssignTarget
			ref.AssignTarget = &target
		}
		return ref, nil
	}

	if site.Receiver != nil || len(site.Chain) > 1 {
		return classifyMember(site, base)
	}

	switch {
	case site.Invoked:
		return FunctionCall{Base: base}, nil
	case site.Written:
		return Assignment{Base: base, TargetLocation: targetOf(site)}, nil
	default:
		return VariableReference{Base: base, Access: AccessRead}, nil
	}
}

func classifyMember(site UseSite, base Base) (Reference, error) {
	chain := memberChain(site)
	if len(chain) < 2 {
		return nil, errors.Wrapf(ErrIncompleteUseSite, "member access %q has no receiver", site.Name)
	}

	if kw := SelfKeyword(chain[0]); kw.Valid() && site.Invoked {
		return SelfReferenceCall{
			Base:          base,
			Keyword:       kw,
			PropertyChain: chain,
			Optional:      site.Optional,
		}, nil
	}

	recv, ok := receiverLocation(site, chain[0])
	if !ok {
		return nil, errors.Wrapf(ErrIncompleteUseSite, "member access %q has no receiver location", site.Name)
	}

	switch {
	case site.Invoked:
		return MethodCall{Base: base, ReceiverLocation: recv, PropertyChain: chain, Optional: site.Optional}, nil
	case site.Written:
		return Assignment{Base: base, TargetLocation: targetOf(site)}, nil
	default:
		return PropertyAccess{Base: base, ReceiverLocation: recv, PropertyChain: chain, Optional: site.Optional}, nil
	}
}

// receiverLocation prefers the captured receiver range. A self-rooted access
// without one takes the keyword token at the start of the use-site.
func receiverLocation(site UseSite, root string) (ids.Location, bool) {
	if site.Receiver != nil && !site.Receiver.Location.IsZero() {
		return site.Receiver.Location, true
	}
	if !SelfKeyword(root).Valid() || site.Location.IsZero() {
		return ids.Location{}, false
	}
	return ids.Location{
		FilePath:    site.Location.FilePath,
		StartLine:   site.Location.StartLine,
		StartColumn: site.Location.StartColumn,
		EndLine:     site.Location.StartLine,
		EndColumn:   site.Location.StartColumn + len(root),
	}, true
}

// memberChain returns the root-first chain, building [receiver, name] when
// the extractor only captured the receiver text.
func memberChain(site UseSite) []string {
	if len(site.Chain) > 0 {
		chain := make([]string, len(site.Chain))
		copy(chain, site.Chain)
		if chain[len(chain)-1] != site.Name {
			chain = append(chain, site.Name)
		}
		return chain
	}
	if site.Receiver == nil || site.Receiver.Text == "" {
		return nil
	}
	return []string{site.Receiver.Text, site.Name}
}

func targetOf(site UseSite) ids.Location {
	if site.AssignTarget != nil {
		return *site.AssignTarget
	}
	return site.Location
}

// ClassifyAll classifies a batch, keeping the index of every failed site.
func ClassifyAll(sites []UseSite) ([]Reference, map[int]error) {
	refs := make([]Reference, 0, len(sites))
	var failed map[int]error
	for i, site := range sites {
		ref, err := Classify(site)
		if err != nil {
			if failed == nil {
				failed = make(map[int]error)
			}
			failed[i] = err
			continue
		}
		refs = append(refs, ref)
	}
	return refs, failed
}

// Validate checks that a reference built elsewhere has every field its
// variant requires.
func Validate(ref Reference) error {
	if ref == nil {
		return errors.Wrap(ErrInvalidReference, "nil reference")
	}
	common := ref.Common()
	if common.Name == "" {
		return errors.Wrapf(ErrInvalidReference, "%s has no name", ref.Kind())
	}
	if common.Scope.IsZero() {
		return errors.Wrapf(ErrInvalidReference, "%s %q has no containing scope", ref.Kind(), common.Name)
	}

	switch r := ref.(type) {
	case SelfReferenceCall:
		if !r.Keyword.Valid() {
			return errors.Wrapf(ErrInvalidReference, "self reference %q has keyword %q", r.Name, r.Keyword)
		}
		return checkChain(ref, r.PropertyChain)
	case MethodCall:
		if r.ReceiverLocation.IsZero() {
			return errors.Wrapf(ErrInvalidReference, "method call %q has no receiver location", r.Name)
		}
		return checkChain(ref, r.PropertyChain)
	case PropertyAccess:
		if r.ReceiverLocation.IsZero() {
			return errors.Wrapf(ErrInvalidReference, "property access %q has no receiver location", r.Name)
		}
		return checkChain(ref, r.PropertyChain)
	case VariableReference:
		if r.Access != AccessRead && r.Access != AccessWrite {
			return errors.Wrapf(ErrInvalidReference, "variable reference %q has access %q", r.Name, r.Access)
		}
	case TypeReference:
		if r.Context == "" {
			return errors.Wrapf(ErrInvalidReference, "type reference %q has no context", r.Name)
		}
	case Assignment:
		if r.TargetLocation.IsZero() {
			return errors.Wrapf(ErrInvalidReference, "assignment %q has no target", r.Name)
		}
	case FunctionCall, ConstructorCall:
	default:
		return errors.Wrapf(ErrInvalidReference, "unknown variant %T", ref)
	}
	return nil
}

func checkChain(ref Reference, chain []string) error {
	if len(chain) < 2 {
		return errors.Wrapf(ErrInvalidReference, "%s %q needs a property chain with a root", ref.Kind(), ref.Common().Name)
	}
	for _, part := range chain {
		if part == "" {
			return errors.Wrapf(ErrInvalidReference, "%s %q has an empty chain element", ref.Kind(), ref.Common().Name)
		}
	}
	return nil
}
