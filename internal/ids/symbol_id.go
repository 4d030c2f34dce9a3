package ids

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Separator joins the fields of an encoded identifier. It may legally occur
// inside the file path (e.g. a Windows drive letter) but nowhere else.
const Separator = ":"

var (
	ErrMalformedIdentifier = errors.New("malformed identifier")
	ErrInvalidComponent    = errors.New("invalid identifier component")
)

// SymbolKind is the role of a definition.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindProperty  SymbolKind = "property"
	KindField     SymbolKind = "field"
	KindParameter SymbolKind = "parameter"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
	KindEnum      SymbolKind = "enum"
	KindTypeAlias SymbolKind = "type_alias"
	KindNamespace SymbolKind = "namespace"
	KindModule    SymbolKind = "module"
	KindTrait     SymbolKind = "trait"
	KindStruct    SymbolKind = "struct"
	KindMixin     SymbolKind = "mixin"
	KindImport    SymbolKind = "import"
)

// ScopeKind is the kind of a lexical scope.
type ScopeKind string

const (
	ScopeGlobal      ScopeKind = "global"
	ScopeModule      ScopeKind = "module"
	ScopeClass       ScopeKind = "class"
	ScopeFunction    ScopeKind = "function"
	ScopeMethod      ScopeKind = "method"
	ScopeBlock       ScopeKind = "block"
	ScopeConstructor ScopeKind = "constructor"
	ScopeClosure     ScopeKind = "closure"
)

// Trailing field counts, path excluded.
const (
	symbolArity          = 6 // kind, line, column, end_line, end_column, name
	qualifiedSymbolArity = 7
	scopeArity           = 5 // kind, line, column, end_line, end_column
)

// SymbolID identifies one definition site. Equality is field-wise, so the
// struct itself can be used as a map key.
type SymbolID struct {
	Kind SymbolKind
	Location
	Name string
	// Qualifier is the owning class or function of a nested symbol. Empty means absent.
	Qualifier string
}

// ScopeID identifies one lexical scope.
type ScopeID struct {
	Kind ScopeKind
	Location
}

// Encode renders the identifier as
// kind:path:line:column:end_line:end_column:name[:qualifier].
func (id SymbolID) Encode() (string, error) {
	if err := checkKind(string(id.Kind)); err != nil {
		return "", err
	}
	if err := checkLocation(id.Location); err != nil {
		return "", err
	}
	if err := checkName(id.Name, "name"); err != nil {
		return "", err
	}
	if id.Qualifier != "" {
		if err := checkName(id.Qualifier, "qualifier"); err != nil {
			return "", err
		}
	}
	return id.String(), nil
}

// String joins the fields without validating them. Use Encode for anything
// that will be decoded again.
func (id SymbolID) String() string {
	parts := []string{
		string(id.Kind),
		id.FilePath,
		strconv.Itoa(id.StartLine),
		strconv.Itoa(id.StartColumn),
		strconv.Itoa(id.EndLine),
		strconv.Itoa(id.EndColumn),
		id.Name,
	}
	if id.Qualifier != "" {
		parts = append(parts, id.Qualifier)
	}
	return strings.Join(parts, Separator)
}

// IsZero reports whether id is the zero value.
func (id SymbolID) IsZero() bool {
	return id == SymbolID{}
}

// MarshalText writes the encoded form, so ids are plain strings in JSON and YAML.
func (id SymbolID) MarshalText() ([]byte, error) {
	s, err := id.Encode()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (id *SymbolID) UnmarshalText(text []byte) error {
	decoded, err := DecodeSymbol(string(text))
	if err != nil {
		return err
	}
	*id = decoded
	return nil
}

// DecodeSymbol parses an encoded symbol identifier.
//
// The first segment is the kind and a fixed number of trailing segments hold
// the remaining fields; everything in between is rejoined as the path. A path
// containing the separator makes the segment count alone ambiguous between
// "qualifier present" and "one more path segment", so both trailing layouts
// are tried and only the one whose position fields are integers and whose
// name is a legal name is accepted. The encoder guarantees at most one fits.
func DecodeSymbol(s string) (SymbolID, error) {
	segments := strings.Split(s, Separator)
	if len(segments) < symbolArity+1 {
		return SymbolID{}, errors.Wrapf(ErrMalformedIdentifier, "symbol %q has %d segments, need at least %d", s, len(segments), symbolArity+1)
	}

	if len(segments) >= qualifiedSymbolArity+1 {
		if id, ok := symbolLayout(segments, true); ok {
			return id, nil
		}
	}
	if id, ok := symbolLayout(segments, false); ok {
		return id, nil
	}
	return SymbolID{}, errors.Wrapf(ErrMalformedIdentifier, "symbol %q has no valid field layout", s)
}

func symbolLayout(segments []string, qualified bool) (SymbolID, bool) {
	arity := symbolArity
	if qualified {
		arity = qualifiedSymbolArity
	}
	pathEnd := len(segments) - (arity - 1)
	if pathEnd < 2 {
		return SymbolID{}, false
	}

	id := SymbolID{
		Kind: SymbolKind(segments[0]),
	}
	loc, ok := parseLocation(strings.Join(segments[1:pathEnd], Separator), segments[pathEnd:pathEnd+4])
	if !ok {
		return SymbolID{}, false
	}
	id.Location = loc
	id.Name = segments[pathEnd+4]
	if qualified {
		id.Qualifier = segments[pathEnd+5]
		if checkName(id.Qualifier, "qualifier") != nil {
			return SymbolID{}, false
		}
	}
	if checkKind(string(id.Kind)) != nil || checkName(id.Name, "name") != nil {
		return SymbolID{}, false
	}
	return id, true
}

// Encode renders the scope as kind:path:line:column:end_line:end_column.
func (id ScopeID) Encode() (string, error) {
	if err := checkKind(string(id.Kind)); err != nil {
		return "", err
	}
	if err := checkLocation(id.Location); err != nil {
		return "", err
	}
	return id.String(), nil
}

func (id ScopeID) String() string {
	return strings.Join([]string{
		string(id.Kind),
		id.FilePath,
		strconv.Itoa(id.StartLine),
		strconv.Itoa(id.StartColumn),
		strconv.Itoa(id.EndLine),
		strconv.Itoa(id.EndColumn),
	}, Separator)
}

func (id ScopeID) IsZero() bool {
	return id == ScopeID{}
}

func (id ScopeID) MarshalText() ([]byte, error) {
	s, err := id.Encode()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (id *ScopeID) UnmarshalText(text []byte) error {
	decoded, err := DecodeScope(string(text))
	if err != nil {
		return err
	}
	*id = decoded
	return nil
}

// DecodeScope parses an encoded scope identifier. Scopes carry no qualifier,
// so the trailing layout is fixed.
func DecodeScope(s string) (ScopeID, error) {
	segments := strings.Split(s, Separator)
	if len(segments) < scopeArity+1 {
		return ScopeID{}, errors.Wrapf(ErrMalformedIdentifier, "scope %q has %d segments, need at least %d", s, len(segments), scopeArity+1)
	}

	pathEnd := len(segments) - (scopeArity - 1)
	loc, ok := parseLocation(strings.Join(segments[1:pathEnd], Separator), segments[pathEnd:])
	if !ok || checkKind(segments[0]) != nil {
		return ScopeID{}, errors.Wrapf(ErrMalformedIdentifier, "scope %q has invalid fields", s)
	}
	return ScopeID{Kind: ScopeKind(segments[0]), Location: loc}, nil
}

func parseLocation(path string, positions []string) (Location, bool) {
	if path == "" || len(positions) != 4 {
		return Location{}, false
	}
	var nums [4]int
	for i, p := range positions {
		n, ok := parsePosition(p)
		if !ok {
			return Location{}, false
		}
		nums[i] = n
	}
	return Location{
		FilePath:    path,
		StartLine:   nums[0],
		StartColumn: nums[1],
		EndLine:     nums[2],
		EndColumn:   nums[3],
	}, true
}

// parsePosition accepts plain decimal digits only; no sign, no spaces.
func parsePosition(s string) (int, bool) {
	if !isDigits(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func checkKind(kind string) error {
	if kind == "" {
		return errors.Wrap(ErrInvalidComponent, "kind is empty")
	}
	if strings.Contains(kind, Separator) {
		return errors.Wrapf(ErrInvalidComponent, "kind %q contains %q", kind, Separator)
	}
	return nil
}

func checkLocation(loc Location) error {
	if loc.FilePath == "" {
		return errors.Wrap(ErrInvalidComponent, "file path is empty")
	}
	if loc.StartLine < 0 || loc.StartColumn < 0 || loc.EndLine < 0 || loc.EndColumn < 0 {
		return errors.Wrapf(ErrInvalidComponent, "negative position in %s", loc.FilePath)
	}
	return nil
}

// An all-digit name would be indistinguishable from a position field.
func checkName(name, field string) error {
	if name == "" {
		return errors.Wrapf(ErrInvalidComponent, "%s is empty", field)
	}
	if strings.Contains(name, Separator) {
		return errors.Wrapf(ErrInvalidComponent, "%s %q contains %q", field, name, Separator)
	}
	if isDigits(name) {
		return errors.Wrapf(ErrInvalidComponent, "%s %q is all digits", field, name)
	}
	return nil
}
