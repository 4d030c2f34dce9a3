// Package resolution reports the outcome of any lookup (symbol, call target,
// type, namespace member) as a confidence-tagged value. "No answer" is a
// normal value, never an error.
package resolution

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Confidence is a total order: High > Medium > Low > None.
type Confidence int

const (
	None Confidence = iota
	Low
	Medium
	High
)

var confidenceNames = [...]string{"none", "low", "medium", "high"}

func (c Confidence) String() string {
	if c < None || c > High {
		return fmt.Sprintf("confidence(%d)", int(c))
	}
	return confidenceNames[c]
}

func (c Confidence) MarshalText() ([]byte, error) {
	if c < None || c > High {
		return nil, errors.Errorf("invalid confidence %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Confidence) UnmarshalText(text []byte) error {
	parsed, err := ParseConfidence(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseConfidence is case-insensitive.
func ParseConfidence(s string) (Confidence, error) {
	for i, name := range confidenceNames {
		if strings.EqualFold(s, name) {
			return Confidence(i), nil
		}
	}
	return None, errors.Errorf("unknown confidence %q", s)
}

// Score maps a tier onto the numeric relation confidence used for edges.
func (c Confidence) Score() float64 {
	switch c {
	case High:
		return 0.9
	case Medium:
		return 0.7
	case Low:
		return 0.4
	default:
		return 0
	}
}

// FromScore buckets a numeric relation confidence into a tier.
func FromScore(score float64) Confidence {
	switch {
	case score >= 0.85:
		return High
	case score >= 0.6:
		return Medium
	case score >= 0.1:
		return Low
	default:
		return None
	}
}

// Reason explains how a resolution was reached.
type Reason string

const (
	ReasonDirectMatch  Reason = "direct_match"
	ReasonImported     Reason = "imported"
	ReasonInherited    Reason = "inherited"
	ReasonInferred     Reason = "inferred"
	ReasonPartialMatch Reason = "partial_match"
	ReasonBuiltin      Reason = "builtin"
	ReasonExternal     Reason = "external"
	ReasonNotFound     Reason = "not_found"
	ReasonAmbiguous    Reason = "ambiguous"
)

// precedence orders reasons for tie-breaking equal-confidence candidates.
// Higher wins. Failure reasons rank below every success reason.
func (r Reason) precedence() int {
	switch r {
	case ReasonDirectMatch:
		return 8
	case ReasonImported:
		return 7
	case ReasonInherited:
		return 6
	case ReasonInferred:
		return 5
	case ReasonPartialMatch:
		return 4
	case ReasonBuiltin:
		return 3
	case ReasonExternal:
		return 2
	case ReasonAmbiguous:
		return 1
	default:
		return 0
	}
}

// IsFailure reports whether the reason is only legal for an absent result.
func (r Reason) IsFailure() bool {
	return r == ReasonNotFound || r == ReasonAmbiguous
}

// Resolution is the outcome of a lookup. Resolved is nil when nothing was
// found, in which case Reason is not_found or ambiguous.
type Resolution[T any] struct {
	Resolved       *T         `json:"resolved,omitempty"`
	Confidence     Confidence `json:"confidence"`
	Reason         Reason     `json:"reason"`
	ResolutionPath []string   `json:"resolution_path,omitempty"`
}

// IsResolved reports whether a value was found.
func (r Resolution[T]) IsResolved() bool {
	return r.Resolved != nil
}

// Value returns the resolved value, or the zero value and false.
func (r Resolution[T]) Value() (T, bool) {
	if r.Resolved == nil {
		var zero T
		return zero, false
	}
	return *r.Resolved, true
}

func resolved[T any](v T, c Confidence, reason Reason, path []string) Resolution[T] {
	if reason.IsFailure() {
		// A found value never carries a failure reason.
		reason = ReasonPartialMatch
	}
	return Resolution[T]{
		Resolved:       &v,
		Confidence:     c,
		Reason:         reason,
		ResolutionPath: clonePath(path),
	}
}

// HighConfidence, MediumConfidence and LowConfidence build resolved values.
func HighConfidence[T any](v T, reason Reason, path ...string) Resolution[T] {
	return resolved(v, High, reason, path)
}

func MediumConfidence[T any](v T, reason Reason, path ...string) Resolution[T] {
	return resolved(v, Medium, reason, path)
}

func LowConfidence[T any](v T, reason Reason, path ...string) Resolution[T] {
	return resolved(v, Low, reason, path)
}

// Failed is the "not found" outcome.
func Failed[T any](path ...string) Resolution[T] {
	return Resolution[T]{
		Confidence:     None,
		Reason:         ReasonNotFound,
		ResolutionPath: clonePath(path),
	}
}

// Ambiguous is the outcome when more than one candidate fits equally well.
func Ambiguous[T any](path ...string) Resolution[T] {
	return Resolution[T]{
		Confidence:     None,
		Reason:         ReasonAmbiguous,
		ResolutionPath: clonePath(path),
	}
}

// Chain combines a resolution with the one that follows it in a cross-file
// or multi-hop lookup. Confidence is the minimum of the two, paths are
// concatenated and the reason comes from the weaker input. On equal
// confidence the reason with lower precedence is kept, so the result
// describes its weakest link. If either side is unresolved the result is too,
// and a not_found on either side makes the result not_found.
func Chain[A, B any](first Resolution[A], next Resolution[B]) Resolution[B] {
	out := Resolution[B]{
		Confidence:     min(first.Confidence, next.Confidence),
		ResolutionPath: concatPaths(first.ResolutionPath, next.ResolutionPath),
	}

	if !first.IsResolved() || !next.IsResolved() {
		out.Reason = combinedFailure(first, next)
		out.Confidence = None
		return out
	}

	out.Resolved = next.Resolved
	switch {
	case first.Confidence < next.Confidence:
		out.Reason = first.Reason
	case next.Confidence < first.Confidence:
		out.Reason = next.Reason
	case first.Reason.precedence() < next.Reason.precedence():
		out.Reason = first.Reason
	default:
		out.Reason = next.Reason
	}
	return out
}

// Then feeds a resolved value into the next lookup and chains the two. An
// unresolved input short-circuits without calling f.
func Then[A, B any](r Resolution[A], f func(A) Resolution[B]) Resolution[B] {
	v, ok := r.Value()
	if !ok {
		return Resolution[B]{
			Confidence:     None,
			Reason:         failureReason(r.Reason),
			ResolutionPath: clonePath(r.ResolutionPath),
		}
	}
	return Chain(r, f(v))
}

// Map transforms the resolved value, keeping confidence, reason and path.
func Map[A, B any](r Resolution[A], f func(A) B) Resolution[B] {
	out := Resolution[B]{
		Confidence:     r.Confidence,
		Reason:         r.Reason,
		ResolutionPath: clonePath(r.ResolutionPath),
	}
	if v, ok := r.Value(); ok {
		mapped := f(v)
		out.Resolved = &mapped
	}
	return out
}

// Compare orders two resolutions: resolved beats unresolved, then higher
// confidence, then reason precedence
// (direct_match > imported > inherited > inferred > partial_match > builtin > external).
// It returns a positive number when a is better than b.
func Compare[T any](a, b Resolution[T]) int {
	if a.IsResolved() != b.IsResolved() {
		if a.IsResolved() {
			return 1
		}
		return -1
	}
	if a.Confidence != b.Confidence {
		return int(a.Confidence) - int(b.Confidence)
	}
	return a.Reason.precedence() - b.Reason.precedence()
}

// Best picks the strongest candidate. The earliest of equally strong
// candidates wins. With no candidates the result is Failed.
func Best[T any](candidates ...Resolution[T]) Resolution[T] {
	if len(candidates) == 0 {
		return Failed[T]()
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if Compare(c, best) > 0 {
			best = c
		}
	}
	return best
}

// combinedFailure names why a chain with at least one unresolved side
// failed. A not_found on either side wins over ambiguity.
func combinedFailure[A, B any](first Resolution[A], next Resolution[B]) Reason {
	reason := ReasonAmbiguous
	if !first.IsResolved() {
		reason = failureReason(first.Reason)
	}
	if !next.IsResolved() && failureReason(next.Reason) == ReasonNotFound {
		reason = ReasonNotFound
	}
	return reason
}

func failureReason(r Reason) Reason {
	if r == ReasonAmbiguous {
		return ReasonAmbiguous
	}
	return ReasonNotFound
}

func clonePath(path []string) []string {
	if len(path) == 0 {
		return nil
	}
	out := make([]string, len(path))
	copy(out, path)
	return out
}

func concatPaths(a, b []string) []string {
	if len(a)+len(b) == 0 {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
