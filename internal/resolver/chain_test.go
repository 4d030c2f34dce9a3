package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symgraph/internal/graph"
	"symgraph/internal/ids"
	"symgraph/internal/inheritance"
	"symgraph/internal/reference"
	"symgraph/internal/resolution"
)

type fakeStage struct {
	name string
	fn   func(rc *Context) (ResolveStats, error)
}

func (f fakeStage) Name() string { return f.name }
func (f fakeStage) Resolve(rc *Context) (ResolveStats, error) {
	return f.fn(rc)
}

func loc(file string, start, end int) ids.Location {
	return ids.Location{FilePath: file, StartLine: start, EndLine: end}
}

func TestChain_Run(t *testing.T) {
	target := ids.SymbolID{Kind: ids.KindFunction, Location: loc("/src/a.py", 1, 2), Name: "f"}
	refs := []reference.Reference{
		reference.FunctionCall{Base: reference.Base{Location: loc("/src/a.py", 5, 5), Name: "f"}},
		reference.FunctionCall{Base: reference.Base{Location: loc("/src/a.py", 6, 6), Name: "g"}},
	}
	rc := NewContext(graph.NewBuilder().Seal(), nil, refs)

	r1 := fakeStage{
		name: "r1",
		fn: func(rc *Context) (ResolveStats, error) {
			rc.offer(0, resolution.HighConfidence(target, resolution.ReasonDirectMatch))
			return ResolveStats{Attempted: 2, Resolved: 1, Skipped: 1}, nil
		},
	}
	r2 := fakeStage{
		name: "r2",
		fn: func(rc *Context) (ResolveStats, error) {
			rc.offer(1, resolution.LowConfidence(target, resolution.ReasonPartialMatch))
			return ResolveStats{Attempted: 1, Resolved: 1}, nil
		},
	}

	results := NewChain(r1, r2).Run(rc)

	require.Len(t, results, 2)
	assert.Equal(t, "r1", results[0].Resolver)
	assert.Equal(t, "r2", results[1].Resolver)
	assert.Equal(t, 2, results[0].UnresolvedBefore)
	assert.Equal(t, 1, results[0].UnresolvedAfter)
	assert.Equal(t, 1, results[1].UnresolvedBefore)
	assert.Equal(t, 0, results[1].UnresolvedAfter)
}

func TestChain_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	called := false
	chain := NewChain(
		fakeStage{name: "bad", fn: func(*Context) (ResolveStats, error) { return ResolveStats{}, boom }},
		fakeStage{name: "never", fn: func(*Context) (ResolveStats, error) { called = true; return ResolveStats{}, nil }},
	)

	results := chain.Run(NewContext(graph.NewBuilder().Seal(), nil, nil))

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.False(t, called)
}

func TestContext_OfferKeepsStronger(t *testing.T) {
	target := ids.SymbolID{Kind: ids.KindFunction, Location: loc("/src/a.py", 1, 2), Name: "f"}
	refs := []reference.Reference{
		reference.FunctionCall{Base: reference.Base{Location: loc("/src/a.py", 5, 5), Name: "f"}},
	}
	rc := NewContext(graph.NewBuilder().Seal(), nil, refs)
	assert.Equal(t, resolution.ReasonNotFound, rc.Resolutions[0].Reason)

	rc.offer(0, resolution.HighConfidence(target, resolution.ReasonImported))
	rc.offer(0, resolution.LowConfidence(target, resolution.ReasonInferred))

	assert.Equal(t, resolution.High, rc.Resolutions[0].Confidence)
	assert.Equal(t, resolution.ReasonImported, rc.Resolutions[0].Reason)
}

// project is Animal <- Dog in animals.py, plus a second Dog in vet.py.
type project struct {
	g        *graph.Graph
	analysis *inheritance.Result
	animal   ids.SymbolID
	dog      ids.SymbolID
	otherDog ids.SymbolID
	speak    ids.SymbolID
	bark     ids.SymbolID
}

func newProject(t *testing.T) *project {
	t.Helper()
	p := &project{
		animal:   ids.SymbolID{Kind: ids.KindClass, Location: loc("/src/animals.py", 1, 10), Name: "Animal"},
		dog:      ids.SymbolID{Kind: ids.KindClass, Location: loc("/src/animals.py", 12, 30), Name: "Dog"},
		otherDog: ids.SymbolID{Kind: ids.KindClass, Location: loc("/src/vet.py", 1, 5), Name: "Dog"},
	}
	p.speak = ids.SymbolID{Kind: ids.KindMethod, Location: loc("/src/animals.py", 2, 3), Name: "speak", Qualifier: "Animal"}
	p.bark = ids.SymbolID{Kind: ids.KindMethod, Location: loc("/src/animals.py", 13, 14), Name: "bark", Qualifier: "Dog"}

	b := graph.NewBuilder()
	require.NoError(t, b.AddType(&graph.TypeEntity{ID: p.animal, Kind: graph.TypeClass, Members: map[string]ids.SymbolID{"speak": p.speak}}))
	require.NoError(t, b.AddType(&graph.TypeEntity{ID: p.dog, Kind: graph.TypeClass, Extends: []ids.SymbolID{p.animal}, Members: map[string]ids.SymbolID{"bark": p.bark}}))
	require.NoError(t, b.AddType(&graph.TypeEntity{ID: p.otherDog, Kind: graph.TypeClass}))
	p.g = b.Seal()

	res, err := inheritance.NewAnalyzer().Analyze(context.Background(), p.g)
	require.NoError(t, err)
	p.analysis = res
	return p
}

func (p *project) run(refs ...reference.Reference) *Context {
	rc := NewContext(p.g, p.analysis, refs)
	NewDefaultChain().Run(rc)
	return rc
}

func TestSelfStage_ResolvesAgainstEnclosingType(t *testing.T) {
	p := newProject(t)
	at := loc("/src/animals.py", 20, 20)

	rc := p.run(
		reference.SelfReferenceCall{Base: reference.Base{Location: at, Name: "speak"}, Keyword: reference.KeywordSelf, PropertyChain: []string{"self", "speak"}},
		reference.SelfReferenceCall{Base: reference.Base{Location: at, Name: "bark"}, Keyword: reference.KeywordSelf, PropertyChain: []string{"self", "bark"}},
		reference.SelfReferenceCall{Base: reference.Base{Location: at, Name: "bark"}, Keyword: reference.KeywordSuper, PropertyChain: []string{"super", "bark"}},
		reference.SelfReferenceCall{Base: reference.Base{Location: at, Name: "x"}, Keyword: reference.KeywordSelf, PropertyChain: []string{"self", "owner", "x"}},
	)

	inherited := rc.Resolutions[0]
	require.True(t, inherited.IsResolved())
	assert.Equal(t, p.speak, *inherited.Resolved)
	assert.Equal(t, resolution.ReasonInherited, inherited.Reason)
	assert.Equal(t, resolution.High, inherited.Confidence)

	own := rc.Resolutions[1]
	require.True(t, own.IsResolved())
	assert.Equal(t, p.bark, *own.Resolved)
	assert.Equal(t, resolution.ReasonDirectMatch, own.Reason)

	// super skips Dog itself.
	assert.False(t, rc.Resolutions[2].IsResolved())
	assert.False(t, rc.Resolutions[3].IsResolved())
}

func TestSelfStage_OutsideAnyType(t *testing.T) {
	p := newProject(t)
	rc := p.run(reference.SelfReferenceCall{
		Base:          reference.Base{Location: loc("/src/other.py", 3, 3), Name: "speak"},
		Keyword:       reference.KeywordThis,
		PropertyChain: []string{"this", "speak"},
	})
	assert.Equal(t, resolution.ReasonNotFound, rc.Resolutions[0].Reason)
}

func TestMemberStage_UsesReceiverType(t *testing.T) {
	p := newProject(t)
	recv := loc("/src/animals.py", 40, 40)

	rc := p.run(
		reference.MethodCall{
			Base:             reference.Base{Location: recv, Name: "speak", TypeInfo: &reference.TypeInfo{TypeName: "Animal", Certainty: resolution.High}},
			ReceiverLocation: recv,
			PropertyChain:    []string{"a", "speak"},
		},
		reference.MethodCall{
			Base:             reference.Base{Location: loc("/src/main.py", 3, 3), Name: "speak", TypeInfo: &reference.TypeInfo{TypeName: "Animal", Certainty: resolution.Medium}},
			ReceiverLocation: loc("/src/main.py", 3, 3),
			PropertyChain:    []string{"a", "speak"},
		},
		reference.PropertyAccess{
			Base:             reference.Base{Location: loc("/src/main.py", 4, 4), Name: "speak"},
			ReceiverLocation: loc("/src/main.py", 4, 4),
			PropertyChain:    []string{"a", "speak"},
		},
	)

	local := rc.Resolutions[0]
	require.True(t, local.IsResolved())
	assert.Equal(t, p.speak, *local.Resolved)
	assert.Equal(t, resolution.High, local.Confidence)
	assert.Equal(t, resolution.ReasonDirectMatch, local.Reason)

	// Cross-file receiver with a guessed type: min confidence, weakest reason.
	remote := rc.Resolutions[1]
	require.True(t, remote.IsResolved())
	assert.Equal(t, resolution.Medium, remote.Confidence)
	assert.Equal(t, resolution.ReasonImported, remote.Reason)
	assert.Equal(t, []string{"/src/main.py", "/src/animals.py", "/src/animals.py"}, remote.ResolutionPath)

	assert.False(t, rc.Resolutions[2].IsResolved(), "no type info means no member lookup")
}

func TestNameStage_ConstructorAndAmbiguity(t *testing.T) {
	p := newProject(t)

	rc := p.run(
		reference.ConstructorCall{Base: reference.Base{Location: loc("/src/animals.py", 50, 50), Name: "Dog"}},
		reference.ConstructorCall{Base: reference.Base{Location: loc("/src/main.py", 5, 5), Name: "Dog"}},
		reference.TypeReference{Base: reference.Base{Location: loc("/src/main.py", 6, 6), Name: "Animal"}, Context: reference.TypeContextAnnotation},
		reference.FunctionCall{Base: reference.Base{Location: loc("/src/main.py", 7, 7), Name: "Animal"}},
		reference.FunctionCall{Base: reference.Base{Location: loc("/src/main.py", 8, 8), Name: "print"}},
	)

	local := rc.Resolutions[0]
	require.True(t, local.IsResolved())
	assert.Equal(t, p.dog, *local.Resolved)
	assert.Equal(t, resolution.ReasonDirectMatch, local.Reason)

	assert.Equal(t, resolution.ReasonAmbiguous, rc.Resolutions[1].Reason)

	typ := rc.Resolutions[2]
	require.True(t, typ.IsResolved())
	assert.Equal(t, p.animal, *typ.Resolved)
	assert.Equal(t, resolution.ReasonImported, typ.Reason)
	assert.Equal(t, resolution.High, typ.Confidence)

	call := rc.Resolutions[3]
	require.True(t, call.IsResolved())
	assert.Equal(t, resolution.Medium, call.Confidence)

	assert.Equal(t, resolution.ReasonNotFound, rc.Resolutions[4].Reason)
}

func TestDefaultChain_LeavesVariablesAlone(t *testing.T) {
	p := newProject(t)
	rc := NewContext(p.g, p.analysis, []reference.Reference{
		reference.VariableReference{Base: reference.Base{Location: loc("/src/main.py", 1, 1), Name: "Dog"}, Access: reference.AccessRead},
	})

	results := NewDefaultChain().Run(rc)

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Zero(t, r.Stats.Attempted, r.Resolver)
	}
	assert.Equal(t, 1, rc.Unresolved())
}
