package resolution

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidence_Order(t *testing.T) {
	assert.True(t, High > Medium)
	assert.True(t, Medium > Low)
	assert.True(t, Low > None)
	assert.Equal(t, "medium", Medium.String())

	c, err := ParseConfidence("HIGH")
	require.NoError(t, err)
	assert.Equal(t, High, c)

	_, err = ParseConfidence("certain")
	assert.Error(t, err)
}

func TestConfidence_ScoreBuckets(t *testing.T) {
	for _, c := range []Confidence{None, Low, Medium, High} {
		assert.Equal(t, c, FromScore(c.Score()), "tier %s", c)
	}
	assert.Equal(t, Low, FromScore(0.55))
	assert.Equal(t, High, FromScore(0.99))
}

func TestFailed_Shape(t *testing.T) {
	f := Failed[string]("a.ts")
	assert.False(t, f.IsResolved())
	assert.Equal(t, None, f.Confidence)
	assert.Equal(t, ReasonNotFound, f.Reason)
	assert.Equal(t, []string{"a.ts"}, f.ResolutionPath)

	amb := Ambiguous[string]()
	assert.False(t, amb.IsResolved())
	assert.Equal(t, ReasonAmbiguous, amb.Reason)
}

func TestResolvedConstructors_NeverCarryFailureReason(t *testing.T) {
	r := HighConfidence("x", ReasonNotFound)
	assert.True(t, r.IsResolved())
	assert.False(t, r.Reason.IsFailure())
}

func TestChain_ConfidenceIsMinimum(t *testing.T) {
	tiers := []Confidence{Low, Medium, High}
	build := map[Confidence]func(int, Reason, ...string) Resolution[int]{
		Low:    LowConfidence[int],
		Medium: MediumConfidence[int],
		High:   HighConfidence[int],
	}

	for _, a := range tiers {
		for _, b := range tiers {
			first := build[a](1, ReasonImported, "a.ts")
			next := build[b](2, ReasonInherited, "b.ts")
			out := Chain(first, next)

			assert.Equal(t, min(a, b), out.Confidence)
			assert.LessOrEqual(t, out.Confidence, a)
			assert.LessOrEqual(t, out.Confidence, b)
			assert.Equal(t, []string{"a.ts", "b.ts"}, out.ResolutionPath)
			v, ok := out.Value()
			require.True(t, ok)
			assert.Equal(t, 2, v)
		}
	}
}

func TestChain_ReasonFromWeakerInput(t *testing.T) {
	out := Chain(HighConfidence("A", ReasonDirectMatch), LowConfidence(7, ReasonInferred))
	assert.Equal(t, ReasonInferred, out.Reason)

	out = Chain(MediumConfidence("A", ReasonPartialMatch), HighConfidence(7, ReasonDirectMatch))
	assert.Equal(t, ReasonPartialMatch, out.Reason)

	// Equal confidence keeps the less precise reason.
	out = Chain(HighConfidence("A", ReasonDirectMatch), HighConfidence(7, ReasonImported))
	assert.Equal(t, ReasonImported, out.Reason)
}

func TestChain_WithFailureIsFailure(t *testing.T) {
	ok := HighConfidence("A", ReasonDirectMatch, "a.ts")

	out := Chain(ok, Failed[int]("b.ts"))
	assert.False(t, out.IsResolved())
	assert.Equal(t, None, out.Confidence)
	assert.Equal(t, ReasonNotFound, out.Reason)
	assert.Equal(t, []string{"a.ts", "b.ts"}, out.ResolutionPath)

	out2 := Chain(Failed[string](), HighConfidence(1, ReasonDirectMatch))
	assert.False(t, out2.IsResolved())
	assert.Equal(t, ReasonNotFound, out2.Reason)
	assert.Equal(t, None, out2.Confidence)

	// not_found dominates ambiguity in either order.
	out3 := Chain(Ambiguous[string]("a"), Failed[int]("b"))
	assert.Equal(t, ReasonNotFound, out3.Reason)
	assert.Equal(t, None, out3.Confidence)
	assert.Equal(t, []string{"a", "b"}, out3.ResolutionPath)

	out4 := Chain(Failed[string]("a"), Ambiguous[int]("b"))
	assert.Equal(t, ReasonNotFound, out4.Reason)
	assert.Equal(t, None, out4.Confidence)

	out5 := Chain(ok, Ambiguous[int]("b.ts"))
	assert.Equal(t, ReasonAmbiguous, out5.Reason)
	assert.Equal(t, None, out5.Confidence)
}

func TestThen_ShortCircuits(t *testing.T) {
	called := false
	out := Then(Ambiguous[string]("x.py"), func(s string) Resolution[int] {
		called = true
		return HighConfidence(1, ReasonDirectMatch)
	})
	assert.False(t, called)
	assert.Equal(t, ReasonAmbiguous, out.Reason)
	assert.Equal(t, []string{"x.py"}, out.ResolutionPath)

	out = Then(HighConfidence("Dog", ReasonImported, "main.py"), func(s string) Resolution[int] {
		return MediumConfidence(len(s), ReasonInherited, "animals.py")
	})
	v, ok := out.Value()
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, Medium, out.Confidence)
	assert.Equal(t, ReasonInherited, out.Reason)
	assert.Equal(t, []string{"main.py", "animals.py"}, out.ResolutionPath)
}

func TestMap(t *testing.T) {
	out := Map(LowConfidence(21, ReasonBuiltin), func(v int) int { return v * 2 })
	v, _ := out.Value()
	assert.Equal(t, 42, v)
	assert.Equal(t, Low, out.Confidence)

	failed := Map(Failed[int](), func(v int) int { return v })
	assert.False(t, failed.IsResolved())
}

func TestBest_TieBreakOrder(t *testing.T) {
	order := []Reason{
		ReasonDirectMatch,
		ReasonImported,
		ReasonInherited,
		ReasonInferred,
		ReasonPartialMatch,
		ReasonBuiltin,
		ReasonExternal,
	}
	for i := 0; i < len(order)-1; i++ {
		better := HighConfidence(i, order[i])
		worse := HighConfidence(i+1, order[i+1])
		assert.Equal(t, better, Best(worse, better), "%s should beat %s", order[i], order[i+1])
	}

	// Confidence dominates reason.
	assert.Equal(t, Medium, Best(LowConfidence(1, ReasonDirectMatch), MediumConfidence(2, ReasonExternal)).Confidence)
	assert.True(t, Best(Failed[int](), LowConfidence(3, ReasonExternal)).IsResolved())
	assert.Equal(t, ReasonNotFound, Best[int]().Reason)
}

func TestResolution_JSON(t *testing.T) {
	data, err := json.Marshal(MediumConfidence("Base", ReasonInherited, "a.py", "b.py"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"resolved":"Base","confidence":"medium","reason":"inherited","resolution_path":["a.py","b.py"]}`, string(data))

	var back Resolution[string]
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Medium, back.Confidence)
	v, _ := back.Value()
	assert.Equal(t, "Base", v)
}
