package ids

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func methodID(path string) SymbolID {
	return SymbolID{
		Kind: KindMethod,
		Location: Location{
			FilePath:    path,
			StartLine:   10,
			StartColumn: 5,
			EndLine:     15,
			EndColumn:   10,
		},
		Name:      "getValue",
		Qualifier: "MyClass",
	}
}

func TestSymbolID_EncodeLiteral(t *testing.T) {
	s, err := methodID("/src/test.ts").Encode()
	require.NoError(t, err)
	assert.Equal(t, "method:/src/test.ts:10:5:15:10:getValue:MyClass", s)

	decoded, err := DecodeSymbol(s)
	require.NoError(t, err)
	assert.Equal(t, methodID("/src/test.ts"), decoded)
}

func TestSymbolID_DecodeWindowsPath(t *testing.T) {
	decoded, err := DecodeSymbol(`method:C:\Users\test\file.ts:10:5:15:10:getValue:MyClass`)
	require.NoError(t, err)
	assert.Equal(t, methodID(`C:\Users\test\file.ts`), decoded)
}

func TestSymbolID_RoundTrip(t *testing.T) {
	paths := []string{
		"/src/test.ts",
		`C:\Users\test\file.ts`,
		"a:1",
		"weird:10:5:path.py",
		"::",
		"relative/dir/mod.rs",
	}
	qualifiers := []string{"", "MyClass", "Outer.Inner"}
	names := []string{"getValue", "__init__", "x1", "10px"}

	for _, p := range paths {
		for _, q := range qualifiers {
			for _, n := range names {
				id := SymbolID{
					Kind:      KindFunction,
					Location:  Location{FilePath: p, StartLine: 1, StartColumn: 0, EndLine: 22, EndColumn: 3},
					Name:      n,
					Qualifier: q,
				}
				t.Run(fmt.Sprintf("%s|%s|%s", p, n, q), func(t *testing.T) {
					s, err := id.Encode()
					require.NoError(t, err)
					decoded, err := DecodeSymbol(s)
					require.NoError(t, err)
					assert.Equal(t, id, decoded)
				})
			}
		}
	}
}

func TestSymbolID_EncodeRejectsUnsafeComponents(t *testing.T) {
	base := methodID("/src/a.ts")

	cases := map[string]func(id *SymbolID){
		"separator in name":      func(id *SymbolID) { id.Name = "a:b" },
		"separator in qualifier": func(id *SymbolID) { id.Qualifier = "A:B" },
		"separator in kind":      func(id *SymbolID) { id.Kind = "me:thod" },
		"empty kind":             func(id *SymbolID) { id.Kind = "" },
		"empty name":             func(id *SymbolID) { id.Name = "" },
		"numeric name":           func(id *SymbolID) { id.Name = "42" },
		"empty path":             func(id *SymbolID) { id.FilePath = "" },
		"negative line":          func(id *SymbolID) { id.StartLine = -1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			id := base
			mutate(&id)
			_, err := id.Encode()
			assert.True(t, errors.Is(err, ErrInvalidComponent), "got %v", err)
		})
	}
}

func TestDecodeSymbol_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"method:/a.ts:1:2:3",
		"method:/a.ts:1:2:3:4",
		"method:/a.ts:x:2:3:4:name",
		"method:/a.ts:1:2:3:-4:name",
		"method::1:2:3:4:name",
	}
	for _, in := range inputs {
		_, err := DecodeSymbol(in)
		assert.True(t, errors.Is(err, ErrMalformedIdentifier), "input %q: got %v", in, err)
	}
}

func TestDecodeSymbol_UnqualifiedPathWithSeparator(t *testing.T) {
	// Eight segments: the count alone would suggest a qualifier.
	decoded, err := DecodeSymbol(`function:C:\src\util.py:3:0:9:4:helper`)
	require.NoError(t, err)
	assert.Equal(t, `C:\src\util.py`, decoded.FilePath)
	assert.Equal(t, "helper", decoded.Name)
	assert.Empty(t, decoded.Qualifier)
}

func TestScopeID_RoundTrip(t *testing.T) {
	for _, p := range []string{"/src/a.ts", `D:\work\b.py`} {
		id := ScopeID{Kind: ScopeClass, Location: Location{FilePath: p, StartLine: 2, StartColumn: 1, EndLine: 40, EndColumn: 2}}
		s, err := id.Encode()
		require.NoError(t, err)
		decoded, err := DecodeScope(s)
		require.NoError(t, err)
		assert.Equal(t, id, decoded)
	}

	_, err := DecodeScope("block:/a.ts:1:2:3")
	assert.True(t, errors.Is(err, ErrMalformedIdentifier))
}

func TestSymbolID_JSON(t *testing.T) {
	type wrapper struct {
		ID SymbolID `json:"id"`
	}
	in := wrapper{ID: methodID(`C:\x\y.ts`)}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"method:C:\\x\\y.ts:10:5:15:10:getValue:MyClass"}`, string(data))

	var out wrapper
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestTable_ConcurrentIntern(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := methodID(fmt.Sprintf("/src/f%d.ts", i%4))
			key, err := table.Intern(id)
			assert.NoError(t, err)
			back, err := table.Resolve(key)
			assert.NoError(t, err)
			assert.Equal(t, id, back)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, table.Len())

	_, err := table.Resolve("nope")
	assert.True(t, errors.Is(err, ErrMalformedIdentifier))
}

func TestLocation_Contains(t *testing.T) {
	outer := Location{FilePath: "a.ts", StartLine: 1, StartColumn: 0, EndLine: 20, EndColumn: 1}
	assert.True(t, outer.Contains(Location{FilePath: "a.ts", StartLine: 5, StartColumn: 2, EndLine: 5, EndColumn: 9}))
	assert.False(t, outer.Contains(Location{FilePath: "b.ts", StartLine: 5, EndLine: 5}))
	assert.False(t, outer.Contains(Location{FilePath: "a.ts", StartLine: 19, EndLine: 21}))
	assert.True(t, outer.SpansLine(20))
	assert.False(t, outer.SpansLine(21))
}
