package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMacroMapLocalSearchOrder(t *testing.T) {
	mm := NewMacroMap()
	mm.NewLocal(1, "x", "outer")
	mm.NewLocal(2, "x", "inner")

	body, ok := mm.LookupLocal(2, "x")
	require.True(t, ok)
	require.Equal(t, "inner", body)

	mm.ClearLowerLocals(1)
	body, ok = mm.LookupLocal(2, "x")
	require.False(t, ok, "level-2 local must be dropped once ClearLowerLocals(1) runs")
	body, ok = mm.LookupLocal(1, "x")
	require.True(t, ok)
	require.Equal(t, "outer", body)
}

func TestMacroMapFixedNamespaceOrder(t *testing.T) {
	mm := NewMacroMap()
	mm.NewLocal(1, "n", "local-body")
	mm.DefineRuntime(&RuntimeMacro{Name: "n", Body: "runtime-body", IsStatic: true})
	mm.InsertDeterred("n", func(string, int, *Processor) (string, bool, error) { return "", true, nil })
	mm.InsertFunction("n", func(string, int, *Processor) (string, bool, error) { return "", true, nil })

	ns, ok := mm.ContainsAny(1, "n")
	require.True(t, ok)
	require.Equal(t, NSLocal, ns, "local must win over runtime/deterred/function")
}

func TestMacroMapClearRuntimeVolatileOnly(t *testing.T) {
	mm := NewMacroMap()
	mm.DefineRuntime(&RuntimeMacro{Name: "v", Body: "1", Volatile: true})
	mm.DefineRuntime(&RuntimeMacro{Name: "p", Body: "2", Volatile: false})

	mm.ClearRuntime(true)
	require.False(t, mm.ContainsRuntime("v"))
	require.True(t, mm.ContainsRuntime("p"))
}

func TestMacroMapSimilarTo(t *testing.T) {
	mm := NewMacroMap()
	mm.DefineRuntime(&RuntimeMacro{Name: "greet", Body: "hi"})

	require.Equal(t, "greet", mm.SimilarTo("greett"))
	require.Equal(t, "", mm.SimilarTo("completely_different_name"))
}

func TestMacroMapSnapshotRestoreLocals(t *testing.T) {
	mm := NewMacroMap()
	mm.NewLocal(1, "a", "before")
	snap := mm.SnapshotLocals()

	mm.NewLocal(1, "a", "after")
	mm.NewLocal(1, "b", "new")

	mm.RestoreLocals(snap)
	_, hasB := mm.LookupLocal(1, "b")
	require.False(t, hasB)
	body, _ := mm.LookupLocal(1, "a")
	require.Equal(t, "before", body)
}
