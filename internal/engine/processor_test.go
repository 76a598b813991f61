package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T, configure func(cfg *Config)) (*Processor, *string) {
	t.Helper()
	cfg := DefaultConfig()
	if configure != nil {
		configure(cfg)
	}
	proc := NewProcessor(cfg)
	var out string
	proc.SetSink(*NewVariableSink(&out))
	return proc, &out
}

func TestProcessorDefineAndCallStaticMacro(t *testing.T) {
	proc, out := newTestProcessor(t, nil)
	err := proc.ProcessString("test", "$define(k=1)$k()$k()\n")
	require.NoError(t, err)
	require.Equal(t, "11\n", *out)
}

func TestProcessorDefineWithParams(t *testing.T) {
	proc, out := newTestProcessor(t, nil)
	err := proc.ProcessString("test", "$define(greet,who,Hello $who()!)$greet(World)\n")
	require.NoError(t, err)
	require.Equal(t, "Hello World!\n", *out)
}

func TestProcessorHygieneMacroClearsAtLineEnd(t *testing.T) {
	proc, out := newTestProcessor(t, func(cfg *Config) { cfg.Hygiene = HygieneMacro })
	err := proc.ProcessString("test", "$define(k=1)$k()$k()\n$k()\n")
	require.NoError(t, err)
	require.Equal(t, "11\n$k()\n", *out, "volatile runtime macro must survive within its defining line but not past it")
}

func TestProcessorLenientFallbackOnNoSuchMacro(t *testing.T) {
	proc, out := newTestProcessor(t, nil) // default Behaviour is Lenient
	err := proc.ProcessString("test", "before $nope() after\n")
	require.NoError(t, err)
	require.Equal(t, "before $nope() after\n", *out)
}

func TestProcessorStrictBehaviourAborts(t *testing.T) {
	proc, _ := newTestProcessor(t, func(cfg *Config) { cfg.Behaviour = BehaviourStrict })
	err := proc.ProcessString("test", "$nope()\n")
	require.Error(t, err)
	eerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindStrictPanic, eerr.Kind)
}

func TestProcessorNestedArgumentExpansion(t *testing.T) {
	proc, out := newTestProcessor(t, nil)
	err := proc.ProcessString("test", "$define(shout,x,$x()!!!)$define(hi=hello)$shout($hi())\n")
	require.NoError(t, err)
	require.Equal(t, "hello!!!\n", *out)
}

func TestProcessorLocalDoesNotLeakAcrossCalls(t *testing.T) {
	proc, out := newTestProcessor(t, nil)
	err := proc.ProcessString("test", "$define(id,x,$x())$id(A)$id(B)\n")
	require.NoError(t, err)
	require.Equal(t, "AB\n", *out)
}

func TestProcessorFlowEscapeIsStickyAcrossLines(t *testing.T) {
	proc, out := newTestProcessor(t, nil)
	proc.State.Flow = FlowEscape
	err := proc.ProcessString("test", "$notamacro()\nstill escaped\n")
	require.NoError(t, err)
	require.Equal(t, "$notamacro()\nstill escaped\n", *out, "Escape must persist until something else resets it")
}

func TestProcessorRelayDivertsOutput(t *testing.T) {
	proc, out := newTestProcessor(t, nil)
	proc.MacroMap.DefineRuntime(&RuntimeMacro{Name: "sink", Body: "", IsStatic: true, Volatile: true})
	proc.State.PushRelay(RelayTarget{Kind: RelayMacro, MacroName: "sink"})
	err := proc.ProcessString("test", "captured text")
	require.NoError(t, err)
	require.Equal(t, "", *out, "relayed output must not reach the real sink")
	rule, ok := proc.MacroMap.LookupRuntime("sink")
	require.True(t, ok)
	require.Equal(t, "captured text", rule.Body)
}

func TestProcessorPrintPermissionStatus(t *testing.T) {
	proc, _ := newTestProcessor(t, nil)
	require.Equal(t, "ENV=open CMD=open FIN=open FOUT=open", proc.PrintPermissionStatus())

	proc.State.SetAuth(AuthCmd, AuthRestricted)
	proc.State.SetAuth(AuthFin, AuthWarn)
	require.Equal(t, "ENV=open CMD=restricted FIN=warn FOUT=open", proc.PrintPermissionStatus())
}

func TestProcessorFreezeMeltRoundTrip(t *testing.T) {
	proc, _ := newTestProcessor(t, nil)
	require.NoError(t, proc.ProcessString("test", "$define(k=42)"))

	tmp := t.TempDir() + "/bundle.mpz"
	require.NoError(t, proc.Freeze(tmp))

	proc2, out2 := newTestProcessor(t, nil)
	require.NoError(t, proc2.Import(tmp))
	require.NoError(t, proc2.ProcessString("test2", "$k()\n"))
	require.Equal(t, "42\n", *out2)
}
