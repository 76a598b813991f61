package builtins

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bramblecask/macroproc/internal/engine"
)

func newTestProcessor(t *testing.T, configure ...func(cfg *engine.Config)) (*engine.Processor, *string) {
	t.Helper()
	cfg := engine.DefaultConfig()
	for _, c := range configure {
		c(cfg)
	}
	proc := engine.NewProcessor(cfg)
	Register(proc.MacroMap)
	var out string
	proc.SetSink(*engine.NewVariableSink(&out))
	return proc, &out
}

func TestBuiltinsStringFunctions(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$upper(abc) $lower(ABC) $trim( hi )$len(hello)\n")
	require.NoError(t, err)
	require.Equal(t, "ABC abc hi5\n", *out)
}

func TestBuiltinsSubstr(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$substr(hello world,0,5)\n")
	require.NoError(t, err)
	require.Equal(t, "hello\n", *out)
}

func TestBuiltinsSplitJoinRoundTrip(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$join($split(a-b-c,-),+)\n")
	require.NoError(t, err)
	require.Equal(t, "a+b+c\n", *out)
}

func TestBuiltinsRegexAndRegsub(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$regex(hello123,[0-9]+) $regsub(hello123,[0-9]+,#)\n")
	require.NoError(t, err)
	require.Equal(t, "123 hello#\n", *out)
}

func TestBuiltinsEvalArithmetic(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$eval(2 + 3 * 4)\n")
	require.NoError(t, err)
	require.Equal(t, "14\n", *out)
}

func TestBuiltinsEvalParensAndDivision(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$eval((2 + 3) / 5)\n")
	require.NoError(t, err)
	require.Equal(t, "1\n", *out)
}

func TestBuiltinsCeilFloorRound(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$ceil(1.2) $floor(1.8) $round(1.5)\n")
	require.NoError(t, err)
	require.Equal(t, "2 1 2\n", *out)
}

func TestBuiltinsCSV(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$csv(name,age\nAva,3)\n")
	require.NoError(t, err)
	require.Equal(t, "name,age\nAva,3\n", *out)
}

func TestBuiltinsTableYAML(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$tableyaml(name,age\nAva,3)")
	require.NoError(t, err)
	require.Contains(t, *out, "name: Ava")
	require.Contains(t, *out, "age: \"3\"")
}

func TestBuiltinsTableAlignsColumns(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$table(name,age\nAva,3)")
	require.NoError(t, err)
	require.Contains(t, *out, "name")
	require.Contains(t, *out, "----")
}

func TestBuiltinsIfElseTakesOnlyTakenBranch(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$ifelse(1,yes,no)$ifelse(0,yes,no)\n")
	require.NoError(t, err)
	require.Equal(t, "yesno\n", *out)
}

func TestBuiltinsIfElseSkipsUntakenBranchEvaluation(t *testing.T) {
	proc, out := newTestProcessor(t)
	// the else branch references a macro that does not exist; since the
	// condition is true, that branch must never be parsed.
	err := proc.ProcessString("test", "$ifelse(1,ok,$doesnotexist())\n")
	require.NoError(t, err)
	require.Equal(t, "ok\n", *out)
}

func TestBuiltinsForeachBindsValueAndIndex(t *testing.T) {
	proc, out := newTestProcessor(t)
	// foreach's own arg split only recognizes the top-level comma between
	// items and body, so a literal comma-bearing list must be produced by
	// a nested invocation rather than written inline.
	err := proc.ProcessString("test", "$define(items=a,b,c)$foreach($items(),[$n():$a()])\n")
	require.NoError(t, err)
	require.Equal(t, "[0:a][1:b][2:c]\n", *out)
}

func TestBuiltinsForloopCountsFromZero(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$forloop(3,-$n())\n")
	require.NoError(t, err)
	require.Equal(t, "-0-1-2\n", *out)
}

func TestBuiltinsRequirePassesOnTruthyCondition(t *testing.T) {
	proc, _ := newTestProcessor(t)
	err := proc.ProcessString("test", "$require(1)\n")
	require.NoError(t, err)
}

func TestBuiltinsRequireFailsFatally(t *testing.T) {
	proc, _ := newTestProcessor(t)
	err := proc.ProcessString("test", "$require(0)\n")
	require.Error(t, err)
}

func TestBuiltinsStrictFailureTalliesUnderAssertBehaviour(t *testing.T) {
	proc, _ := newTestProcessor(t, func(cfg *engine.Config) { cfg.Behaviour = engine.BehaviourAssert })
	err := proc.ProcessString("test", "$strict(0)\n")
	require.NoError(t, err, "Assert behaviour tallies an AssertFail instead of aborting")
	require.Equal(t, 1, proc.AssertFailures())
}

func TestBuiltinsPanicAlwaysFatal(t *testing.T) {
	proc, _ := newTestProcessor(t)
	err := proc.ProcessString("test", "$panic(stop here)\n")
	require.Error(t, err)
	eerr, ok := err.(*engine.Error)
	require.True(t, ok)
	require.Equal(t, engine.KindStrictPanic, eerr.Kind, "UnsoundExecution always escalates to StrictPanic regardless of behaviour mode")
}

func TestBuiltinsCommentSwallowsArgument(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "before$comment(this is dropped)after\n")
	require.NoError(t, err)
	require.Equal(t, "beforeafter\n", *out)
}

func TestBuiltinsEnvRestrictedCapabilityFails(t *testing.T) {
	// Strict behaviour is used here because Lenient (the default) falls back
	// to passing the invocation text through verbatim on any capability
	// error, which would hide the restriction instead of surfacing it.
	proc, _ := newTestProcessor(t, func(cfg *engine.Config) { cfg.Behaviour = engine.BehaviourStrict })
	proc.State.SetAuth(engine.AuthEnv, engine.AuthRestricted)
	err := proc.ProcessString("test", "$env(PATH)\n")
	require.Error(t, err)
}

func TestBuiltinsWriteToAndReadToRoundTrip(t *testing.T) {
	proc, out := newTestProcessor(t)
	path := t.TempDir() + "/note.txt"
	err := proc.ProcessString("test", "$writeto("+path+",hello)$readto("+path+")\n")
	require.NoError(t, err)
	require.Equal(t, "hello\n", *out)
}

func TestBuiltinsHumanSize(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$humansize(1048576)\n")
	require.NoError(t, err)
	require.Equal(t, "1.0 MB\n", *out)
}

func TestBuiltinsIsolateExpandsItsBody(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$define(x=5)$isolate(value is $x())\n")
	require.NoError(t, err)
	require.Equal(t, "value is 5\n", *out)
}

func TestBuiltinsRelayMacroCapturesOutput(t *testing.T) {
	proc, out := newTestProcessor(t)
	err := proc.ProcessString("test", "$define(sink=)$relay(macro:sink)captured$halt()\n")
	require.NoError(t, err)
	require.Equal(t, "\n", *out)
	rule, ok := proc.MacroMap.LookupRuntime("sink")
	require.True(t, ok)
	require.Equal(t, "captured", rule.Body)
}

func TestBuiltinsIncludeReadsAndExpandsFile(t *testing.T) {
	proc, out := newTestProcessor(t)
	path := t.TempDir() + "/body.txt"
	require.NoError(t, os.WriteFile(path, []byte("$define(x=inner)$x()"), 0o644))
	err := proc.ProcessString("test", "$include("+path+")\n")
	require.NoError(t, err)
	require.Equal(t, "inner\n", *out)
}

func TestBuiltinsFreezeImportRoundTrip(t *testing.T) {
	proc, _ := newTestProcessor(t)
	bundle := t.TempDir() + "/b.mpz"
	require.NoError(t, proc.ProcessString("test", "$define(greeting=hi)$freeze("+bundle+")"))

	proc2, out2 := newTestProcessor(t)
	require.NoError(t, proc2.ProcessString("test2", "$import("+bundle+")$greeting()\n"))
	require.Equal(t, "hi\n", *out2)
}
