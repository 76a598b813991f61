package builtins

import (
	"strings"

	"github.com/bramblecask/macroproc/internal/engine"
)

// truthy follows r4d's own convention: empty, "0" and "false" are false,
// anything else (after trimming) is true.
func truthy(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != "0" && s != "false"
}

func registerContracts(mm *engine.MacroMap) {
	// require(cond) is a hard precondition: failing it is always fatal,
	// regardless of the active error-behaviour mode (spec §7,
	// UnsoundExecution always aborts).
	mm.InsertDeterred("require", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		cond, err := proc.ParseChunk(level+1, "require", rawArgs)
		if err != nil {
			return "", false, err
		}
		if !truthy(cond) {
			return "", false, engine.NewError(engine.KindUnsoundExec, "requirement failed: %q", rawArgs)
		}
		return "", true, nil
	})

	// strict(cond) is a soft precondition: failure is an AssertFail, which
	// Assert behaviour mode tallies instead of aborting (spec §7).
	mm.InsertDeterred("strict", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		cond, err := proc.ParseChunk(level+1, "strict", rawArgs)
		if err != nil {
			return "", false, err
		}
		if !truthy(cond) {
			return "", false, engine.NewError(engine.KindAssertFail, "strict condition failed: %q", rawArgs)
		}
		return "", true, nil
	})

	// assert(cond) is strict's synonym name, kept distinct because r4d
	// ships both under these names in its contract section.
	mm.InsertDeterred("assert", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		cond, err := proc.ParseChunk(level+1, "assert", rawArgs)
		if err != nil {
			return "", false, err
		}
		if !truthy(cond) {
			return "", false, engine.NewError(engine.KindAssertFail, "assertion failed: %q", rawArgs)
		}
		return "", true, nil
	})

	// comment(...) swallows its argument unevaluated — a structured,
	// invokable alternative to the line comment character.
	mm.InsertDeterred("comment", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		return "", true, nil
	})

	// panic(message) always raises an UnsoundExecution, short-circuiting
	// every behaviour mode (spec §7) — the escape hatch for "this document
	// cannot continue."
	mm.InsertDeterred("panic", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		msg, err := proc.ParseChunk(level+1, "panic", rawArgs)
		if err != nil {
			return "", false, err
		}
		return "", false, engine.NewError(engine.KindUnsoundExec, "panic: %s", msg)
	})
}
