// Package builtins supplies the deterred and function macro catalogue of
// SPEC_FULL.md §4: a bounded, representative set of the built-ins r4d ships
// (function_map_impl.rs / deterred_map_impl.rs), restored because nothing
// in spec.md's Non-goals excludes them.
//
// Grounded on the teacher's own RegisterBasicMathLib/RegisterXxxLib
// convention (src/lib_basicmath.go et al.): one Register* function per
// concern, each a closure-registering pass over an engine.MacroMap.
package builtins

import "github.com/bramblecask/macroproc/internal/engine"

// Register installs every built-in group onto mm. Called once, right after
// a Processor is constructed, before any input is parsed.
func Register(mm *engine.MacroMap) {
	registerStrings(mm)
	registerMath(mm)
	registerTables(mm)
	registerSystem(mm)
	registerContracts(mm)
	registerControl(mm)
}
