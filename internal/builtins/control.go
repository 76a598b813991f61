package builtins

import (
	"strconv"
	"strings"

	"github.com/bramblecask/macroproc/internal/engine"
)

// splitRaw splits a deterred macro's raw argument text without stripping
// literal-quote markers, since the pieces are handed back to
// Processor.ParseChunk for the capability's own lazy re-parse (spec §4.5
// step 3's "capability re-parses itself" contract) — stripping here would
// destroy the `\*...*\` markers the Scanner still needs to see.
func splitRaw(rawArgs string, n int) ([]string, error) {
	parts, err := engine.NewArgSplitter().Split(rawArgs, n, false, false)
	if err != nil {
		return nil, engine.NewError(engine.KindInvalidArgument, "%v", err)
	}
	return parts, nil
}

func registerControl(mm *engine.MacroMap) {
	// ifelse(cond, then[, else]) evaluates only the taken branch, which is
	// exactly why it lives in the deterred namespace rather than function:
	// a function macro's payload is always fully (eagerly) expanded first.
	mm.InsertDeterred("ifelse", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		parts, err := engine.NewArgSplitter().Split(rawArgs, 0, false, false)
		if err != nil {
			return "", false, engine.NewError(engine.KindInvalidArgument, "%v", err)
		}
		if len(parts) < 2 {
			return "", false, engine.NewError(engine.KindInvalidArgument, "ifelse requires a condition and a then-branch")
		}
		cond, err := proc.ParseChunk(level+1, "ifelse", parts[0])
		if err != nil {
			return "", false, err
		}
		if truthy(cond) {
			out, perr := proc.ParseChunk(level+1, "ifelse", parts[1])
			if perr != nil {
				return "", false, perr
			}
			return out, true, nil
		}
		if len(parts) >= 3 {
			out, perr := proc.ParseChunk(level+1, "ifelse", parts[2])
			if perr != nil {
				return "", false, perr
			}
			return out, true, nil
		}
		return "", true, nil
	})

	// foreach(items, body) binds each comma-separated item to the locals
	// "a" (value) and "n" (0-based index) for one parse of body per item,
	// concatenating the results — grounded on the same per-call local
	// binding MacroMap.NewLocal/ClearLowerLocals already provides for
	// runtime-macro parameters (Evaluator.Evaluate step 2); the loop
	// variable names are this port's own convention (see DESIGN.md).
	mm.InsertDeterred("foreach", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		parts, err := splitRaw(rawArgs, 2)
		if err != nil {
			return "", false, err
		}
		items, err := proc.ParseChunk(level+1, "foreach", parts[0])
		if err != nil {
			return "", false, err
		}
		list := strings.Split(items, ",")
		var b strings.Builder
		next := level + 1
		for i, item := range list {
			proc.MacroMap.NewLocal(next, "a", strings.TrimSpace(item))
			proc.MacroMap.NewLocal(next, "n", strconv.Itoa(i))
			out, perr := proc.ParseChunk(next, "foreach", parts[1])
			if perr != nil {
				proc.MacroMap.ClearLowerLocals(next - 1)
				return "", false, perr
			}
			b.WriteString(out)
		}
		proc.MacroMap.ClearLowerLocals(next - 1)
		return b.String(), true, nil
	})

	// forloop(count, body) / repeat is foreach's numeric-range sibling: the
	// local "n" runs 0..count-1.
	forloopFn := func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		parts, err := splitRaw(rawArgs, 2)
		if err != nil {
			return "", false, err
		}
		countText, err := proc.ParseChunk(level+1, "forloop", parts[0])
		if err != nil {
			return "", false, err
		}
		count, cerr := strconv.Atoi(strings.TrimSpace(countText))
		if cerr != nil || count < 0 {
			return "", false, engine.NewError(engine.KindInvalidConversion, "forloop: invalid count %q", countText)
		}
		var b strings.Builder
		next := level + 1
		for i := 0; i < count; i++ {
			proc.MacroMap.NewLocal(next, "n", strconv.Itoa(i))
			out, perr := proc.ParseChunk(next, "forloop", parts[1])
			if perr != nil {
				proc.MacroMap.ClearLowerLocals(next - 1)
				return "", false, perr
			}
			b.WriteString(out)
		}
		proc.MacroMap.ClearLowerLocals(next - 1)
		return b.String(), true, nil
	}
	mm.InsertDeterred("forloop", forloopFn)
	mm.InsertDeterred("repeat", forloopFn)

	// include(path) parses a file as a nested chunk, sandboxed per spec
	// §4.6: State.EnterInput guards the cycle, and the local namespace is
	// snapshotted/restored so the included file's own locals never leak
	// back into the includer.
	mm.InsertDeterred("include", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		path, err := proc.ParseChunk(level+1, "include", rawArgs)
		if err != nil {
			return "", false, err
		}
		path = strings.TrimSpace(path)
		if proc.State.Auth(engine.AuthFin) == engine.AuthRestricted {
			return "", false, engine.NewError(engine.KindUnallowedExec, "file input is restricted; cannot include %q", path)
		}
		unwind, ierr := proc.State.EnterInput(path)
		if ierr != nil {
			return "", false, ierr
		}
		defer unwind()

		data, rerr := proc.ReadIncludeFile(path)
		if rerr != nil {
			return "", false, rerr
		}

		snapshot := proc.MacroMap.SnapshotLocals()
		out, perr := proc.ParseChunk(level+1, "include", data)
		proc.MacroMap.RestoreLocals(snapshot)
		if perr != nil {
			return "", false, perr
		}
		return out, true, nil
	})

	// pause(on|off) toggles the global StartFrag gate (spec §4.2): while
	// paused, only a literal "pause" invocation is honored and everything
	// else is passed through untouched.
	mm.InsertDeterred("pause", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		v, err := proc.ParseChunk(level+1, "pause", rawArgs)
		if err != nil {
			return "", false, err
		}
		proc.Pause(truthy(v))
		return "", true, nil
	})

	// relay(target) and halt() manage State's relay stack (spec §4.5):
	// relay(macro:NAME) / relay(file:PATH) / relay(temp) pushes a new
	// diversion target; halt() pops it, letting subsequent emit() calls
	// fall back to whatever was underneath.
	mm.InsertDeterred("relay", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		spec, err := proc.ParseChunk(level+1, "relay", rawArgs)
		if err != nil {
			return "", false, err
		}
		spec = strings.TrimSpace(spec)
		switch {
		case strings.HasPrefix(spec, "macro:"):
			name := strings.TrimPrefix(spec, "macro:")
			if !proc.MacroMap.ContainsRuntime(name) {
				return "", false, engine.NewError(engine.KindInvalidArgument, "relay target macro %q does not exist", name)
			}
			proc.State.PushRelay(engine.RelayTarget{Kind: engine.RelayMacro, MacroName: name})
		case strings.HasPrefix(spec, "file:"):
			path := strings.TrimPrefix(spec, "file:")
			sink, serr := engine.NewFileSink(path)
			if serr != nil {
				return "", false, serr
			}
			proc.State.PushRelay(engine.RelayTarget{Kind: engine.RelayFile, FileSink: sink})
		case spec == "temp":
			proc.State.PushRelay(engine.RelayTarget{Kind: engine.RelayTemp})
		default:
			return "", false, engine.NewError(engine.KindInvalidArgument, "relay: unrecognized target %q", spec)
		}
		return "", true, nil
	})

	mm.InsertDeterred("halt", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		if top, ok := proc.State.PopRelay(); ok && top.Kind == engine.RelayFile && top.FileSink != nil {
			_ = top.FileSink.Close()
		}
		return "", true, nil
	})

	// isolate(body) parses body inside its own local-namespace sandbox,
	// exactly like include's snapshot/restore but for inline text instead
	// of a file.
	mm.InsertDeterred("isolate", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		snapshot := proc.MacroMap.SnapshotLocals()
		out, err := proc.ParseChunk(level+1, "isolate", rawArgs)
		proc.MacroMap.RestoreLocals(snapshot)
		if err != nil {
			return "", false, err
		}
		return out, true, nil
	})

	// freeze(path) serializes the current runtime namespace via RuleCodec
	// (spec §4.1/§4.4/§6).
	mm.InsertDeterred("freeze", func(rawArgs string, level int, proc *engine.Processor) (string, bool, error) {
		path, err := proc.ParseChunk(level+1, "freeze", rawArgs)
		if err != nil {
			return "", false, err
		}
		if ferr := proc.Freeze(strings.TrimSpace(path)); ferr != nil {
			return "", false, ferr
		}
		return "", true, nil
	})

	// import(path) melts a frozen bundle back into the runtime namespace.
	mm.InsertFunction("import", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		if err := proc.Import(strings.TrimSpace(args)); err != nil {
			return "", false, err
		}
		return "", true, nil
	})
}
