package engine

import "strings"

// Evaluator resolves one completed Fragment against the four namespaces in
// the fixed order of spec §4.4/§4.5: local -> runtime -> deterred ->
// function. Grounded on r4d's processor.rs macro-invocation dispatch
// (`evaluate`/`invoke_rule`) and the teacher's MacroSystem.executeStoredMacro
// for the Go shape of "bind params as locals, re-parse body, clear locals
// on return."
type Evaluator struct {
	proc *Processor
}

func newEvaluator(proc *Processor) *Evaluator {
	return &Evaluator{proc: proc}
}

// Evaluate dispatches Fragment f as invoked at level, with the given
// caller name (the enclosing macro, or the document's MAIN caller). It
// returns the expansion text and true on success, ("", false, nil) for a
// deliberate no-op (Dry mode, or a capability that reports no result), or
// an error.
func (e *Evaluator) Evaluate(level int, caller string, f *Fragment, pos *Position) (string, bool, error) {
	proc := e.proc
	next := level + 1

	if f.Name == "" {
		return "", false, newError(KindInvalidMacroName, pos, "macro invocation has an empty name")
	}

	rawArgs := f.Args
	if f.TrimInput {
		rawArgs = trimEachLine(rawArgs, proc.State.Newline)
	}

	deterred := proc.MacroMap.IsDeterred(f.Name)

	var payload string
	if !deterred && proc.State.ProcessType != ProcessDry {
		sub := newParser(proc, next, f.Name, proc.currentFilename, false)
		out, err := sub.Run(rawArgs)
		if err != nil {
			return "", false, err
		}
		payload = out
	} else {
		payload = rawArgs
	}

	// 1. Local namespace.
	if body, ok := proc.MacroMap.LookupLocal(next, f.Name); ok {
		return e.postProcess(f, body), true, nil
	}

	// 2. Runtime namespace.
	if rule, ok := proc.MacroMap.LookupRuntime(f.Name); ok {
		if caller == f.Name {
			proc.Logger.WarnPosition("self-recursive macro call detected for "+f.Name, pos, nil)
		}
		if top, ok := proc.State.TopRelay(); ok && top.Kind == RelayMacro && top.MacroName == f.Name {
			return "", false, newError(KindUnallowedExec, pos, "macro %q cannot relay into itself", f.Name)
		}

		wanted := len(rule.Params)
		parts, err := NewArgSplitter().Split(payload, wanted, f.Greedy, false)
		if err != nil {
			if ie, insufficient := err.(*ErrInsufficientArgs); insufficient {
				if proc.State.ProcessType == ProcessDry {
					proc.Logger.WarnPosition("insufficient arguments for "+f.Name, pos, nil)
					return "", false, nil
				}
				return "", false, InsufficientArgsError(pos, wanted, ie.Got)
			}
			return "", false, newError(KindInvalidArgument, pos, "%v", err)
		}

		for i, param := range rule.Params {
			proc.MacroMap.NewLocal(next, param, parts[i])
		}

		var body string
		if rule.IsStatic {
			body = rule.Body
		} else {
			sub := newParser(proc, next, f.Name, proc.currentFilename, false)
			out, rerr := sub.Run(rule.Body)
			if rerr != nil {
				proc.MacroMap.ClearLowerLocals(next - 1)
				return "", false, rerr
			}
			body = out
		}
		proc.MacroMap.ClearLowerLocals(next - 1)
		return e.postProcess(f, body), true, nil
	}

	// 3. Deterred namespace: raw payload, capability re-parses itself.
	if cap, ok := proc.MacroMap.LookupDeterred(f.Name); ok {
		result, ok2, err := cap(rawArgs, level, proc)
		if err != nil {
			return "", false, err
		}
		if !ok2 {
			return "", false, nil
		}
		return e.postProcess(f, result), true, nil
	}

	// 4. Function namespace: already-expanded payload.
	if cap, ok := proc.MacroMap.LookupFunction(f.Name); ok {
		result, ok2, err := cap(payload, level, proc)
		if err != nil {
			return "", false, err
		}
		if !ok2 {
			return "", false, nil
		}
		return e.postProcess(f, result), true, nil
	}

	// 5. Unresolved.
	if proc.State.ProcessType == ProcessDry {
		proc.Logger.WarnPosition("no such macro "+f.Name, pos, nil)
		return "", false, nil
	}
	return "", false, NoSuchMacro(f.Name, proc.MacroMap.SimilarTo(f.Name), pos)
}

// postProcess applies the attribute post-processing of spec §4.5, in the
// order the spec mandates: trim_output, then yield_literal, then pipe (see
// DESIGN.md Open Question 2).
func (e *Evaluator) postProcess(f *Fragment, content string) string {
	if f.TrimOutput {
		content = strings.TrimSpace(content)
		if content == "" {
			e.proc.State.ConsumeNewline = true
		}
	}
	if f.YieldLiteral {
		content = "\\*" + content + "*\\"
	}
	if f.Pipe {
		e.proc.State.PipeMap["-"] = content
		e.proc.State.ConsumeNewline = true
		return ""
	}
	return content
}

// trimEachLine trims every line of s and rejoins with newline, per
// Fragment.TrimInput (spec §4.5 step 2).
func trimEachLine(s, newline string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(strings.TrimRight(l, "\r"))
	}
	return strings.Join(lines, newline)
}
