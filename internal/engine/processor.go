package engine

import (
	"io"
	"os"
	"regexp"
	"strings"
)

// identRe matches a valid macro/parameter identifier (spec §4.2/§6).
var identRe = regexp.MustCompile(`^[_A-Za-z][_A-Za-z0-9]*$`)

// Processor is the single owner of MacroMap, State, Logger and the active
// sink for one run — spec §9 Design Notes: "The Processor is a single
// owner... All recursion is through methods on this owner, so no
// shared-data concurrency arises." Grounded on the teacher's
// PawScript/Executor split (src/pawscript.go, src/executor.go) collapsed
// into one type, and r4d's Processor builder surface (process/processor.rs)
// for the public configuration API shape.
type Processor struct {
	MacroMap  *MacroMap
	State     *State
	Logger    *Logger
	Evaluator *Evaluator
	Codec     *RuleCodec

	cfg *Config

	currentFilename string
	paused          bool
	assertFailures  int
}

// NewProcessor builds a Processor from cfg (DefaultConfig() if nil).
func NewProcessor(cfg *Config) *Processor {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	st := NewState()
	st.MacroChar = cfg.MacroChar
	st.CommentChar = cfg.CommentChar
	st.CommentType = cfg.CommentType
	st.Hygiene = cfg.Hygiene
	st.Behaviour = cfg.Behaviour
	st.ProcessType = cfg.ProcessType
	st.Newline = cfg.Newline
	st.SetAuth(AuthEnv, cfg.AuthEnv)
	st.SetAuth(AuthCmd, cfg.AuthCmd)
	st.SetAuth(AuthFin, cfg.AuthFin)
	st.SetAuth(AuthFout, cfg.AuthFout)

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	st.WriteOption = *NewTerminalSink(stdout)

	p := &Processor{
		MacroMap: NewMacroMap(),
		State:    st,
		Logger:   NewLogger(stdout, stderr, st.WriteOption.IsTerminal()),
		Codec:    NewRuleCodec(),
		cfg:      cfg,
	}
	p.Logger.SetEnabled(cfg.Debug)
	p.Logger.SetContextLines(cfg.ContextLines)
	p.Evaluator = newEvaluator(p)
	return p
}

// SetSink replaces the active write_option (spec §3/§6).
func (p *Processor) SetSink(sink Sink) {
	p.State.WriteOption = sink
	p.Logger.color = sink.IsTerminal()
}

// Pause toggles the global pause flag consulted at StartFrag (spec §4.2):
// while paused, only an invocation literally named "pause" is allowed to
// begin — everything else is spilled back to the sink as plain text.
func (p *Processor) Pause(v bool) { p.paused = v }

// emit is the only place that writes to the document's real sink. It is
// relay-aware: when the relay stack is non-empty, content goes to the top
// relay target instead of State.WriteOption (spec §4.5 "Relay semantics").
func (p *Processor) emit(s string) {
	if s == "" {
		return
	}
	if target, ok := p.State.TopRelay(); ok {
		switch target.Kind {
		case RelayFile:
			_, _ = target.FileSink.Write([]byte(s))
		case RelayMacro:
			p.MacroMap.Append(target.MacroName, s)
		case RelayTemp:
			f, err := p.State.TempFile()
			if err == nil {
				_, _ = f.Write([]byte(s))
			}
		}
		return
	}
	_, _ = p.State.WriteOption.Write([]byte(s))
}

// handleEvalError applies the error-behavior mode of spec §4.7 to a failed
// evaluation, invoking writeFallback(frag.WholeText) for Lenient. It
// returns a non-nil error only when processing must unwind (Strict,
// Interrupt, Assert's non-AssertFail case, or any UnsoundExecution error,
// which always aborts regardless of mode).
func (p *Processor) handleEvalError(err *Error, frag *Fragment, writeFallback func(string)) error {
	p.Logger.LogEngineError(err, nil)

	if err.Kind == KindUnsoundExec {
		return StrictPanic(err)
	}

	switch p.State.Behaviour {
	case BehaviourStrict:
		return StrictPanic(err)
	case BehaviourInterrupt:
		return Interrupt(err)
	case BehaviourAssert:
		if err.Kind == KindAssertFail {
			p.assertFailures++
			return nil
		}
		return StrictPanic(err)
	case BehaviourLenient:
		writeFallback(frag.WholeText)
		return nil
	case BehaviourPurge:
		return nil
	default:
		return nil
	}
}

// AssertFailures reports the count aggregated in Assert behaviour mode.
func (p *Processor) AssertFailures() int { return p.assertFailures }

// handleDefine implements the reserved `define` keyword of spec §4.2/§6:
// `define(name, p1 p2 ..., body)` or `define(name=body)`.
func (p *Processor) handleDefine(frag *Fragment, level int, pos *Position) error {
	if p.State.Hygiene == HygieneAseptic {
		return newError(KindUnallowedExec, pos, "define is rejected in aseptic hygiene mode")
	}

	args := frag.Args
	if frag.TrimInput {
		args = trimEachLine(args, p.State.Newline)
	}

	eqIdx := strings.IndexByte(args, '=')
	commaIdx := strings.IndexByte(args, ',')

	var name, paramText, body string
	isStatic := false

	switch {
	case eqIdx >= 0 && (commaIdx < 0 || eqIdx < commaIdx):
		name = strings.TrimSpace(args[:eqIdx])
		body = args[eqIdx+1:]
		isStatic = true
	case commaIdx >= 0:
		name = strings.TrimSpace(args[:commaIdx])
		rest := args[commaIdx+1:]
		secondComma := strings.IndexByte(rest, ',')
		if secondComma < 0 {
			return newError(KindInvalidArgument, pos, "define requires name, params, body")
		}
		paramText = strings.TrimSpace(rest[:secondComma])
		body = rest[secondComma+1:]
	default:
		return newError(KindInvalidArgument, pos, "define requires '=' or ',' separated arguments")
	}

	if name == "" || !identRe.MatchString(name) {
		return newError(KindInvalidMacroName, pos, "macro name %q is not a valid identifier", name)
	}

	var params []string
	if paramText != "" {
		params = strings.Fields(paramText)
	}

	p.MacroMap.DefineRuntime(&RuntimeMacro{
		Name:     name,
		Params:   params,
		Body:     body,
		IsStatic: isStatic,
		Volatile: true,
	})

	// Per spec §8 scenario 1, a define that ends its line should swallow
	// the following newline.
	p.State.ConsumeNewline = true
	return nil
}

// ProcessString parses src as the top-level document (spec §2's
// Reader -> Parser(Scanner -> Fragment) -> Evaluator(...) -> Sink flow)
// and writes its expanded output to the active sink.
func (p *Processor) ProcessString(name, src string) error {
	unwind, err := p.State.EnterInput(name)
	if err != nil {
		return err
	}
	defer p.finishInput()
	defer unwind()

	parser := newParser(p, 0, "MAIN", name, true)
	_, err = parser.Run(src)
	return err
}

// ProcessReader reads r fully and processes it as ProcessString does.
func (p *Processor) ProcessReader(name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return newError(KindIO, nil, "cannot read %q: %v", name, err)
	}
	return p.ProcessString(name, string(data))
}

// ProcessFile opens and processes a file from disk, honoring the FIN
// authorization capability (spec §6).
func (p *Processor) ProcessFile(path string) error {
	if p.State.Auth(AuthFin) == AuthRestricted {
		p.Logger.Warn("file input capability is restricted; skipping %q", path)
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return newError(KindIO, nil, "cannot open %q: %v", path, err)
	}
	defer f.Close()
	return p.ProcessReader(path, f)
}

// finishInput runs the end-of-input bookkeeping mirrored from r4d's
// organize_and_clear_cache: Input-hygiene volatile clearing happens inside
// Parser.Run itself; here we only warn about state left dangling, matching
// spec §4.5's "Unterminated relay at end-of-input produces a sanity
// warning" and §4.2's flow-control end-of-run notices.
func (p *Processor) finishInput() {
	if len(p.State.InputStack) == 0 {
		if _, ok := p.State.TopRelay(); ok {
			p.Logger.Warn("unterminated relay target at end of input")
		}
		switch p.State.Flow {
		case FlowExit:
			p.Logger.Warn("process exited early via flow control")
		case FlowEscape:
			p.Logger.Warn("process is in escape mode at end of input")
		}
	}
}

// ReadIncludeFile reads path for the include() built-in, tagging failures
// with the IO error kind (spec §4.6). Authorization is checked by the
// caller via State.Auth(AuthFin) before the cycle guard is entered.
func (p *Processor) ReadIncludeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", newError(KindIO, nil, "include: cannot read %q: %v", path, err)
	}
	return string(data), nil
}

// ParseChunk recursively parses text as a nested chunk at level, with the
// given caller name, returning the expanded result — the same mechanism
// the Evaluator uses internally for eager arguments and runtime macro
// bodies (spec §4.5), exposed so deterred capabilities (ifelse, foreach,
// include, ...) can re-parse text they control themselves.
func (p *Processor) ParseChunk(level int, caller, text string) (string, error) {
	sub := newParser(p, level, caller, p.currentFilename, false)
	return sub.Run(text)
}

// Freeze serializes the current runtime namespace to path (spec §4.4/§6).
func (p *Processor) Freeze(path string) error {
	return p.Codec.FreezeToFile(path, p.MacroMap.SnapshotRuntime())
}

// Import melts a frozen bundle and merges it into the non-volatile
// partition of the runtime namespace (spec §7/P8).
func (p *Processor) Import(path string) error {
	rules, err := p.Codec.MeltFile(path)
	if err != nil {
		return err
	}
	p.MacroMap.MergeRuntime(rules)
	return nil
}

// PrintPermissionStatus reports the tri-state of each authorization
// capability, grounded on r4d's Processor::print_permission.
func (p *Processor) PrintPermissionStatus() string {
	var b strings.Builder
	for _, cap := range []AuthCapability{AuthEnv, AuthCmd, AuthFin, AuthFout} {
		state := "open"
		switch p.State.Auth(cap) {
		case AuthWarn:
			state = "warn"
		case AuthRestricted:
			state = "restricted"
		}
		b.WriteString(string(cap))
		b.WriteString("=")
		b.WriteString(state)
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String())
}
