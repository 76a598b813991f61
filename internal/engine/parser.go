package engine

import (
	"strings"
)

// Parser drives the Scanner over one input — either the top-level document
// (isMain == true, writing straight to the Processor's sink/relay) or a
// recursive sub-parse of argument text or a runtime macro body (isMain ==
// false, capturing output into an internal buffer that becomes the
// expansion result handed back to the caller). Grounded on r4d's
// processor.rs `lex_branch_*`/`parse_line` family and the teacher's
// parser.go for the buffered, line-driven structure.
//
// A fresh Parser (and its Scanner/Fragment) is created for every parse,
// including every recursive one, per spec §9 Design Notes: "Keep the
// Fragment and Scanner as call-local values."
type Parser struct {
	proc   *Processor
	level  int
	caller string
	isMain bool

	filename string
	scanner  *Scanner
	frag     Fragment

	buf strings.Builder

	line int
	col  int
}

// newParser builds a Parser. filename is used only for Position reporting.
func newParser(proc *Processor, level int, caller, filename string, isMain bool) *Parser {
	return &Parser{
		proc:     proc,
		level:    level,
		caller:   caller,
		isMain:   isMain,
		filename: filename,
		scanner:  NewScanner(proc.State.MacroChar, proc.State.CommentChar, proc.State.CommentType),
	}
}

func (p *Parser) position() *Position {
	return &Position{Filename: p.filename, Line: p.line, Column: p.col, Length: 1}
}

// write routes text either to the Processor sink/relay (main parse) or to
// this parse's private capture buffer (recursive sub-parse).
func (p *Parser) write(s string) {
	if s == "" {
		return
	}
	if p.isMain {
		p.proc.emit(s)
	} else {
		p.buf.WriteString(s)
	}
}

// Run processes src to completion, returning the captured output (only
// meaningful for non-main parses — main parses write directly to the
// sink and return "").
func (p *Parser) Run(src string) (string, error) {
	lines := splitLinesKeepEnds(src)

	for _, line := range lines {
		if p.proc.State.Flow == FlowExit {
			break
		}

		p.line++
		p.col = 0
		p.scanner.NewLine()

		if p.proc.State.DenyNewline {
			p.proc.State.DenyNewline = false
			if line == "\n" || line == "\r\n" {
				continue
			}
		}

		if p.proc.State.Flow == FlowEscape {
			p.write(line)
			continue
		}

		if err := p.processLine(line); err != nil {
			return p.buf.String(), err
		}

		if p.isMain {
			p.proc.MacroMap.ClearAllLocals()
			if p.proc.State.Hygiene == HygieneMacro {
				p.proc.MacroMap.ClearRuntime(true)
			}
		}
	}

	if p.isMain && p.proc.State.Hygiene == HygieneInput {
		p.proc.MacroMap.ClearRuntime(true)
	}

	if !p.frag.IsEmpty() {
		if p.proc.State.Behaviour == BehaviourLenient {
			p.write(p.frag.WholeText)
		}
		p.frag.Clear()
	}

	return p.buf.String(), nil
}

func (p *Parser) processLine(line string) error {
	for _, ch := range line {
		p.col++

		ev := p.scanner.Lex(ch)

		switch ev.Kind {
		case EvIgnore:
			// The macro char that opens a candidate is kept in WholeText so
			// a failed or aborted invocation passes through as written; a
			// newline swallowed after a define is dropped.
			if p.scanner.CursorState() == CursorName {
				p.frag.WholeText += string(ch)
			}

		case EvAddToRemainder:
			p.write(string(ch))

		case EvStartFrag:
			p.frag.WholeText += string(ch)
			if p.proc.paused && p.frag.Name != "pause" {
				p.write(p.frag.WholeText)
				p.frag.Clear()
				p.scanner.Reset()
			}

		case EvEmptyName:
			p.frag.WholeText += string(ch)
			p.proc.Logger.WarnPosition("macro invocation has an empty name", p.position(), nil)

		case EvAttribute:
			p.frag.WholeText += string(ch)
			p.frag.AppendAttribute(ch)

		case EvAddToFrag:
			p.frag.WholeText += string(ch)
			switch ev.Cursor {
			case CursorName:
				p.frag.Name += string(ch)
			case CursorArg:
				p.frag.Args += string(ch)
			}

		case EvEndFrag:
			p.frag.WholeText += string(ch)
			if err := p.finishFragment(); err != nil {
				return err
			}

		case EvExitFrag:
			// Candidate was not a real invocation: spill its text back to
			// remainder, then treat the breaking character itself as
			// ordinary text (a deliberate simplification of spec §4.2's
			// "spill whole_text, then reprocess ch").
			p.write(p.frag.WholeText)
			p.frag.Clear()
			p.write(string(ch))

		case EvLiteral:
			switch ev.Cursor {
			case CursorNone:
				p.write(string(ch))
			case CursorName:
				p.frag.WholeText += string(ch)
				p.frag.Name += string(ch)
			case CursorArg:
				p.frag.WholeText += string(ch)
				p.frag.Args += string(ch)
			}

		case EvRestartName:
			p.frag.Name = ""

		case EvCommentExit:
			p.write(p.frag.WholeText)
			p.frag.Clear()
			return nil // caller moves to next line; remainder of this
			// line (the comment text) is intentionally dropped.
		}
	}
	return nil
}

// finishFragment evaluates (or defines) the just-completed Fragment and
// routes its result, then clears the Fragment for the next candidate.
func (p *Parser) finishFragment() error {
	defer p.frag.Clear()

	if p.frag.Name == "define" {
		err := p.proc.handleDefine(&p.frag, p.level, p.position())
		if err == nil {
			if p.proc.State.ConsumeNewline {
				p.proc.State.ConsumeNewline = false
				p.scanner.SetEscapeNextNewline(true)
			}
			return nil
		}
		eerr, ok := err.(*Error)
		if !ok {
			eerr = newError(KindInvalidArgument, p.position(), "%v", err)
		}
		return p.proc.handleEvalError(eerr, &p.frag, p.write)
	}

	result, ok, err := p.proc.Evaluator.Evaluate(p.level, p.caller, &p.frag, p.position())
	if err != nil {
		eerr, isEngine := err.(*Error)
		if !isEngine {
			eerr = newError(KindInvalidArgument, p.position(), "%v", err)
		}
		return p.proc.handleEvalError(eerr, &p.frag, p.write)
	}

	if p.proc.State.ConsumeNewline {
		p.proc.State.ConsumeNewline = false
		p.scanner.SetEscapeNextNewline(true)
	}

	if ok {
		p.write(result)
	}
	return nil
}

// splitLinesKeepEnds splits s into lines, each retaining its trailing
// "\n" or "\r\n" (the last line may have none), mirroring the line
// iterator r4d's process_line consumes.
func splitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
