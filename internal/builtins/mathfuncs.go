package builtins

import (
	"math"
	"strconv"
	"strings"

	"github.com/bramblecask/macroproc/internal/engine"
)

// formula is a small recursive-descent arithmetic evaluator for eval(),
// grounded on r4d's use of the `evalexpr` crate (original_source's
// Cargo.toml) generalized into a hand-rolled equivalent, since no Go
// example in the pack carries an expression-evaluation library — see
// DESIGN.md.
type formula struct {
	s   string
	pos int
}

func evalFormula(expr string) (float64, error) {
	f := &formula{s: expr}
	v, err := f.expr()
	if err != nil {
		return 0, err
	}
	f.skipSpace()
	if f.pos != len(f.s) {
		return 0, engine.NewError(engine.KindInvalidFormula, "unexpected trailing input at %d in %q", f.pos, expr)
	}
	return v, nil
}

func (f *formula) skipSpace() {
	for f.pos < len(f.s) && (f.s[f.pos] == ' ' || f.s[f.pos] == '\t') {
		f.pos++
	}
}

func (f *formula) peek() byte {
	f.skipSpace()
	if f.pos >= len(f.s) {
		return 0
	}
	return f.s[f.pos]
}

func (f *formula) expr() (float64, error) {
	v, err := f.term()
	if err != nil {
		return 0, err
	}
	for {
		switch f.peek() {
		case '+':
			f.pos++
			rhs, err := f.term()
			if err != nil {
				return 0, err
			}
			v += rhs
		case '-':
			f.pos++
			rhs, err := f.term()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

func (f *formula) term() (float64, error) {
	v, err := f.factor()
	if err != nil {
		return 0, err
	}
	for {
		switch f.peek() {
		case '*':
			f.pos++
			rhs, err := f.factor()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case '/':
			f.pos++
			rhs, err := f.factor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, engine.NewError(engine.KindInvalidFormula, "division by zero in %q", f.s)
			}
			v /= rhs
		case '%':
			f.pos++
			rhs, err := f.factor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, engine.NewError(engine.KindInvalidFormula, "modulo by zero in %q", f.s)
			}
			v = math.Mod(v, rhs)
		default:
			return v, nil
		}
	}
}

func (f *formula) factor() (float64, error) {
	switch f.peek() {
	case '-':
		f.pos++
		v, err := f.factor()
		return -v, err
	case '+':
		f.pos++
		return f.factor()
	case '(':
		f.pos++
		v, err := f.expr()
		if err != nil {
			return 0, err
		}
		if f.peek() != ')' {
			return 0, engine.NewError(engine.KindInvalidFormula, "missing closing paren in %q", f.s)
		}
		f.pos++
		return v, nil
	}
	f.skipSpace()
	start := f.pos
	for f.pos < len(f.s) && (isDigit(f.s[f.pos]) || f.s[f.pos] == '.') {
		f.pos++
	}
	if f.pos == start {
		return 0, engine.NewError(engine.KindInvalidFormula, "expected number at %d in %q", f.pos, f.s)
	}
	n, err := strconv.ParseFloat(f.s[start:f.pos], 64)
	if err != nil {
		return 0, engine.NewError(engine.KindInvalidFormula, "invalid number %q", f.s[start:f.pos])
	}
	return n, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func registerMath(mm *engine.MacroMap) {
	mm.InsertFunction("eval", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		v, err := evalFormula(strings.TrimSpace(args))
		if err != nil {
			return "", false, err
		}
		return formatNumber(v), true, nil
	})

	mm.InsertFunction("ceil", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		n, err := strconv.ParseFloat(strings.TrimSpace(args), 64)
		if err != nil {
			return "", false, engine.NewError(engine.KindInvalidConversion, "ceil: %v", err)
		}
		return formatNumber(math.Ceil(n)), true, nil
	})

	mm.InsertFunction("floor", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		n, err := strconv.ParseFloat(strings.TrimSpace(args), 64)
		if err != nil {
			return "", false, engine.NewError(engine.KindInvalidConversion, "floor: %v", err)
		}
		return formatNumber(math.Floor(n)), true, nil
	})

	mm.InsertFunction("round", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		n, err := strconv.ParseFloat(strings.TrimSpace(args), 64)
		if err != nil {
			return "", false, engine.NewError(engine.KindInvalidConversion, "round: %v", err)
		}
		return formatNumber(math.Round(n)), true, nil
	})
}
