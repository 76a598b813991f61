package builtins

import (
	"strconv"
	"strings"

	"github.com/bramblecask/macroproc/internal/engine"
)

// splitArgs divides an already-expanded function-macro payload into at
// least n comma-separated pieces (more when the payload has more top-level
// commas), stripping literal-quote markers from each
// (function macros never see raw unparsed text — the Evaluator has already
// recursively parsed their payload, spec §4.5 step 3).
func splitArgs(payload string, n int) ([]string, error) {
	parts, err := engine.NewArgSplitter().Split(payload, n, false, true)
	if err != nil {
		return nil, engine.NewError(engine.KindInvalidArgument, "%v", err)
	}
	return parts, nil
}

func registerStrings(mm *engine.MacroMap) {
	mm.InsertFunction("trim", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		return strings.TrimSpace(args), true, nil
	})

	mm.InsertFunction("upper", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		return strings.ToUpper(args), true, nil
	})

	mm.InsertFunction("lower", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		return strings.ToLower(args), true, nil
	})

	mm.InsertFunction("len", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		return strconv.Itoa(len([]rune(args))), true, nil
	})

	mm.InsertFunction("substr", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		parts, err := splitArgs(args, 3)
		if err != nil {
			return "", false, err
		}
		r := []rune(parts[0])
		start, err1 := strconv.Atoi(strings.TrimSpace(parts[1]))
		length, err2 := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err1 != nil || err2 != nil {
			return "", false, engine.NewError(engine.KindInvalidConversion, "substr: start/length must be integers")
		}
		if start < 0 {
			start = 0
		}
		if start > len(r) {
			start = len(r)
		}
		end := start + length
		if length < 0 || end > len(r) {
			end = len(r)
		}
		return string(r[start:end]), true, nil
	})

	mm.InsertFunction("split", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		parts, err := splitArgs(args, 2)
		if err != nil {
			return "", false, err
		}
		pieces := strings.Split(parts[0], parts[1])
		return strings.Join(pieces, "\x1f"), true, nil
	})

	mm.InsertFunction("join", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		parts, err := splitArgs(args, 2)
		if err != nil {
			return "", false, err
		}
		items := strings.Split(parts[0], "\x1f")
		return strings.Join(items, parts[1]), true, nil
	})

	mm.InsertFunction("regex", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		parts, err := splitArgs(args, 2)
		if err != nil {
			return "", false, err
		}
		re, rerr := proc.State.CacheRegex(parts[1])
		if rerr != nil {
			return "", false, rerr
		}
		m, merr := re.FindStringMatch(parts[0])
		if merr != nil {
			return "", false, engine.NewError(engine.KindInvalidRegex, "regex match failed: %v", merr)
		}
		if m == nil {
			return "", true, nil
		}
		return m.String(), true, nil
	})

	mm.InsertFunction("regsub", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		parts, err := splitArgs(args, 3)
		if err != nil {
			return "", false, err
		}
		re, rerr := proc.State.CacheRegex(parts[1])
		if rerr != nil {
			return "", false, rerr
		}
		out, serr := re.Replace(parts[0], parts[2], -1, -1)
		if serr != nil {
			return "", false, engine.NewError(engine.KindInvalidRegex, "regsub failed: %v", serr)
		}
		return out, true, nil
	})
}
