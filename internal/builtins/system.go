package builtins

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/bramblecask/macroproc/internal/engine"
	"github.com/dustin/go-humanize"
)

// requireAuth returns an UnallowedExecution error if capability cap is
// restricted, and logs (but still permits) when it is merely Warn, mirroring
// r4d's three-state auth gate (spec §6) and grounded on
// Processor.PrintPermissionStatus's own tri-state reading.
func requireAuth(proc *engine.Processor, cap engine.AuthCapability, verb string) error {
	switch proc.State.Auth(cap) {
	case engine.AuthRestricted:
		return engine.NewError(engine.KindUnallowedExec, "%s is restricted by the %s capability", verb, cap)
	case engine.AuthWarn:
		proc.Logger.Warn("%s is permitted but flagged by the %s capability", verb, cap)
	}
	return nil
}

func registerSystem(mm *engine.MacroMap) {
	mm.InsertFunction("env", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		if err := requireAuth(proc, engine.AuthEnv, "env()"); err != nil {
			return "", false, err
		}
		return os.Getenv(strings.TrimSpace(args)), true, nil
	})

	mm.InsertFunction("exec", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		if err := requireAuth(proc, engine.AuthCmd, "exec()"); err != nil {
			return "", false, err
		}
		fields := strings.Fields(args)
		if len(fields) == 0 {
			return "", false, engine.NewError(engine.KindInvalidArgument, "exec: empty command")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
		out, err := cmd.Output()
		if err != nil {
			return "", false, engine.NewError(engine.KindUnsoundExec, "exec %q failed: %v", fields[0], err)
		}
		return strings.TrimRight(string(out), "\n"), true, nil
	})

	mm.InsertFunction("readto", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		if err := requireAuth(proc, engine.AuthFin, "readto()"); err != nil {
			return "", false, err
		}
		data, err := os.ReadFile(strings.TrimSpace(args))
		if err != nil {
			return "", false, engine.NewError(engine.KindIO, "readto: %v", err)
		}
		return string(data), true, nil
	})

	mm.InsertFunction("writeto", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		if err := requireAuth(proc, engine.AuthFout, "writeto()"); err != nil {
			return "", false, err
		}
		parts, err := splitArgs(args, 2)
		if err != nil {
			return "", false, err
		}
		if werr := os.WriteFile(strings.TrimSpace(parts[0]), []byte(parts[1]), 0o644); werr != nil {
			return "", false, engine.NewError(engine.KindIO, "writeto: %v", werr)
		}
		return "", true, nil
	})

	mm.InsertFunction("time", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		layout := strings.TrimSpace(args)
		if layout == "" {
			layout = time.RFC3339
		}
		return time.Now().Format(layout), true, nil
	})

	// humansize(bytes) wires github.com/dustin/go-humanize per SPEC_FULL §3.
	mm.InsertFunction("humansize", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		n, err := strconv.ParseUint(strings.TrimSpace(args), 10, 64)
		if err != nil {
			return "", false, engine.NewError(engine.KindInvalidConversion, "humansize: %v", err)
		}
		return humanize.Bytes(n), true, nil
	})
}
