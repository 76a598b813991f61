// Command macroproc is the CLI front end for the macro preprocessor engine:
// a thin cobra wrapper that builds an engine.Processor, registers the
// built-in catalogue, and drives it over a file or stdin. Grounded on
// theRebelliousNerd-codenerd's cmd/nerd/main.go rootCmd/init()/Execute()
// shape, scaled down to this module's single-purpose CLI.
package main

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/bramblecask/macroproc/internal/builtins"
	"github.com/bramblecask/macroproc/internal/engine"
)

var (
	configPath  string
	macroChar   string
	commentChar string
	hygiene     string
	behaviour   string
	dryRun      bool
	freezeOut   string
	importIn    string
	watch       bool
	debug       bool
	showPerms   bool
)

var rootCmd = &cobra.Command{
	Use:   "macroproc [file]",
	Short: "Expand macro invocations in a text document",
	Long: `macroproc reads a document (a file argument, or stdin when none is
given), expands every macro invocation it contains, and writes the result to
stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMacroproc,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a .macroproc.toml configuration file")
	rootCmd.Flags().StringVar(&macroChar, "macro-char", "", "override the macro invocation character")
	rootCmd.Flags().StringVar(&commentChar, "comment-char", "", "override the comment character")
	rootCmd.Flags().StringVar(&hygiene, "hygiene", "", "none|macro|input|aseptic")
	rootCmd.Flags().StringVar(&behaviour, "behaviour", "", "strict|lenient|purge|assert|interrupt")
	rootCmd.Flags().BoolVar(&dryRun, "dry", false, "dry run: leave macro arguments unexpanded and only warn on unknown macros or missing arguments; built-in macros still run")
	rootCmd.Flags().StringVar(&freezeOut, "freeze", "", "serialize the runtime macro namespace to path after processing")
	rootCmd.Flags().StringVar(&importIn, "import", "", "melt a frozen bundle into the runtime namespace before processing")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "re-run processing whenever the input file changes")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&showPerms, "show-permissions", false, "print the ENV/CMD/FIN/FOUT capability status to stderr before processing")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildConfig() (*engine.Config, error) {
	var cfg *engine.Config
	var err error
	if configPath != "" {
		cfg, err = engine.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = engine.DefaultConfig()
	}

	if macroChar != "" {
		cfg.MacroChar = []rune(macroChar)[0]
	}
	if commentChar != "" {
		cfg.CommentChar = []rune(commentChar)[0]
	}
	switch hygiene {
	case "":
	case "none":
		cfg.Hygiene = engine.HygieneNone
	case "macro":
		cfg.Hygiene = engine.HygieneMacro
	case "input":
		cfg.Hygiene = engine.HygieneInput
	case "aseptic":
		cfg.Hygiene = engine.HygieneAseptic
	default:
		return nil, fmt.Errorf("unknown --hygiene %q", hygiene)
	}
	switch behaviour {
	case "":
	case "strict":
		cfg.Behaviour = engine.BehaviourStrict
	case "lenient":
		cfg.Behaviour = engine.BehaviourLenient
	case "purge":
		cfg.Behaviour = engine.BehaviourPurge
	case "assert":
		cfg.Behaviour = engine.BehaviourAssert
	case "interrupt":
		cfg.Behaviour = engine.BehaviourInterrupt
	default:
		return nil, fmt.Errorf("unknown --behaviour %q", behaviour)
	}
	if dryRun {
		cfg.ProcessType = engine.ProcessDry
	}
	cfg.Debug = cfg.Debug || debug
	return cfg, nil
}

func runOnce(path string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	proc := engine.NewProcessor(cfg)
	builtins.Register(proc.MacroMap)

	if showPerms {
		fmt.Fprintln(os.Stderr, proc.PrintPermissionStatus())
	}

	if importIn != "" {
		if err := proc.Import(importIn); err != nil {
			return err
		}
	}

	if path == "" {
		err = proc.ProcessReader("-", os.Stdin)
	} else {
		err = proc.ProcessFile(path)
	}

	proc.Logger.PrintResult()

	if freezeOut != "" {
		if ferr := proc.Freeze(freezeOut); ferr != nil {
			return ferr
		}
	}

	if err != nil {
		if e, ok := err.(*engine.Error); ok && e.IsSignal() {
			return fmt.Errorf("%s", e.Message)
		}
		return err
	}
	if proc.AssertFailures() > 0 {
		return fmt.Errorf("%d assertion(s) failed", proc.AssertFailures())
	}
	return nil
}

func runMacroproc(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	}

	if !watch || path == "" {
		return runOnce(path)
	}

	if err := runOnce(path); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot start watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("cannot watch %q: %w", path, err)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := runOnce(path); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch error:", werr)
		}
	}
}
