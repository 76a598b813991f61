package engine

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Config configures a Processor, grounded on the teacher's Config
// (src/types.go) extended with the macro-processor knobs of spec §3.
type Config struct {
	Debug            bool
	ShowErrorContext bool
	ContextLines     int

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	MacroChar   rune
	CommentChar rune
	CommentType CommentType

	Hygiene     Hygiene
	Behaviour   Behaviour
	ProcessType ProcessType

	Newline string

	AuthEnv  AuthState
	AuthCmd  AuthState
	AuthFin  AuthState
	AuthFout AuthState
}

// DefaultConfig mirrors the teacher's DefaultConfig() function for shape,
// with defaults taken from spec §3/§6 (macro char '$', comment char '%',
// Lenient behaviour, "\n" newline, all capabilities Open).
func DefaultConfig() *Config {
	return &Config{
		Debug:            false,
		ShowErrorContext: true,
		ContextLines:     2,
		Stdin:            os.Stdin,
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		MacroChar:        '$',
		CommentChar:      '%',
		CommentType:      CommentNone,
		Hygiene:          HygieneNone,
		Behaviour:        BehaviourLenient,
		ProcessType:      ProcessExpand,
		Newline:          "\n",
		AuthEnv:          AuthOpen,
		AuthCmd:          AuthOpen,
		AuthFin:          AuthOpen,
		AuthFout:         AuthOpen,
	}
}

// tomlConfig is the on-disk shape for LoadConfigFile: a .macroproc.toml
// beside the documents being processed, so the character-configuration
// constraints of spec §6 are validated as tagged fields instead of CLI
// flags (that front end is out of scope per spec §1, but a config file is
// the ambient-stack surface a shipped module needs — SPEC_FULL.md §2.3).
type tomlConfig struct {
	MacroChar   string `toml:"macro_char"`
	CommentChar string `toml:"comment_char"`
	CommentType string `toml:"comment_type"`
	Hygiene     string `toml:"hygiene"`
	Behaviour   string `toml:"behaviour"`
	Newline     string `toml:"newline"`
	ContextLines int   `toml:"context_lines"`
}

// LoadConfigFile reads a TOML configuration file and applies it on top of
// DefaultConfig(), validating the macro/comment character constraints
// before returning.
func LoadConfigFile(path string) (*Config, error) {
	var tc tomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, newError(KindIO, nil, "cannot read config file %q: %v", path, err)
	}

	cfg := DefaultConfig()
	if tc.MacroChar != "" {
		cfg.MacroChar = []rune(tc.MacroChar)[0]
	}
	if tc.CommentChar != "" {
		cfg.CommentChar = []rune(tc.CommentChar)[0]
	}
	if tc.CommentType != "" {
		switch tc.CommentType {
		case "none":
			cfg.CommentType = CommentNone
		case "start":
			cfg.CommentType = CommentStart
		case "any":
			cfg.CommentType = CommentAny
		default:
			return nil, newError(KindInvalidArgument, nil, "invalid comment_type %q", tc.CommentType)
		}
	}
	if tc.Hygiene != "" {
		switch tc.Hygiene {
		case "none":
			cfg.Hygiene = HygieneNone
		case "macro":
			cfg.Hygiene = HygieneMacro
		case "input":
			cfg.Hygiene = HygieneInput
		case "aseptic":
			cfg.Hygiene = HygieneAseptic
		default:
			return nil, newError(KindInvalidArgument, nil, "invalid hygiene %q", tc.Hygiene)
		}
	}
	if tc.Behaviour != "" {
		switch tc.Behaviour {
		case "strict":
			cfg.Behaviour = BehaviourStrict
		case "lenient":
			cfg.Behaviour = BehaviourLenient
		case "purge":
			cfg.Behaviour = BehaviourPurge
		case "assert":
			cfg.Behaviour = BehaviourAssert
		case "interrupt":
			cfg.Behaviour = BehaviourInterrupt
		default:
			return nil, newError(KindInvalidArgument, nil, "invalid behaviour %q", tc.Behaviour)
		}
	}
	if tc.Newline != "" {
		cfg.Newline = tc.Newline
	}
	if tc.ContextLines > 0 {
		cfg.ContextLines = tc.ContextLines
	}

	st := &State{MacroChar: cfg.MacroChar, CommentChar: cfg.CommentChar}
	if err := st.ValidateCharacters(); err != nil {
		return nil, err
	}
	return cfg, nil
}
