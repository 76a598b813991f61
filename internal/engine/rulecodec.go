package engine

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// rulecodecVersion is bumped whenever the gob payload shape changes.
const rulecodecVersion = 1

// frozenHeader is a small, human-inspectable YAML preamble written ahead of
// the opaque gob payload, so `file header.yaml` style tooling can learn
// what a frozen bundle contains without decoding it (SPEC_FULL.md §3).
type frozenHeader struct {
	Version   int       `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	Sources   int       `yaml:"sources"`
}

// RuleCodec serializes/deserializes the runtime namespace as an opaque byte
// blob (spec §4.4/§6, "frozen rule bundle"). Grounded on r4d's
// RuleFile::freeze/melt (models.rs), which used bincode; this port uses
// encoding/gob for the same "opaque, versioned byte stream" contract — see
// DESIGN.md for why protobuf was considered and rejected (no toolchain
// codegen is available to this task).
type RuleCodec struct{}

// NewRuleCodec returns a stateless RuleCodec.
func NewRuleCodec() *RuleCodec { return &RuleCodec{} }

// Freeze serializes rules into an opaque blob: a 4-byte big-endian header
// length, the YAML header, then the gob-encoded rule map.
func (c *RuleCodec) Freeze(rules map[string]*RuntimeMacro) ([]byte, error) {
	header := frozenHeader{Version: rulecodecVersion, CreatedAt: mustNow(), Sources: len(rules)}
	headerBytes, err := yaml.Marshal(header)
	if err != nil {
		return nil, newError(KindBincode, nil, "failed to marshal freeze header: %v", err)
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(rules); err != nil {
		return nil, newError(KindBincode, nil, "failed to encode frozen rules: %v", err)
	}

	var out bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(headerBytes)))
	out.Write(lenBuf[:])
	out.Write(headerBytes)
	out.Write(payload.Bytes())
	return out.Bytes(), nil
}

// FreezeToFile writes Freeze's output to path, matching r4d's
// freeze_to_file contract.
func (c *RuleCodec) FreezeToFile(path string, rules map[string]*RuntimeMacro) error {
	blob, err := c.Freeze(rules)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return newError(KindIO, nil, "failed to write frozen bundle %q: %v", path, err)
	}
	return nil
}

// Melt decodes a frozen blob back into a rule map. Per spec §4.6/§7 (P8),
// melting extends the non-volatile partition: Melt marks every returned
// RuntimeMacro as non-volatile, so callers can merge them directly.
func (c *RuleCodec) Melt(blob []byte) (map[string]*RuntimeMacro, error) {
	if len(blob) < 4 {
		return nil, newError(KindBincode, nil, "frozen bundle truncated")
	}
	headerLen := binary.BigEndian.Uint32(blob[:4])
	if int(headerLen) > len(blob)-4 {
		return nil, newError(KindBincode, nil, "frozen bundle header length corrupt")
	}
	payload := blob[4+int(headerLen):]

	rules := make(map[string]*RuntimeMacro)
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&rules); err != nil {
		return nil, newError(KindBincode, nil, "failed to decode frozen bundle: %v", err)
	}
	for _, r := range rules {
		r.Volatile = false
	}
	return rules, nil
}

// MeltFile reads and decodes a frozen bundle from disk, matching r4d's
// melt_files contract.
func (c *RuleCodec) MeltFile(path string) (map[string]*RuntimeMacro, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindIO, nil, "cannot read frozen bundle %q: %v", path, err)
	}
	return c.Melt(blob)
}

// nowFunc is the clock behind the header's created_at stamp (read through
// mustNow); tests can replace it to make freeze output reproducible, and
// production callers get wall-clock time.
var nowFunc = time.Now

func mustNow() time.Time { return nowFunc() }
