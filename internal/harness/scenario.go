package harness

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/primdiff/internal/diff"
	"github.com/roach88/primdiff/internal/primitive"
)

// Scenario is a sequence of producer frames with the deltas each one must
// produce on a fresh consumer session.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is an optional fixed session id.
	// If empty, defaults to "test-session-default" for golden file comparison.
	Session string `yaml:"session,omitempty"`

	// Frames are sent in order.
	Frames []FrameStep `yaml:"frames"`

	// Final is checked against the scene after the last frame.
	Final *FinalClause `yaml:"final,omitempty"`
}

// FrameStep is one frame as the producer would send it.
// Exactly one of Primitives or Raw describes its bytes; a step with neither
// sends an empty frame.
type FrameStep struct {
	// Reset, when set, resets the session with this reason before the frame
	// is sent, as a reconnect would.
	Reset string `yaml:"reset,omitempty"`

	// Primitives are encoded back to back in the order given.
	Primitives []PrimitiveSpec `yaml:"primitives,omitempty"`

	// Raw is the frame as hex, for malformed input.
	Raw string `yaml:"raw,omitempty"`

	// Expect is checked against the session's report for this frame.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// PrimitiveSpec is one wire message written symbolically.
type PrimitiveSpec struct {
	Type     string    `yaml:"type"`
	Material int32     `yaml:"material"`
	Payload  []float32 `yaml:"payload"`
}

// ExpectClause lists the counts a frame must produce. Unset fields are not checked.
type ExpectClause struct {
	Added   *int `yaml:"added,omitempty"`
	Removed *int `yaml:"removed,omitempty"`
	Live    *int `yaml:"live,omitempty"`

	// Error is the protocol error code the frame must be rejected with.
	// When set, Added and Removed must be zero or unset.
	Error string `yaml:"error,omitempty"`
}

// FinalClause describes the scene after the last frame.
type FinalClause struct {
	Live *int `yaml:"live,omitempty"`

	// Types maps a primitive type name to its live count.
	Types map[string]int `yaml:"types,omitempty"`
}

// LoadScenario loads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario.
//
// The document is checked twice: against the CUE schema for shape and
// ranges, then in Go against the primitive registry.
func ParseScenario(data []byte) (*Scenario, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty scenario")
		}
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}

	if err := validateScenario(&s, primitive.Default()); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks what the schema cannot: type names and payload
// lengths against reg, and that raw frames are well-formed hex.
func validateScenario(s *Scenario, reg *primitive.Registry) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Frames) == 0 {
		return fmt.Errorf("at least one frame is required")
	}

	for i, f := range s.Frames {
		if f.Raw != "" && len(f.Primitives) > 0 {
			return fmt.Errorf("frame[%d]: primitives and raw are mutually exclusive", i)
		}
		if f.Raw != "" {
			if _, err := hex.DecodeString(strings.TrimSpace(f.Raw)); err != nil {
				return fmt.Errorf("frame[%d]: raw: %w", i, err)
			}
		}
		for j, p := range f.Primitives {
			typ, ok := reg.ByName(p.Type)
			if !ok || !typ.Decodable() {
				return fmt.Errorf("frame[%d].primitives[%d]: unknown primitive type %q", i, j, p.Type)
			}
			if len(p.Payload) != typ.ElementCount {
				return fmt.Errorf("frame[%d].primitives[%d]: %s payload has %d elements, want %d",
					i, j, typ.Name, len(p.Payload), typ.ElementCount)
			}
		}
		if f.Expect != nil {
			if err := validateExpect(f.Expect); err != nil {
				return fmt.Errorf("frame[%d].expect: %w", i, err)
			}
		}
	}

	if s.Final != nil {
		for name := range s.Final.Types {
			if _, ok := reg.ByName(name); !ok {
				return fmt.Errorf("final.types: unknown primitive type %q", name)
			}
		}
	}
	return nil
}

func validateExpect(e *ExpectClause) error {
	if e.Error == "" {
		return nil
	}
	switch diff.ProtocolErrorCode(e.Error) {
	case diff.CodeUnknownType, diff.CodeTruncated, diff.CodeNoProgress:
	default:
		return fmt.Errorf("unknown error code %q", e.Error)
	}
	if (e.Added != nil && *e.Added != 0) || (e.Removed != nil && *e.Removed != 0) {
		return fmt.Errorf("a rejected frame cannot add or remove primitives")
	}
	return nil
}

// Encode returns the wire bytes of frame i.
func (s *Scenario) Encode(reg *primitive.Registry, i int) ([]byte, error) {
	f := s.Frames[i]
	if f.Raw != "" {
		return hex.DecodeString(strings.TrimSpace(f.Raw))
	}

	msgs := make([]primitive.Message, 0, len(f.Primitives))
	for j, p := range f.Primitives {
		typ, ok := reg.ByName(p.Type)
		if !ok {
			return nil, fmt.Errorf("frame[%d].primitives[%d]: unknown primitive type %q", i, j, p.Type)
		}
		msgs = append(msgs, primitive.Message{Kind: typ.ID, Material: p.Material, Payload: p.Payload})
	}
	buf, err := primitive.EncodeFrame(reg, msgs...)
	if err != nil {
		return nil, fmt.Errorf("frame[%d]: %w", i, err)
	}
	return buf, nil
}

// EncodeAll returns the wire bytes of every frame, in order. Resets are not
// represented; a capture is one connection.
func (s *Scenario) EncodeAll(reg *primitive.Registry) ([][]byte, error) {
	out := make([][]byte, len(s.Frames))
	for i := range s.Frames {
		buf, err := s.Encode(reg, i)
		if err != nil {
			return nil, err
		}
		out[i] = buf
	}
	return out, nil
}
