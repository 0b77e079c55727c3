package testutil

// FixedIDGenerator returns the same session id every time.
//
// This enables deterministic test execution and golden snapshot comparison:
// the same scenario with the same FixedIDGenerator produces byte-identical
// frame logs.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a new fixed id generator.
//
// The id is typically set in the scenario YAML:
//
//	session: "test-session-0001"
//
// If id is empty, Generate() returns "test-session-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
//
// Implements session.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
