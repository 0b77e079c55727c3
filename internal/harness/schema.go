package harness

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

// A cue.Context is not safe for concurrent use.
type schema struct {
	mu       sync.Mutex
	ctx      *cue.Context
	scenario cue.Value
}

var loadSchema = sync.OnceValues(func() (*schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile scenario schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Scenario"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Scenario: %w", err)
	}
	return &schema{ctx: ctx, scenario: def}, nil
})

// validateSchema unifies a decoded YAML document with #Scenario.
// The definition is closed, so unknown fields fail here as well.
func validateSchema(doc any) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("empty scenario")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	val := s.ctx.Encode(doc)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	if err := s.scenario.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("scenario does not match schema: %w", err)
	}
	return nil
}
