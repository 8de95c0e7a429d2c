package llm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var compiled sync.Map // schema name -> *jsonschema.Schema

// Validate checks raw against the schema. A nil schema accepts anything.
// Failures are returned as KindInvalidResponse errors.
func (s *Schema) Validate(raw json.RawMessage) error {
	if s == nil {
		return nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return InvalidResponse(raw, fmt.Errorf("not JSON: %w", err))
	}
	sch, err := s.compile()
	if err != nil {
		return InvalidResponse(raw, err)
	}
	if err := sch.Validate(doc); err != nil {
		return InvalidResponse(raw, err)
	}
	return nil
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	if v, ok := compiled.Load(s.Name); ok {
		return v.(*jsonschema.Schema), nil
	}
	// Round-trip through JSON so Go numeric and slice types become the
	// float64 and []any values the compiler expects.
	b, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", s.Name, err)
	}
	var def any
	if err := json.Unmarshal(b, &def); err != nil {
		return nil, fmt.Errorf("schema %s: %w", s.Name, err)
	}
	url := "mem://" + s.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("schema %s: %w", s.Name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", s.Name, err)
	}
	v, _ := compiled.LoadOrStore(s.Name, sch)
	return v.(*jsonschema.Schema), nil
}
