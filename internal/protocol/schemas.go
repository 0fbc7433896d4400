package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names under schemas/.
const (
	SchemaHello = "hello.schema.json"
	SchemaEvent = "event.schema.json"
	SchemaFrame = "frame.schema.json"
)

// Validator checks raw messages against the embedded JSON Schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

var (
	defaultValidatorOnce sync.Once
	defaultValidator     *Validator
	defaultValidatorErr  error
)

// DefaultValidator compiles the embedded schemas once per process.
func DefaultValidator() (*Validator, error) {
	defaultValidatorOnce.Do(func() {
		defaultValidator, defaultValidatorErr = NewValidator()
	})
	return defaultValidator, defaultValidatorErr
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	names := []string{SchemaHello, SchemaEvent, SchemaFrame}
	for _, name := range names {
		b, err := schemaFS.ReadFile(path.Join("schemas", name))
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
	}
	v := &Validator{schemas: map[string]*jsonschema.Schema{}}
	for _, name := range names {
		s, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// Validate decodes raw JSON and validates it against the named schema.
func (v *Validator) Validate(schema string, raw []byte) error {
	s := v.schemas[schema]
	if s == nil {
		return fmt.Errorf("unknown schema %q", schema)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}

// SchemaFor maps an inbound message type to its schema; ok is false for
// types that are not accepted from clients.
func SchemaFor(msgType string) (string, bool) {
	switch msgType {
	case TypeHello:
		return SchemaHello, true
	case TypeEvent:
		return SchemaEvent, true
	default:
		return "", false
	}
}
