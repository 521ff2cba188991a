package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Schema names, one per message type that crosses the wire.
const (
	SchemaHello  = "hello.schema.json"
	SchemaCmd    = "cmd.schema.json"
	SchemaState  = "state.schema.json"
	SchemaResult = "result.schema.json"
)

const schemaBase = "mem://crewline/"

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	names := []string{SchemaHello, SchemaCmd, SchemaState, SchemaResult}
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = err
			return
		}
		if err := c.AddResource(schemaBase+name, bytes.NewReader(raw)); err != nil {
			schemasErr = fmt.Errorf("%s: %w", name, err)
			return
		}
	}
	schemas = make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		s, err := c.Compile(schemaBase + name)
		if err != nil {
			schemasErr = fmt.Errorf("%s: %w", name, err)
			return
		}
		schemas[name] = s
	}
}

// ValidateRaw checks a raw JSON message against the named schema.
func ValidateRaw(schema string, raw []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return validate(schema, v)
}

// Validate checks an outgoing message by round-tripping it through JSON.
func Validate(schema string, msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return ValidateRaw(schema, raw)
}

func validate(schema string, v any) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	s, ok := schemas[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}
	return s.Validate(v)
}
