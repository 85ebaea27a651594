// Package schema validates JSON documents against a JSON Schema.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks decoded JSON values against one compiled schema.
type Validator struct {
	name   string
	schema *jsonschema.Schema
}

// Error is a validation failure reduced to its most specific cause.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Compile parses and compiles a schema document. name identifies it in
// error messages.
func Compile(name string, data []byte) (*Validator, error) {
	url := "mem:///" + filepath.ToSlash(name)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("loading schema %s: %w", name, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	return &Validator{name: name, schema: s}, nil
}

// CompileFile reads and compiles the schema at path.
func CompileFile(path string) (*Validator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return Compile(filepath.Base(path), data)
}

// Name returns the schema's identifier.
func (v *Validator) Name() string {
	return v.name
}

// Validate checks doc, which must be made of JSON-decoded values
// (map[string]any, []any, string, bool, nil, float64 or json.Number).
func (v *Validator) Validate(doc any) error {
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	leaf := deepest(ve)
	path := leaf.InstanceLocation
	if path == "" {
		path = "/"
	}
	return &Error{Path: path, Message: leaf.Message}
}

// deepest follows the first cause chain down to the most specific failure.
func deepest(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// Decode reads one JSON document keeping numbers as json.Number.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeFile reads the JSON document at path.
func DecodeFile(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	v, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}

// Normalize round-trips v through encoding/json so that arbitrary Go values
// can be validated.
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}
