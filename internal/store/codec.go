package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Makepad-fr/tada/internal/model"
)

// ErrMalformed marks a persisted blob that cannot be read back as a
// collection. Load treats it as "no data".
var ErrMalformed = errors.New("malformed collection")

const schemaURL = "https://tada.local/schema/collection.json"

// collectionSchema is the shape of the persisted blob: a JSON array of items.
const collectionSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["identifier", "title", "done", "createdAt"],
    "properties": {
      "identifier": {"type": "string", "minLength": 1},
      "title": {"type": "string"},
      "done": {"type": "boolean"},
      "createdAt": {"type": "string", "format": "date-time"}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, strings.NewReader(collectionSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Encode serializes the full collection as a JSON array.
// A nil collection encodes as [] so it always reads back as a collection.
func Encode(items model.Collection) ([]byte, error) {
	if items == nil {
		items = model.Collection{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return b, nil
}

// Decode parses a persisted blob. Anything that is not an array of
// well-formed items returns an error wrapping ErrMalformed. Duplicate
// identifiers keep their first occurrence.
func Decode(data []byte) (model.Collection, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after array", ErrMalformed)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var items model.Collection
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return dedupe(items), nil
}

func dedupe(items model.Collection) model.Collection {
	seen := make(map[string]struct{}, len(items))
	out := make(model.Collection, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
