package publish

import (
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// PayloadSchema is the JSON schema of a JSON-encoded Payload.
//
//go:embed payload.schema.json
var PayloadSchema string

const payloadSchemaURL = "payload.schema.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// CompiledSchema returns PayloadSchema compiled once for the process.
func CompiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = jsonschema.CompileString(payloadSchemaURL, PayloadSchema)
	})
	return compiledSchema, compileErr
}

// ValidateJSON checks a JSON datagram against PayloadSchema.
func ValidateJSON(data []byte) error {
	schema, err := CompiledSchema()
	if err != nil {
		return errors.Wrap(err, "invalid payload schema")
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "malformed json payload")
	}
	if err := schema.Validate(doc); err != nil {
		return errors.Wrap(err, "payload does not match schema")
	}
	return nil
}
