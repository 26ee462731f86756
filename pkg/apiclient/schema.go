package apiclient

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchemaJSON is the shape every record returned by the API must have.
const recordSchemaJSON = `{
  "type": "object",
  "required": ["_id"],
  "properties": {
    "_id": {"type": "string", "minLength": 1}
  }
}`

var recordSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", strings.NewReader(recordSchemaJSON)); err != nil {
		return nil, fmt.Errorf("apiclient: load record schema: %w", err)
	}
	schema, err := compiler.Compile("record.json")
	if err != nil {
		return nil, fmt.Errorf("apiclient: compile record schema: %w", err)
	}
	return schema, nil
})

func validateRecord(v any) error {
	schema, err := recordSchema()
	if err != nil {
		return err
	}
	return schema.Validate(v)
}
