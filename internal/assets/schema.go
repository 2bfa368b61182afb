package assets

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const blockSchemaURL = "block.schema.json"

// Structure only. Face names and completeness are checked by the block catalog.
const blockSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["faces"],
  "properties": {
    "faces": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {"type": "string", "minLength": 1}
    }
  }
}`

func compileBlockSchema() (*jsonschema.Schema, error) {
	s, err := jsonschema.CompileString(blockSchemaURL, blockSchema)
	if err != nil {
		return nil, fmt.Errorf("compile block schema: %w", err)
	}
	return s, nil
}
