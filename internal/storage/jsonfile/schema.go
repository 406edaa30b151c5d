package jsonfile

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "pvpguard://schemas/mode-document.json"

// documentSchema describes the persisted document:
// { "<playerID>": { "IsPvE": bool, "LastSwitchTime": ISO8601, "LastLogin": ISO8601 } }
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "propertyNames": { "pattern": "^[0-9]+$" },
  "additionalProperties": {
    "type": "object",
    "required": ["IsPvE", "LastSwitchTime", "LastLogin"],
    "properties": {
      "IsPvE": { "type": "boolean" },
      "LastSwitchTime": { "type": "string", "minLength": 19 },
      "LastLogin": { "type": "string", "minLength": 19 }
    }
  }
}`

func compileSchema() (*jsonschema.Schema, error) {
	s, err := jsonschema.CompileString(schemaURL, documentSchema)
	if err != nil {
		return nil, fmt.Errorf("compiling mode document schema: %w", err)
	}
	return s, nil
}
