package graph

import (
	"encoding/json"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// SchemaName identifies the response schema in structured-output requests.
const SchemaName = "graph"

var schemaDefinition = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"nodes": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"id":       {Type: jsonschema.String},
					"type":     {Type: jsonschema.String, Description: "default, group or smart"},
					"parentId": {Type: jsonschema.String, Description: "id of the containing group node"},
					"data": {
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"label":           {Type: jsonschema.String},
							"body":            {Type: jsonschema.String},
							"backgroundColor": {Type: jsonschema.String},
						},
						Required: []string{"label"},
					},
					"position": {
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"x": {Type: jsonschema.Number},
							"y": {Type: jsonschema.Number},
						},
						Required: []string{"x", "y"},
					},
				},
				Required: []string{"id", "data", "position", "type"},
			},
		},
		"edges": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"id":       {Type: jsonschema.String},
					"source":   {Type: jsonschema.String},
					"target":   {Type: jsonschema.String},
					"label":    {Type: jsonschema.String},
					"directed": {Type: jsonschema.Boolean},
				},
				Required: []string{"id", "source", "target", "directed"},
			},
		},
		"explanation": {Type: jsonschema.String},
	},
	Required: []string{"nodes", "edges"},
}

// schemaJSON is computed once; a definition that cannot be marshalled is a
// programming error and fails at init.
var schemaJSON = mustMarshal(&schemaDefinition)

// Schema returns the JSON schema every generator response must follow.
// The returned slice is shared and must not be modified.
func Schema() json.RawMessage {
	return schemaJSON
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("graph: marshal schema: " + err.Error())
	}
	return data
}
