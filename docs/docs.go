// Package docs registers the Warbler OpenAPI document with swag so the
// swagger UI under /api/swagger can serve it.
package docs

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

//go:embed swagger.yaml
var swaggerYAML []byte

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8375",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Warbler API",
	Description:      "Micro-blogging API: users, follows, short messages, likes and timelines.",
	InfoInstanceName: "swagger",
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

// JSON renders the embedded YAML document as JSON, the form swag serves.
func JSON() (string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(swaggerYAML, &doc); err != nil {
		return "", fmt.Errorf("parse swagger.yaml: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode swagger document: %w", err)
	}
	return string(b), nil
}

func init() {
	doc, err := JSON()
	if err != nil {
		panic(err)
	}
	SwaggerInfo.SwaggerTemplate = doc
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
