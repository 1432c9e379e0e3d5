package docs

import _ "embed"

// OpenAPI holds the raw OpenAPI spec served at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte
