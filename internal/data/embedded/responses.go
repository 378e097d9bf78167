// Package embedded provides access to embedded response table files.
package embedded

import _ "embed"

// MockResponsesData contains the embedded mock response table YAML data.
// Rules are matched in file order; the first match wins.
//
//go:embed responses/mock_responses.yaml
var MockResponsesData []byte
