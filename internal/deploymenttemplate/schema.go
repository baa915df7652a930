package deploymenttemplate

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/devtron-labs/dtconfig/pkg/document"
)

// ValidateAgainstSchema checks doc against a chart's values schema and
// returns one message per violation. Warnings never block editing: an
// unusable schema yields a single message saying so.
func ValidateAgainstSchema(schema json.RawMessage, doc *document.Node) []string {
	if len(schema) == 0 {
		return nil
	}
	if doc == nil {
		doc = document.NewMapping()
	}
	data, err := document.ToJSON(doc)
	if err != nil {
		return []string{fmt.Sprintf("error encoding values for validation: %s", err)}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return []string{fmt.Sprintf("error validating values against chart schema: %s", err)}
	}
	if result.Valid() {
		return nil
	}
	warnings := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		warnings = append(warnings, e.String())
	}
	return warnings
}
