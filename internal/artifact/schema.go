package artifact

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed graph_output.schema.json
var graphOutputSchema string

// ValidateGraphOutput checks raw graph_output.json bytes against the bundled
// schema before the report command summarizes them, catching artifacts
// written by an incompatible pipeline version.
func ValidateGraphOutput(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(graphOutputSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate graph_output.json: %w", err)
	}
	if !result.Valid() {
		msg := "graph_output.json does not match the expected schema:"
		for _, e := range result.Errors() {
			msg += "\n  - " + e.String()
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}
