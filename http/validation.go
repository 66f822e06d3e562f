package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema validates JSON request bodies against a JSON Schema document.
// Compile it once with NewSchema and share it across requests.
type Schema struct {
	compiled *gojsonschema.Schema
}

// NewSchema compiles a JSON Schema document.
func NewSchema(document []byte) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// Validate checks body against the schema. The returned error joins every
// validation failure into one message suitable for an error response.
func (s *Schema) Validate(body []byte) error {
	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validate request: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}
