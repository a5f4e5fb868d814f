// Package validators turns fetched candidate files into catalog records.
//
// Validation is split into independent stages: parsing raw text into a
// generic document, checking the document against an embedded JSON Schema,
// and deriving the normalized record. Each stage short-circuits on failure
// and reports human readable messages; a record is either fully valid or
// rejected.
package validators

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	marketplaceSchemaFile = "marketplace.schema.json"
	skillSchemaFile       = "skill-frontmatter.schema.json"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// compileSchema compiles one of the embedded schemas
func compileSchema(name string) (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
	}

	return compiler.Compile(name)
}

func mustCompileSchema(name string) *jsonschema.Schema {
	schema, err := compileSchema(name)
	if err != nil {
		panic(err)
	}
	return schema
}

// schemaErrors validates doc and returns one message per failing location
func schemaErrors(schema *jsonschema.Schema, doc any) []string {
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return []string{err.Error()}
	}

	var messages []string
	collectOutput(*validationErr.BasicOutput(), &messages)
	if len(messages) == 0 {
		messages = append(messages, validationErr.Error())
	}
	return messages
}

func collectOutput(unit jsonschema.OutputUnit, messages *[]string) {
	if unit.Error != nil {
		location := unit.InstanceLocation
		if location == "" {
			location = "/"
		}
		message := fmt.Sprintf("%s: %s", location, unit.Error.String())
		// Composite keywords repeat the messages of their children
		if !strings.Contains(message, "validation failed") {
			*messages = append(*messages, message)
		}
	}
	for _, child := range unit.Errors {
		collectOutput(child, messages)
	}
}
