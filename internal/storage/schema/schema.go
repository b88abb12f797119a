// Package schema validates save data JSON before it is imported.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ripmod/rip/pkg/core"
)

//go:embed save.schema.json
var saveSchema []byte

const saveSchemaURL = "save.schema.json"

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(saveSchemaURL, bytes.NewReader(saveSchema)); err != nil {
		return nil, err
	}
	return c.Compile(saveSchemaURL)
})

// Validate checks raw JSON against the save data schema.
func Validate(data []byte) error {
	s, err := compiled()
	if err != nil {
		return fmt.Errorf("compiling save schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing save json: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("invalid save data: %w", err)
	}
	return nil
}

// Decode validates data and decodes it into save data.
func Decode(data []byte) (core.SaveData, error) {
	var out core.SaveData
	if err := Validate(data); err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding save json: %w", err)
	}
	return out, nil
}
