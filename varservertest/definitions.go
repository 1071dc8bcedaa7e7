// Copyright 2026 The Varbridge Authors
// SPDX-License-Identifier: Apache-2.0

package varservertest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/varbridge-foundation/varbridge/lib/value"
)

// Definition is one variable in a definitions file.
type Definition struct {
	Name  string     `json:"name"`
	Kind  value.Kind `json:"kind"`
	Value string     `json:"value"`
}

// LoadDefinitions reads a JSONC variable-definitions file. Comments
// and trailing commas are permitted so definition files can be
// annotated like configuration.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}

	var definitions []Definition
	if err := json.Unmarshal(jsonc.ToJSON(data), &definitions); err != nil {
		return nil, fmt.Errorf("parse definitions %s: %w", path, err)
	}

	for i, definition := range definitions {
		if definition.Name == "" {
			return nil, fmt.Errorf("definition %d: missing name", i)
		}
		if !definition.Kind.Valid() {
			return nil, fmt.Errorf("definition %q: invalid kind %q", definition.Name, definition.Kind)
		}
	}
	return definitions, nil
}

// DefineAll adds every definition to the server's table.
func (s *Server) DefineAll(definitions []Definition) error {
	for _, definition := range definitions {
		if _, err := s.Define(definition.Name, definition.Kind, definition.Value); err != nil {
			return err
		}
	}
	return nil
}
