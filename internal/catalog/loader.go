package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// parseDocument decodes and validates a catalog document. Agent declaration
// order is preserved from the JSON text so that scoring ties resolve
// deterministically.
func parseDocument(data []byte) ([]AgentDefinition, map[string]SkillDefinition, Metadata, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, Metadata{}, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Agents) == 0 {
		return nil, nil, Metadata{}, fmt.Errorf("catalog defines no agents")
	}

	order, err := agentDeclarationOrder(data)
	if err != nil {
		return nil, nil, Metadata{}, err
	}

	agents := make([]AgentDefinition, 0, len(doc.Agents))
	for _, id := range order {
		def := doc.Agents[id]
		if def.ID == "" {
			def.ID = id
		}
		if def.ID != id {
			return nil, nil, Metadata{}, fmt.Errorf("agent key %q does not match id %q", id, def.ID)
		}
		if def.SystemPrompt == "" {
			return nil, nil, Metadata{}, fmt.Errorf("agent %q is missing system_prompt", id)
		}
		for _, skill := range def.Skills {
			if _, ok := doc.Skills[skill]; !ok {
				log.Printf("[Catalog] WARNING: agent %q references unknown skill %q", id, skill)
			}
		}
		agents = append(agents, def)
	}

	return agents, doc.Skills, doc.Metadata, nil
}

// agentDeclarationOrder walks the raw JSON tokens and returns the keys of the
// top-level "agents" object in the order they appear in the document.
// encoding/json maps do not preserve key order, and the analyzer breaks
// scoring ties by declaration order, so the order must come from the text.
func agentDeclarationOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	// Enter the top-level object.
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("scan catalog: %w", err)
		}
		key, _ := tok.(string)
		if key != "agents" {
			// Skip the value of this top-level field.
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("scan catalog: %w", err)
			}
			continue
		}

		// Enter the agents object and collect its keys in order.
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("scan catalog agents: %w", err)
		}
		var order []string
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("scan catalog agents: %w", err)
			}
			id, _ := tok.(string)
			order = append(order, id)
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("scan catalog agent %q: %w", id, err)
			}
		}
		return order, nil
	}
	return nil, fmt.Errorf("catalog has no agents object")
}

// loadFile reads a catalog document from disk, falling back to the embedded
// default catalog when path is empty.
func loadFile(path string) ([]byte, error) {
	if path == "" {
		return defaultAgentsConfig, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return data, nil
}
