// Package catalog loads the static agent, skill, and knowledge catalogs and
// exposes them through an atomically swappable registry.
package catalog

// ModelParameters are the per-agent LLM invocation parameters.
type ModelParameters struct {
	Temperature float32 `json:"temperature"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
}

// AgentDefinition describes one LLM-backed agent from the catalog.
// Definitions are shared, read-only, process-wide; callers must not
// mutate the slices.
type AgentDefinition struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	SystemPrompt    string          `json:"system_prompt"`
	Capabilities    []string        `json:"capabilities"`
	Skills          []string        `json:"skills"`
	Parameters      ModelParameters `json:"parameters"`
	RoutingKeywords []string        `json:"routing_keywords"`
	Active          bool            `json:"active"`
	Category        string          `json:"category"`
	Version         string          `json:"version"`
}

// SkillDefinition describes a named skill agents may reference.
type SkillDefinition struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// Metadata carries catalog versioning information.
type Metadata struct {
	Version       string `json:"version"`
	SchemaVersion string `json:"schema_version"`
}

// Document is the on-disk catalog layout: a single JSON document with
// top-level agents, skills, and metadata.
type Document struct {
	Agents   map[string]AgentDefinition `json:"agents"`
	Skills   map[string]SkillDefinition `json:"skills"`
	Metadata Metadata                   `json:"metadata"`
}
