package catalog

import (
	_ "embed"
	"fmt"
	"log"
	"sync/atomic"
)

//go:embed data/agents_config.json
var defaultAgentsConfig []byte

// snapshot is one immutable, fully constructed view of the catalog.
// Readers always see either the old or the new snapshot, never a mix.
type snapshot struct {
	agents   []AgentDefinition // declaration order
	byID     map[string]AgentDefinition
	skills   map[string]SkillDefinition
	metadata Metadata
}

// Registry resolves agent ids to definitions. It is immutable per load;
// Reload constructs the replacement snapshot to completion before atomically
// swapping the readable reference.
type Registry struct {
	path string // empty = embedded default catalog
	snap atomic.Pointer[snapshot]
}

// NewRegistry loads the catalog at path (or the embedded default when path
// is empty) and returns a ready registry.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the catalog from its source. On failure the previous
// snapshot stays in place and the error is returned, so a bad edit to the
// catalog file never takes the registry down.
func (r *Registry) Reload() error {
	data, err := loadFile(r.path)
	if err != nil {
		return err
	}
	agents, skills, meta, err := parseDocument(data)
	if err != nil {
		return err
	}

	next := &snapshot{
		agents:   agents,
		byID:     make(map[string]AgentDefinition, len(agents)),
		skills:   skills,
		metadata: meta,
	}
	for _, a := range agents {
		next.byID[a.ID] = a
	}

	r.snap.Store(next)
	log.Printf("[Catalog] Loaded %d agents, %d skills (version %s)", len(agents), len(skills), meta.Version)
	return nil
}

// List returns all agent definitions in declaration order.
// The returned slice is shared; callers must not mutate it.
func (r *Registry) List() []AgentDefinition {
	return r.snap.Load().agents
}

// Get resolves an agent id. ok is false when the agent is not in the catalog.
func (r *Registry) Get(id string) (AgentDefinition, bool) {
	def, ok := r.snap.Load().byID[id]
	return def, ok
}

// Has reports whether the agent id exists in the catalog.
func (r *Registry) Has(id string) bool {
	_, ok := r.snap.Load().byID[id]
	return ok
}

// ByCapability returns the ids of agents carrying the given capability tag,
// in declaration order.
func (r *Registry) ByCapability(tag string) []string {
	var ids []string
	for _, a := range r.snap.Load().agents {
		for _, c := range a.Capabilities {
			if c == tag {
				ids = append(ids, a.ID)
				break
			}
		}
	}
	return ids
}

// Keywords returns the routing keywords for an agent, or nil for unknown ids.
func (r *Registry) Keywords(id string) []string {
	if def, ok := r.Get(id); ok {
		return def.RoutingKeywords
	}
	return nil
}

// Skills returns the skill catalog of the current snapshot.
func (r *Registry) Skills() map[string]SkillDefinition {
	return r.snap.Load().skills
}

// Metadata returns the catalog metadata of the current snapshot.
func (r *Registry) Metadata() Metadata {
	return r.snap.Load().metadata
}

// Default returns the definition to use when nothing scores, preferring the
// configured id and falling back to the first declared agent.
func (r *Registry) Default(preferred string) (AgentDefinition, error) {
	if def, ok := r.Get(preferred); ok {
		return def, nil
	}
	agents := r.List()
	if len(agents) == 0 {
		return AgentDefinition{}, fmt.Errorf("catalog is empty")
	}
	return agents[0], nil
}
