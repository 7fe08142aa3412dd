// Package analyzer turns a user prompt into a structured execution plan:
// extracted entities, detected intents, scored agent selection, and the
// tool and knowledge lookups worth running first.
package analyzer

import (
	"fmt"
	"log"
	"strings"

	"github.com/sezatoare/sezatoare/internal/catalog"
)

// ResourceKind tags what a query component resolves to.
type ResourceKind string

const (
	ResourceAgent     ResourceKind = "AGENT"
	ResourceTool      ResourceKind = "TOOL"
	ResourceKnowledge ResourceKind = "KNOWLEDGE"
)

// Strategy describes how the planner should order the plan's components.
type Strategy string

const (
	StrategySequential   Strategy = "sequential"
	StrategyHierarchical Strategy = "hierarchical"
	StrategyParallel     Strategy = "parallel"
	StrategyMultiAgent   Strategy = "multi_agent_sequential"
)

// Fusion names the directive telling the primary agent how to blend tool
// and prior-agent material into its answer.
type Fusion string

const (
	FusionPersona   Fusion = "persona_integrated_storytelling"
	FusionHumor     Fusion = "humor_integration"
	FusionFactual   Fusion = "factual_integration"
	FusionNarrative Fusion = "narrative_integration"
)

// QueryComponent is one resolved piece of the prompt: which resource it
// needs, at what priority, and what part of the prompt motivated it.
type QueryComponent struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Intent    string       `json:"intent"`
	Entities  Entities     `json:"entities"`
	Kind      ResourceKind `json:"kind"`
	Resource  string       `json:"resource"`
	Priority  int          `json:"priority"`
	DependsOn []string     `json:"depends_on,omitempty"`
}

// ExecutionPlan is the analyzer's full output for one turn. It is owned by
// the orchestrator for the duration of the turn and discarded afterwards.
type ExecutionPlan struct {
	Components      []QueryComponent `json:"components"`
	Strategy        Strategy         `json:"strategy"`
	PrimaryAgent    string           `json:"primary_agent"`
	ToolsNeeded     []string         `json:"tools_needed,omitempty"`
	KnowledgeNeeded []string         `json:"knowledge_needed,omitempty"`
	ContextFusion   Fusion           `json:"context_fusion"`
	AgentSequence   []string         `json:"agent_sequence,omitempty"`

	// Decision is the supervisor narrative shown to the user.
	Decision string   `json:"decision"`
	Entities Entities `json:"entities"`
	Intents  []Intent `json:"intents"`
}

// Analyzer resolves prompts against the live agent registry and knowledge
// catalog. Deterministic: identical registry and prompt give an identical
// plan.
type Analyzer struct {
	registry  *catalog.Registry
	knowledge *catalog.KnowledgeCatalog
	defaultID string
}

func New(registry *catalog.Registry, knowledge *catalog.KnowledgeCatalog, defaultAgent string) *Analyzer {
	return &Analyzer{registry: registry, knowledge: knowledge, defaultID: defaultAgent}
}

// componentIntent maps a detected intent name to the richer tag carried on
// the emitted component.
var componentIntent = map[string]string{
	"humor":          "humor_creation",
	"recipe":         "recipe_with_tradition",
	"storytelling":   "storytelling",
	"information":    "information_delivery",
	"cultural":       "cultural_context",
	"personal":       "personal_guidance",
	"weather":        "current_information",
	"current_events": "current_information",
}

// Analyze runs the full pipeline over one prompt.
func (a *Analyzer) Analyze(prompt string) (*ExecutionPlan, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return nil, fmt.Errorf("empty prompt")
	}
	lower := strings.ToLower(trimmed)

	entities := ExtractEntities(trimmed)
	intents := DetectIntents(trimmed)

	plan := &ExecutionPlan{Entities: entities, Intents: intents}

	// Multi-agent sequencing: an analytic task handed off to a persona
	// ("analyze X and let granny tell me about it") runs the analyst first
	// and the persona last.
	if seq := a.detectAgentSequence(lower); len(seq) > 1 {
		plan.AgentSequence = seq
		plan.PrimaryAgent = seq[len(seq)-1]
		plan.Strategy = StrategyMultiAgent
	}

	// Agent selection by scoring, unless the sequence already decided.
	agentIntents := agentDirected(intents)
	if plan.PrimaryAgent == "" {
		chosen, score := a.scoreAgents(lower, agentIntents)
		if chosen == "" {
			def, err := a.registry.Default(a.defaultID)
			if err != nil {
				return nil, err
			}
			chosen = def.ID
		}
		plan.PrimaryAgent = chosen
		log.Printf("[Analyzer] Selected agent %s (score %.1f) for intents %v", chosen, score, intentNames(agentIntents))
	}

	// One AGENT component per agent in play, priority 1. In a sequence each
	// later agent depends on the one before it.
	agents := plan.AgentSequence
	if len(agents) == 0 {
		agents = []string{plan.PrimaryAgent}
	}
	intentTag := "storytelling"
	if len(agentIntents) > 0 {
		intentTag = componentIntent[agentIntents[0].Name]
	}
	var prevID string
	for i, id := range agents {
		c := QueryComponent{
			ID:       fmt.Sprintf("agent_%d", i+1),
			Text:     trimmed,
			Intent:   intentTag,
			Entities: entities,
			Kind:     ResourceAgent,
			Resource: id,
			Priority: 1,
		}
		if prevID != "" {
			c.DependsOn = []string{prevID}
		}
		plan.Components = append(plan.Components, c)
		prevID = c.ID
	}

	// Tool components, priority 2, one per tool-directed intent.
	toolCount := 0
	for _, in := range intents {
		if !toolIntents[in.Name] {
			continue
		}
		toolCount++
		plan.Components = append(plan.Components, QueryComponent{
			ID:       fmt.Sprintf("tool_%d", toolCount),
			Text:     strings.Join(in.Triggers, " "),
			Intent:   componentIntent[in.Name],
			Entities: entities,
			Kind:     ResourceTool,
			Resource: "web_search",
			Priority: 2,
		})
		if !containsString(plan.ToolsNeeded, "web_search") {
			plan.ToolsNeeded = append(plan.ToolsNeeded, "web_search")
		}
	}

	// Knowledge components, priority 2, one per matching knowledge key.
	if a.knowledge != nil {
		for _, key := range a.knowledge.Keys() {
			entry, _ := a.knowledge.Get(key)
			if !matchesKnowledge(lower, entry) {
				continue
			}
			plan.Components = append(plan.Components, QueryComponent{
				ID:       "knowledge_" + key,
				Text:     entry.Label,
				Intent:   "domain_knowledge",
				Entities: entities,
				Kind:     ResourceKnowledge,
				Resource: key,
				Priority: 2,
			})
			plan.KnowledgeNeeded = append(plan.KnowledgeNeeded, key)
		}
	}

	if plan.Strategy == "" {
		plan.Strategy = pickStrategy(plan)
	}
	plan.ContextFusion = a.pickFusion(plan, intents)
	plan.Decision = a.decisionText(plan, intents)
	return plan, nil
}

// detectAgentSequence recognizes the analytic-then-persona pattern. The
// returned sequence ends with the persona agent, which becomes primary.
func (a *Analyzer) detectAgentSequence(lower string) []string {
	analytic := false
	for _, cue := range []string{"analyze", "analysis", "research", "compare", "statistics", "report on"} {
		if containsTerm(lower, cue) {
			analytic = true
			break
		}
	}
	if !analytic || !a.registry.Has("data_analyst") {
		return nil
	}
	for _, def := range a.registry.List() {
		if def.ID == "data_analyst" {
			continue
		}
		if agentNameHinted(lower, def) {
			return []string{"data_analyst", def.ID}
		}
	}
	return nil
}

// scoreAgents sums keyword hits, capability hits, intent matches, and
// explicit name hints for every registered agent. Ties keep the earlier
// declared agent.
func (a *Analyzer) scoreAgents(lower string, agentIntents []Intent) (string, float64) {
	var bestID string
	var bestScore float64
	for _, def := range a.registry.List() {
		if !def.Active {
			continue
		}
		score := 0.0
		for _, kw := range def.RoutingKeywords {
			if containsTerm(lower, strings.ToLower(kw)) {
				score += 2.0
			}
		}
		for _, c := range def.Capabilities {
			if containsTerm(lower, strings.ToLower(c)) {
				score += 1.5
			}
		}
		for _, in := range agentIntents {
			for _, tag := range intentCapabilities[in.Name] {
				if hasCapability(def, tag) {
					score += 10.0
					break
				}
			}
		}
		if agentNameHinted(lower, def) {
			score += 5.0
		}
		if score > bestScore {
			bestScore = score
			bestID = def.ID
		}
	}
	if bestScore <= 0 {
		return "", 0
	}
	return bestID, bestScore
}

func pickStrategy(plan *ExecutionPlan) Strategy {
	if len(plan.Components) >= 3 {
		return StrategyHierarchical
	}
	if len(plan.ToolsNeeded) > 1 {
		return StrategyParallel
	}
	return StrategySequential
}

func (a *Analyzer) pickFusion(plan *ExecutionPlan, intents []Intent) Fusion {
	for _, id := range append([]string{plan.PrimaryAgent}, plan.AgentSequence...) {
		if def, ok := a.registry.Get(id); ok {
			if hasCapability(def, "cultural") || hasCapability(def, "family") {
				return FusionPersona
			}
		}
	}
	if def, ok := a.registry.Get(plan.PrimaryAgent); ok && hasCapability(def, "humor") {
		return FusionHumor
	}
	if len(intents) > 0 && informationOnly(intents) {
		return FusionFactual
	}
	return FusionNarrative
}

func (a *Analyzer) decisionText(plan *ExecutionPlan, intents []Intent) string {
	name := plan.PrimaryAgent
	if def, ok := a.registry.Get(plan.PrimaryAgent); ok {
		name = def.Name
	}
	var b strings.Builder
	if plan.Strategy == StrategyMultiAgent {
		fmt.Fprintf(&b, "Coordinating %s: gathering data first, then handing off to %s.",
			strings.Join(plan.AgentSequence, " then "), name)
	} else {
		fmt.Fprintf(&b, "Routing to %s (%s strategy).", name, plan.Strategy)
	}
	if names := intentNames(intents); len(names) > 0 {
		fmt.Fprintf(&b, " Detected intents: %s.", strings.Join(names, ", "))
	}
	if len(plan.ToolsNeeded) > 0 {
		fmt.Fprintf(&b, " Tools: %s.", strings.Join(plan.ToolsNeeded, ", "))
	}
	return b.String()
}

func agentDirected(intents []Intent) []Intent {
	var out []Intent
	for _, in := range intents {
		if !toolIntents[in.Name] {
			out = append(out, in)
		}
	}
	return out
}

func informationOnly(intents []Intent) bool {
	for _, in := range intents {
		switch in.Name {
		case "information", "weather", "current_events":
		default:
			return false
		}
	}
	return true
}

func intentNames(intents []Intent) []string {
	var names []string
	for _, in := range intents {
		names = append(names, in.Name)
	}
	return names
}

func hasCapability(def catalog.AgentDefinition, tag string) bool {
	for _, c := range def.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// agentNameHinted reports whether the prompt names the agent directly, by
// id, display name, or a routing keyword that is a form of address (the
// first keyword doubles as the agent's address form in the catalog).
func agentNameHinted(lower string, def catalog.AgentDefinition) bool {
	id := strings.ReplaceAll(strings.ToLower(def.ID), "_", " ")
	if strings.Contains(lower, id) || containsTerm(lower, strings.ToLower(def.ID)) {
		return true
	}
	name := strings.ToLower(def.Name)
	if name != "" && strings.Contains(lower, name) {
		return true
	}
	return false
}

// matchesKnowledge is conservative: at least one domain keyword must hit
// before a knowledge lookup is scheduled.
func matchesKnowledge(lower string, entry catalog.KnowledgeEntry) bool {
	for _, kw := range entry.Keywords {
		if containsTerm(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
