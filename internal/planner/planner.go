// Package planner flattens either a manual plan or an analyzer execution
// plan into the ordered step list the orchestrator walks. Steps are totally
// ordered; the runtime never reorders them.
package planner

import (
	"fmt"

	"github.com/sezatoare/sezatoare/internal/analyzer"
	"github.com/sezatoare/sezatoare/internal/catalog"
	"github.com/sezatoare/sezatoare/internal/session"
)

// Step is one unit of turn execution: a tool call, an agent call, or a
// supervisor delegation announcement.
type Step interface {
	step()
}

// ToolStep runs a tool before the given agent sees the prompt.
type ToolStep struct {
	ToolID   string
	Option   string
	ForAgent string
}

// AgentStep runs one agent with the tool outputs accumulated so far.
// UsePrior marks agents after the first in a multi-agent sequence; they see
// the previous agent's output as labeled context.
type AgentStep struct {
	AgentID  string
	Fusion   analyzer.Fusion
	UsePrior bool
}

// DelegationStep inserts a supervisor hand-off announcement into the
// stream. No LLM call.
type DelegationStep struct {
	Message     string
	TargetAgent string
}

func (ToolStep) step()       {}
func (AgentStep) step()      {}
func (DelegationStep) step() {}

// FromManual flattens a stored manual plan. Entries referencing unknown
// agents are skipped with a warning; duplicate tools within an entry are
// collapsed to the first binding.
func FromManual(entries []session.PlanEntry, reg *catalog.Registry) ([]Step, []string) {
	var steps []Step
	var warnings []string
	for _, e := range entries {
		if !e.Enabled {
			continue
		}
		if !reg.Has(e.AgentID) {
			warnings = append(warnings, fmt.Sprintf("agent %q is not in the catalog, skipping", e.AgentID))
			continue
		}
		seen := map[string]bool{}
		for _, b := range e.Tools {
			if b.ToolID == "" || seen[b.ToolID] {
				continue
			}
			seen[b.ToolID] = true
			steps = append(steps, ToolStep{ToolID: b.ToolID, Option: b.Option, ForAgent: e.AgentID})
		}
		steps = append(steps, AgentStep{AgentID: e.AgentID})
	}
	return steps, warnings
}

// FromExecution flattens an analyzer plan. All priority-2 tool and
// knowledge lookups run before the first agent; in a multi-agent sequence
// every agent is preceded by a delegation announcement and agents after the
// first receive the prior agent's output.
func FromExecution(plan *analyzer.ExecutionPlan, reg *catalog.Registry) []Step {
	agents := plan.AgentSequence
	if len(agents) == 0 {
		agents = []string{plan.PrimaryAgent}
	}
	firstAgent := agents[0]

	var steps []Step
	for _, toolID := range plan.ToolsNeeded {
		steps = append(steps, ToolStep{ToolID: toolID, ForAgent: firstAgent})
	}
	for _, key := range plan.KnowledgeNeeded {
		steps = append(steps, ToolStep{ToolID: "knowledgebase", Option: key, ForAgent: firstAgent})
	}

	multi := plan.Strategy == analyzer.StrategyMultiAgent
	for i, id := range agents {
		if multi {
			steps = append(steps, DelegationStep{
				Message:     delegationMessage(id, i, len(agents), reg),
				TargetAgent: id,
			})
		}
		steps = append(steps, AgentStep{
			AgentID:  id,
			Fusion:   plan.ContextFusion,
			UsePrior: i > 0,
		})
	}
	return steps
}

// Fallback synthesizes the single-agent plan used when the analyzer fails.
func Fallback(defaultAgent string) []Step {
	return []Step{AgentStep{AgentID: defaultAgent, Fusion: analyzer.FusionNarrative}}
}

func delegationMessage(id string, idx, total int, reg *catalog.Registry) string {
	name := id
	if def, ok := reg.Get(id); ok {
		name = def.Name
	}
	if idx == 0 {
		return fmt.Sprintf("Delegating to %s to gather and structure the relevant information.", name)
	}
	if idx == total-1 {
		return fmt.Sprintf("Handing off to %s to present the findings.", name)
	}
	return fmt.Sprintf("Delegating to %s.", name)
}
