package analyzer

import (
	"testing"

	"github.com/sezatoare/sezatoare/internal/catalog"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	reg, err := catalog.NewRegistry("")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	kb, err := catalog.NewKnowledgeCatalog("")
	if err != nil {
		t.Fatalf("NewKnowledgeCatalog: %v", err)
	}
	return New(reg, kb, "story_creator")
}

func TestHumorRoutesToParodyCreator(t *testing.T) {
	a := newTestAnalyzer(t)
	plan, err := a.Analyze("Make a funny parody of LinkedIn posts")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if plan.PrimaryAgent != "parody_creator" {
		t.Errorf("primary = %s, want parody_creator", plan.PrimaryAgent)
	}
	if plan.Strategy != StrategySequential {
		t.Errorf("strategy = %s, want sequential", plan.Strategy)
	}
	if plan.ContextFusion != FusionHumor {
		t.Errorf("fusion = %s, want humor_integration", plan.ContextFusion)
	}
	if len(plan.ToolsNeeded) != 0 {
		t.Errorf("tools = %v, want none", plan.ToolsNeeded)
	}
}

func TestWeatherWithPersonaIsHierarchical(t *testing.T) {
	a := newTestAnalyzer(t)
	plan, err := a.Analyze("What's the weather in Bucharest today and can granny tell me about it?")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if plan.PrimaryAgent != "granny" {
		t.Errorf("primary = %s, want granny", plan.PrimaryAgent)
	}
	if plan.Strategy != StrategyHierarchical {
		t.Errorf("strategy = %s, want hierarchical", plan.Strategy)
	}
	if len(plan.ToolsNeeded) != 1 || plan.ToolsNeeded[0] != "web_search" {
		t.Errorf("tools = %v, want [web_search]", plan.ToolsNeeded)
	}
	if plan.ContextFusion != FusionPersona {
		t.Errorf("fusion = %s, want persona_integrated_storytelling", plan.ContextFusion)
	}
}

func TestAnalyticHandoffIsMultiAgent(t *testing.T) {
	a := newTestAnalyzer(t)
	plan, err := a.Analyze("Analyze weather in Bucharest last week and let granny tell me about it")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if plan.Strategy != StrategyMultiAgent {
		t.Fatalf("strategy = %s, want multi_agent_sequential", plan.Strategy)
	}
	want := []string{"data_analyst", "granny"}
	if len(plan.AgentSequence) != 2 || plan.AgentSequence[0] != want[0] || plan.AgentSequence[1] != want[1] {
		t.Errorf("sequence = %v, want %v", plan.AgentSequence, want)
	}
	if plan.PrimaryAgent != "granny" {
		t.Errorf("primary = %s, want granny (last in sequence)", plan.PrimaryAgent)
	}
}

func TestStoryPromptRoutesToStoryCreator(t *testing.T) {
	a := newTestAnalyzer(t)
	plan, err := a.Analyze("Tell me a story about a brave dragon")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if plan.PrimaryAgent != "story_creator" {
		t.Errorf("primary = %s, want story_creator", plan.PrimaryAgent)
	}
}

func TestRecipePromptFindsKnowledge(t *testing.T) {
	a := newTestAnalyzer(t)
	plan, err := a.Analyze("How do I make traditional Romanian ciorba?")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if plan.PrimaryAgent != "granny" {
		t.Errorf("primary = %s, want granny", plan.PrimaryAgent)
	}
	if len(plan.KnowledgeNeeded) != 1 || plan.KnowledgeNeeded[0] != "ciorba" {
		t.Errorf("knowledge = %v, want [ciorba]", plan.KnowledgeNeeded)
	}
	if plan.ContextFusion != FusionPersona {
		t.Errorf("fusion = %s, want persona_integrated_storytelling", plan.ContextFusion)
	}
}

func TestUnmatchedPromptFallsBackToDefault(t *testing.T) {
	a := newTestAnalyzer(t)
	plan, err := a.Analyze("qwerty zxcvb")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if plan.PrimaryAgent != "story_creator" {
		t.Errorf("primary = %s, want the configured default", plan.PrimaryAgent)
	}
}

func TestEmptyPromptIsRejected(t *testing.T) {
	a := newTestAnalyzer(t)
	if _, err := a.Analyze("   "); err == nil {
		t.Error("Analyze accepted a blank prompt")
	}
}

func TestPrimaryAgentIsLastInSequence(t *testing.T) {
	a := newTestAnalyzer(t)
	plan, err := a.Analyze("Research Romanian folklore statistics and let granny tell me about it")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(plan.AgentSequence) > 0 && plan.AgentSequence[len(plan.AgentSequence)-1] != plan.PrimaryAgent {
		t.Errorf("primary %s is not last in sequence %v", plan.PrimaryAgent, plan.AgentSequence)
	}
}

func TestDeterministicPlans(t *testing.T) {
	a := newTestAnalyzer(t)
	prompt := "What's the weather in Bucharest today and can granny tell me about it?"
	p1, err := a.Analyze(prompt)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := a.Analyze(prompt)
	if err != nil {
		t.Fatal(err)
	}
	if p1.PrimaryAgent != p2.PrimaryAgent || p1.Strategy != p2.Strategy || p1.Decision != p2.Decision {
		t.Error("identical prompts produced different plans")
	}
	if len(p1.Components) != len(p2.Components) {
		t.Errorf("component counts differ: %d vs %d", len(p1.Components), len(p2.Components))
	}
}

func TestExtractEntities(t *testing.T) {
	e := ExtractEntities("What's the weather in Bucharest today?")
	if len(e.Locations) != 1 || e.Locations[0] != "Bucharest" {
		t.Errorf("locations = %v", e.Locations)
	}
	found := false
	for _, d := range e.Dates {
		if d == "today" {
			found = true
		}
	}
	if !found {
		t.Errorf("dates = %v, want today", e.Dates)
	}

	e = ExtractEntities("Write a parody about LinkedIn")
	if len(e.Organizations) != 1 || e.Organizations[0] != "LinkedIn" {
		t.Errorf("organizations = %v", e.Organizations)
	}

	if !ExtractEntities("").Empty() {
		t.Error("empty prompt extracted entities")
	}
}

func TestExtractNumericDates(t *testing.T) {
	e := ExtractEntities("compare prices on 2024-05-01 and 01/06/2024")
	if len(e.Dates) != 2 {
		t.Errorf("dates = %v, want two numeric dates", e.Dates)
	}
}

func TestDetectIntentsPriorities(t *testing.T) {
	intents := DetectIntents("a funny story about today's news")
	byName := map[string]Intent{}
	for _, in := range intents {
		byName[in.Name] = in
	}
	if in, ok := byName["humor"]; !ok || in.Priority != 1 {
		t.Errorf("humor intent = %+v", byName["humor"])
	}
	if in, ok := byName["storytelling"]; !ok || in.Priority != 2 {
		t.Errorf("storytelling intent = %+v", byName["storytelling"])
	}
	if _, ok := byName["current_events"]; !ok {
		t.Error("current_events not detected")
	}
	if len(DetectIntents("zzz")) != 0 {
		t.Error("intents detected in noise")
	}
}

func TestWordBoundaryMatching(t *testing.T) {
	// "tale" must not fire inside "tell".
	intents := DetectIntents("tell me about it")
	for _, in := range intents {
		if in.Name == "storytelling" {
			t.Errorf("storytelling matched spuriously: %+v", in)
		}
	}
}
