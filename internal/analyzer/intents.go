package analyzer

import "strings"

// Intent is one detected conversational intent with the keywords that
// triggered it, kept for traceability in the supervisor decision text.
type Intent struct {
	Name     string
	Priority int // 1 is highest
	Triggers []string
}

// intentPattern binds an intent name to its trigger keywords. Patterns are
// grouped by priority; within a group, declaration order is the tie order.
type intentPattern struct {
	name     string
	keywords []string
}

// High-priority intents are checked first and dominate fusion selection.
var intentGroups = [][]intentPattern{
	{
		{"humor", []string{"funny", "parody", "comedy", "joke", "satire", "humor", "humorous", "hilarious", "roast"}},
		{"recipe", []string{"recipe", "cook", "cooking", "ciorba", "soup", "dish", "ingredients", "bake", "sarmale"}},
		{"weather", []string{"weather", "temperature", "forecast", "rain", "snow", "sunny"}},
	},
	{
		{"storytelling", []string{"story", "tale", "narrative", "once upon", "adventure", "fairytale"}},
		{"information", []string{"what", "explain", "describe", "information", "define"}},
		{"current_events", []string{"today", "now", "latest", "recent", "news", "current", "happening", "price", "stock", "update"}},
		{"cultural", []string{"traditional", "tradition", "romanian", "culture", "heritage", "folklore"}},
		{"personal", []string{"family", "grandmother", "grandma", "granny", "bunica", "advice", "childhood"}},
	},
}

// DetectIntents runs the prioritized pattern pass over a prompt. All groups
// are scanned; the priority on each intent records which group matched it.
func DetectIntents(prompt string) []Intent {
	lower := strings.ToLower(prompt)
	var out []Intent
	for gi, group := range intentGroups {
		for _, p := range group {
			var hits []string
			for _, kw := range p.keywords {
				if containsTerm(lower, kw) {
					hits = append(hits, kw)
				}
			}
			if len(hits) > 0 {
				out = append(out, Intent{Name: p.name, Priority: gi + 1, Triggers: hits})
			}
		}
	}
	return out
}

// intentCapabilities maps agent-directed intents to the capability tags an
// agent must carry to claim the intent bonus during scoring. Tool-directed
// intents (weather, current_events) have no entry.
var intentCapabilities = map[string][]string{
	"humor":        {"humor", "comedic"},
	"recipe":       {"cooking", "traditional_knowledge"},
	"storytelling": {"storytelling", "creative_writing"},
	"cultural":     {"cultural"},
	"personal":     {"family"},
}

// toolIntents are intents satisfied by running web_search rather than by
// picking a particular agent.
var toolIntents = map[string]bool{
	"weather":        true,
	"current_events": true,
}
