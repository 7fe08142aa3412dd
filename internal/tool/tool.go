// Package tool decides whether a tool is relevant for a prompt, runs it
// with a bounded timeout, and caches results for the duration of one turn.
package tool

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sezatoare/sezatoare/internal/analyzer"
	"github.com/sezatoare/sezatoare/internal/catalog"
	"github.com/sezatoare/sezatoare/internal/util"
)

const (
	WebSearch     = "web_search"
	Knowledgebase = "knowledgebase"
)

// Definition is the static metadata for one tool, served on /tools.
type Definition struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	UseCase     string  `json:"use_case"`
	Threshold   float64 `json:"confidence_threshold"`
	Fallback    string  `json:"fallback"`
}

// Definitions lists the bundled tools. The confidence threshold is advisory
// metadata; the runtime skips a call only when no trigger matched at all.
var Definitions = []Definition{
	{
		ID:          WebSearch,
		Name:        "Web Search",
		Description: "Searches the web for current information: weather, news, prices, events.",
		UseCase:     "current information lookup",
		Threshold:   0.8,
		Fallback:    "answer from model knowledge and say the information may be outdated",
	},
	{
		ID:          Knowledgebase,
		Name:        "Knowledgebase",
		Description: "Looks up curated domain documents, e.g. traditional recipes.",
		UseCase:     "domain document lookup",
		Threshold:   0.7,
		Fallback:    "answer from model knowledge",
	},
}

// Status classifies one MaybeRun outcome.
type Status string

const (
	StatusUsed    Status = "used"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is the full result record for one tool invocation attempt.
// Consumers display Result; the rest is routing metadata.
type Outcome struct {
	ToolID     string  `json:"tool_id"`
	Status     Status  `json:"status"`
	Result     string  `json:"result,omitempty"`
	Query      string  `json:"query,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Err        string  `json:"error,omitempty"`
	ForAgent   string  `json:"for_agent,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// SearchProvider is the outbound web-search dependency. A nil provider
// means the tool is configured off and MaybeRun skips it.
type SearchProvider interface {
	Search(ctx context.Context, query string) (string, error)
	Name() string
}

// Runtime holds the process-wide tool dependencies. Per-turn state lives in
// the Turn handles it hands out.
type Runtime struct {
	search    SearchProvider
	knowledge *catalog.KnowledgeCatalog
	timeout   time.Duration
}

func NewRuntime(search SearchProvider, knowledge *catalog.KnowledgeCatalog, timeout time.Duration) *Runtime {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Runtime{search: search, knowledge: knowledge, timeout: timeout}
}

// Turn carries the single-turn result cache. Identical MaybeRun arguments
// within one turn return the cached outcome without a second provider call.
type Turn struct {
	rt    *Runtime
	mu    sync.Mutex
	cache map[string]Outcome
}

// NewTurn starts a fresh cache scope for one orchestrated turn.
func (r *Runtime) NewTurn() *Turn {
	return &Turn{rt: r, cache: map[string]Outcome{}}
}

// MaybeRun checks relevance for the tool, executes it if relevant, and
// returns a typed outcome. Execution is bounded by the runtime timeout;
// provider errors come back as a failed outcome, never a Go error.
func (t *Turn) MaybeRun(ctx context.Context, toolID, prompt, option, forAgent string) Outcome {
	key := toolID + "\x00" + prompt + "\x00" + option
	t.mu.Lock()
	if cached, ok := t.cache[key]; ok {
		t.mu.Unlock()
		cached.ForAgent = forAgent
		return cached
	}
	t.mu.Unlock()

	var out Outcome
	switch toolID {
	case WebSearch:
		out = t.runWebSearch(ctx, prompt)
	case Knowledgebase:
		out = t.runKnowledgebase(prompt, option)
	default:
		out = Outcome{ToolID: toolID, Status: StatusSkipped, Reason: "unknown tool"}
	}
	out.ForAgent = forAgent

	t.mu.Lock()
	t.cache[key] = out
	t.mu.Unlock()
	return out
}

// webSearchTriggers are the current-information cues that make a web search
// worth the latency.
var webSearchTriggers = []string{
	"today", "current", "now", "latest", "recent", "news", "weather",
	"temperature", "forecast", "happening", "price", "stock", "update",
}

func (t *Turn) runWebSearch(ctx context.Context, prompt string) Outcome {
	out := Outcome{ToolID: WebSearch}
	lower := strings.ToLower(prompt)

	var hits []string
	for _, trig := range webSearchTriggers {
		if strings.Contains(lower, trig) {
			hits = append(hits, trig)
		}
	}
	if len(hits) == 0 {
		out.Status = StatusSkipped
		out.Reason = "no current-information cues in prompt"
		return out
	}
	out.Confidence = confidence(len(hits))

	if t.rt.search == nil {
		out.Status = StatusSkipped
		out.Reason = "web search is not configured"
		return out
	}

	out.Query = ComposeQuery(prompt, hits)
	callCtx, cancel := context.WithTimeout(ctx, t.rt.timeout)
	defer cancel()

	result, err := t.rt.search.Search(callCtx, out.Query)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err.Error()
		out.Result = fmt.Sprintf("Web search failed: %v", err)
		log.Printf("[Tool] web_search failed for query %q: %v", out.Query, err)
		return out
	}
	out.Status = StatusUsed
	out.Result = result
	log.Printf("[Tool] web_search used, query %q: %s", out.Query, util.TruncateRunes(result, 120))
	return out
}

func (t *Turn) runKnowledgebase(prompt, option string) Outcome {
	out := Outcome{ToolID: Knowledgebase}
	if t.rt.knowledge == nil {
		out.Status = StatusSkipped
		out.Reason = "no knowledge catalog loaded"
		return out
	}
	lower := strings.ToLower(prompt)

	key := option
	if key == "" {
		key = t.matchKnowledgeKey(lower)
		if key == "" {
			out.Status = StatusSkipped
			out.Reason = "no knowledge key matches the prompt"
			return out
		}
	}

	entry, ok := t.rt.knowledge.Get(key)
	if !ok {
		out.Status = StatusFailed
		out.Err = fmt.Sprintf("unknown knowledge key %q", key)
		out.Result = out.Err
		return out
	}
	if !keywordHit(lower, entry.Keywords) {
		out.Status = StatusSkipped
		out.Reason = fmt.Sprintf("prompt has no %s cues", key)
		return out
	}

	content, err := t.rt.knowledge.Content(key)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err.Error()
		out.Result = fmt.Sprintf("Knowledge lookup failed: %v", err)
		return out
	}
	out.Status = StatusUsed
	out.Query = key
	out.Result = entry.Label + "\n\n" + content
	out.Confidence = 0.9
	log.Printf("[Tool] knowledgebase used, key %q", key)
	return out
}

// matchKnowledgeKey picks the key with the most keyword hits; a single hit
// is enough since the keywords are domain-specific by construction.
func (t *Turn) matchKnowledgeKey(lower string) string {
	bestKey := ""
	bestHits := 0
	for _, key := range t.rt.knowledge.Keys() {
		entry, _ := t.rt.knowledge.Get(key)
		hits := 0
		for _, kw := range entry.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestKey = key
		}
	}
	return bestKey
}

func keywordHit(lower string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func confidence(hits int) float64 {
	c := 0.5 + 0.2*float64(hits)
	if c > 1 {
		c = 1
	}
	return c
}

// ComposeQuery builds a focused search query: the strongest trigger word,
// then extracted locations, temporal terms, products, and key concepts, at
// most five words. Falls back to the raw prompt minus stop words when
// extraction finds nothing usable.
func ComposeQuery(prompt string, triggers []string) string {
	const maxWords = 5
	e := analyzer.ExtractEntities(prompt)

	var words []string
	add := func(w string) {
		if len(words) >= maxWords || w == "" {
			return
		}
		for _, have := range words {
			if strings.EqualFold(have, w) {
				return
			}
		}
		words = append(words, w)
	}

	add(primaryTrigger(triggers))
	for _, loc := range e.Locations {
		add(loc)
	}
	for _, d := range e.Dates {
		add(d)
	}
	for _, p := range e.Products {
		add(p)
	}
	for _, org := range e.Organizations {
		add(org)
	}
	for _, kc := range e.KeyConcepts {
		add(kc)
	}

	if len(words) <= 1 {
		words = words[:0]
		for _, w := range analyzer.Tokenize(prompt) {
			if analyzer.IsStopWord(w) {
				continue
			}
			add(w)
		}
	}
	return strings.Join(words, " ")
}

// primaryTrigger favors the topical cue over the purely temporal one, so
// "weather ... today" searches for weather, not for today.
func primaryTrigger(triggers []string) string {
	temporal := map[string]bool{"today": true, "now": true, "current": true, "latest": true, "recent": true}
	for _, t := range triggers {
		if !temporal[t] {
			return t
		}
	}
	if len(triggers) > 0 {
		return triggers[0]
	}
	return ""
}
