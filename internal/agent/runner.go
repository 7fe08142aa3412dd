// Package agent composes the LLM input for one agent invocation and runs
// it against the configured provider, streaming tokens back to the caller.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sezatoare/sezatoare/internal/analyzer"
	"github.com/sezatoare/sezatoare/internal/catalog"
	"github.com/sezatoare/sezatoare/internal/llm"
	"github.com/sezatoare/sezatoare/internal/session"
	"github.com/sezatoare/sezatoare/internal/tool"
)

// Context is everything one agent invocation sees beyond its own
// definition: the prompt, gathered tool outputs, the previous agent's
// output in a sequence, the fusion directive, and bounded history.
type Context struct {
	Prompt      string
	ToolOutputs []tool.Outcome
	PriorAgent  string
	PriorOutput string
	Fusion      analyzer.Fusion
	History     []session.Message
}

// Runner executes agents against an LLM provider. Safe for concurrent use.
type Runner struct {
	provider      llm.Provider
	registry      *catalog.Registry
	timeout       time.Duration
	historyWindow int
}

func NewRunner(provider llm.Provider, registry *catalog.Registry, timeout time.Duration, historyWindow int) *Runner {
	if historyWindow <= 0 {
		historyWindow = 20
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Runner{provider: provider, registry: registry, timeout: timeout, historyWindow: historyWindow}
}

// fusionDirectives are the short natural-language instructions appended to
// the composed input for each fusion mode.
var fusionDirectives = map[analyzer.Fusion]string{
	analyzer.FusionPersona:   "Integrate any facts above into your persona's warm, storytelling voice. Stay fully in character.",
	analyzer.FusionHumor:     "Use the facts above as raw material for the humor. Keep the comedy grounded in what is actually true.",
	analyzer.FusionFactual:   "Present the information above clearly and accurately. Keep the answer factual and well organized.",
	analyzer.FusionNarrative: "Weave the information above into a coherent narrative answer.",
}

// Run executes one agent with streaming. Tokens go to onChunk as they
// arrive; the assembled final text is returned. A cancelled context aborts
// the provider call and returns the context error with no partial text.
func (r *Runner) Run(ctx context.Context, agentID string, ac Context, onChunk llm.StreamCallback) (string, error) {
	def, ok := r.registry.Get(agentID)
	if !ok {
		return "", fmt.Errorf("agent %q is not in the catalog", agentID)
	}

	messages := r.compose(def, ac)
	params := llm.Params{
		Model:       def.Parameters.Model,
		Temperature: def.Parameters.Temperature,
		MaxTokens:   def.Parameters.MaxTokens,
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	reply, err := r.provider.CallLLMStream(callCtx, messages, params, onChunk)
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", agentID, err)
	}
	log.Printf("[Agent] %s answered in %s (%d chars)", agentID, time.Since(start).Round(time.Millisecond), len(reply.Content))
	return reply.Content, nil
}

// RunBlocking is Run without token streaming.
func (r *Runner) RunBlocking(ctx context.Context, agentID string, ac Context) (string, error) {
	return r.Run(ctx, agentID, ac, func(string) {})
}

// compose builds the message list: system prompt with tool sections, prior
// output, and the fusion directive folded in, then bounded history, then
// the current user prompt.
func (r *Runner) compose(def catalog.AgentDefinition, ac Context) []llm.Message {
	var sys strings.Builder
	sys.WriteString(def.SystemPrompt)

	for _, out := range ac.ToolOutputs {
		if out.Status != tool.StatusUsed && out.Status != tool.StatusFailed {
			continue
		}
		sys.WriteString("\n\n--- ")
		sys.WriteString(out.ToolID)
		sys.WriteString(" ---\n")
		if out.Query != "" {
			fmt.Fprintf(&sys, "Query: %s\n", out.Query)
		}
		sys.WriteString(out.Result)
		if out.ForAgent == def.ID {
			sys.WriteString("\n(This information was gathered specifically for you.)")
		}
	}

	if ac.PriorOutput != "" {
		prior := ac.PriorAgent
		if prior == "" {
			prior = "previous agent"
		}
		fmt.Fprintf(&sys, "\n\n--- Output from %s ---\n%s", prior, ac.PriorOutput)
	}

	if directive, ok := fusionDirectives[ac.Fusion]; ok {
		sys.WriteString("\n\n")
		sys.WriteString(directive)
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: sys.String()}}
	messages = append(messages, r.historyMessages(ac.History)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: ac.Prompt})
	return messages
}

// historyMessages maps the last historyWindow entries to chat messages.
// Older entries collapse into a single placeholder so the model knows the
// conversation did not start here. Tool and system entries are skipped;
// their content reached the model through other channels.
func (r *Runner) historyMessages(history []session.Message) []llm.Message {
	var out []llm.Message
	elided := 0
	start := 0
	if len(history) > r.historyWindow {
		start = len(history) - r.historyWindow
		elided = start
	}
	if elided > 0 {
		out = append(out, llm.Message{
			Role:    llm.RoleSystem,
			Content: fmt.Sprintf("[%d earlier messages elided]", elided),
		})
	}
	for _, m := range history[start:] {
		switch m.Sender {
		case session.SenderUser:
			out = append(out, llm.Message{Role: llm.RoleUser, Content: m.Text})
		case session.SenderTool, session.SenderSystem, session.SenderSupervisor:
			// not replayed
		default:
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: m.Text})
		}
	}
	return out
}
