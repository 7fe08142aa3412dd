// Package orchestrator drives one conversational turn: plan, tools, agent
// streams, supervisor narration, and the atomic history commit at the end.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sezatoare/sezatoare/internal/agent"
	"github.com/sezatoare/sezatoare/internal/analyzer"
	"github.com/sezatoare/sezatoare/internal/catalog"
	"github.com/sezatoare/sezatoare/internal/planner"
	"github.com/sezatoare/sezatoare/internal/session"
	"github.com/sezatoare/sezatoare/internal/stream"
	"github.com/sezatoare/sezatoare/internal/tool"
)

var (
	// ErrBusy means another turn is active on the same session. Clients may
	// retry once the running turn's stream closes.
	ErrBusy = errors.New("a turn is already running for this session")
	// ErrEmptyPrompt rejects blank input before anything is committed.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrNotFound means the session id resolves to nothing.
	ErrNotFound = errors.New("session not found")
)

const supervisorType = "enhanced"

// Orchestrator wires the analyzer, planner, tool runtime, and agent runner
// together over the session store. One instance serves all sessions.
type Orchestrator struct {
	store    *session.Store
	registry *catalog.Registry
	analyzer *analyzer.Analyzer
	tools    *tool.Runtime
	runner   *agent.Runner

	defaultAgent string
	turnTimeout  time.Duration

	mu     sync.Mutex
	active map[string]bool
}

func New(store *session.Store, registry *catalog.Registry, an *analyzer.Analyzer,
	tools *tool.Runtime, runner *agent.Runner, defaultAgent string, turnTimeout time.Duration) *Orchestrator {
	if turnTimeout <= 0 {
		turnTimeout = 120 * time.Second
	}
	return &Orchestrator{
		store:        store,
		registry:     registry,
		analyzer:     an,
		tools:        tools,
		runner:       runner,
		defaultAgent: defaultAgent,
		turnTimeout:  turnTimeout,
		active:       map[string]bool{},
	}
}

// acquire marks the session's single turn slot. Second callers get ErrBusy
// rather than queueing, so observable output is never interleaved.
func (o *Orchestrator) acquire(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[id] {
		return ErrBusy
	}
	o.active[id] = true
	return nil
}

func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	delete(o.active, id)
	o.mu.Unlock()
}

// turnState accumulates everything a turn produces before the single
// commit. The user message is committed up front; the rest lands in
// history atomically when the turn completes or fails terminally.
type turnState struct {
	sess    *session.Session
	emitter stream.Emitter
	pending []session.Message
	// emitFailed flips when the client goes away; after that the turn only
	// finishes bookkeeping.
	emitFailed bool
}

func (t *turnState) emit(ev stream.Event) {
	if t.emitFailed {
		return
	}
	if err := t.emitter.Emit(ev); err != nil {
		t.emitFailed = true
	}
}

func (t *turnState) append(m session.Message) {
	t.pending = append(t.pending, m)
}

// RunTurn executes one full turn for a session and streams events to em.
// It returns ErrBusy, ErrEmptyPrompt, or ErrNotFound for the caller to map
// to transport errors; any other failure has already been reported on the
// stream as a system event.
func (o *Orchestrator) RunTurn(ctx context.Context, sessionID, prompt string, em stream.Emitter) error {
	// Rejected before anything is emitted or committed; the transport maps
	// this to a client error.
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}
	if err := o.acquire(sessionID); err != nil {
		return err
	}
	defer o.release(sessionID)

	sess, ok, err := o.store.Get(sessionID)
	if err != nil {
		em.Emit(stream.Event{Sender: session.SenderSystem, Error: true, Text: "Could not load the session."})
		return err
	}
	if !ok {
		return ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	// The user message commits immediately; everything after it commits in
	// one batch at the end of the turn.
	userMsg := session.Message{Sender: session.SenderUser, Text: prompt}
	sess, err = o.store.Update(sessionID, func(s *session.Session) error {
		s.History = append(s.History, userMsg)
		return nil
	})
	if err != nil {
		em.Emit(stream.Event{Sender: session.SenderSystem, Error: true, Text: "Could not persist the message."})
		return err
	}

	t := &turnState{sess: sess, emitter: em}
	t.emit(stream.Event{Sender: session.SenderUser, Text: prompt})

	steps := o.buildSteps(t, prompt)
	err = o.runSteps(ctx, t, prompt, steps)
	if commitErr := o.commit(sessionID, t); commitErr != nil {
		em.Emit(stream.Event{Sender: session.SenderSystem, Error: true, Text: "Could not persist the turn."})
		if err == nil {
			err = commitErr
		}
	}
	return err
}

// buildSteps picks the mode and flattens the plan. Analyzer failure falls
// back to the default agent with an advisory supervisor message.
func (o *Orchestrator) buildSteps(t *turnState, prompt string) []planner.Step {
	if t.sess.SupervisorMode {
		plan, err := o.analyzer.Analyze(prompt)
		if err != nil {
			log.Printf("[Orchestrator] Analyzer failed, falling back to %s: %v", o.defaultAgent, err)
			advisory := session.Message{
				Sender:         session.SenderSupervisor,
				Text:           fmt.Sprintf("Could not analyze the request, answering with the default agent (%s).", o.defaultAgent),
				SupervisorType: supervisorType,
				ViaSupervisor:  true,
			}
			t.append(advisory)
			t.emit(stream.Event{
				Sender:         session.SenderSupervisor,
				Text:           advisory.Text,
				SupervisorType: supervisorType,
			})
			return planner.Fallback(o.defaultAgentID())
		}

		decision := session.Message{
			Sender:          session.SenderSupervisor,
			Text:            plan.Decision,
			RoutingDecision: string(plan.Strategy),
			ChosenAgent:     plan.PrimaryAgent,
			SupervisorType:  supervisorType,
			ViaSupervisor:   true,
		}
		t.append(decision)
		t.emit(stream.Event{
			Sender:          session.SenderSupervisor,
			Text:            decision.Text,
			RoutingDecision: decision.RoutingDecision,
			ChosenAgent:     decision.ChosenAgent,
			SupervisorType:  supervisorType,
		})
		return planner.FromExecution(plan, o.registry)
	}

	steps, warnings := planner.FromManual(t.sess.AgentSequence, o.registry)
	for _, w := range warnings {
		t.append(session.Message{Sender: session.SenderSystem, Text: w, Error: true})
		t.emit(stream.Event{Sender: session.SenderSystem, Text: w, Error: true})
	}
	if !hasAgentStep(steps) {
		steps = append(steps, planner.AgentStep{AgentID: o.defaultAgentID()})
	}
	return steps
}

// runSteps walks the plan in order. Tool failures are non-terminal; an
// agent failure is terminal only for the last agent in the plan.
func (o *Orchestrator) runSteps(ctx context.Context, t *turnState, prompt string, steps []planner.Step) error {
	turnTools := o.tools.NewTurn()
	var toolOutputs []tool.Outcome
	var priorAgent, priorOutput string
	lastAgent := lastAgentID(steps)

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return o.cancelled(t, err)
		}

		switch s := step.(type) {
		case planner.ToolStep:
			out := turnTools.MaybeRun(ctx, s.ToolID, prompt, s.Option, s.ForAgent)
			switch out.Status {
			case tool.StatusSkipped:
				log.Printf("[Orchestrator] Tool %s skipped: %s", s.ToolID, out.Reason)
			default:
				toolOutputs = append(toolOutputs, out)
				msg := session.Message{
					Sender:        session.SenderTool,
					Text:          out.Result,
					ToolID:        out.ToolID,
					ForAgent:      out.ForAgent,
					ViaSupervisor: t.sess.SupervisorMode,
					Error:         out.Status == tool.StatusFailed,
				}
				t.append(msg)
				t.emit(stream.Event{
					Sender:        session.SenderTool,
					Text:          msg.Text,
					ToolID:        msg.ToolID,
					ForAgent:      msg.ForAgent,
					ViaSupervisor: msg.ViaSupervisor,
					Error:         msg.Error,
				})
			}

		case planner.DelegationStep:
			msg := session.Message{
				Sender:         session.SenderSupervisor,
				Text:           s.Message,
				ChosenAgent:    s.TargetAgent,
				SupervisorType: supervisorType,
				Delegation:     true,
				ViaSupervisor:  true,
			}
			t.append(msg)
			t.emit(stream.Event{
				Sender:         session.SenderSupervisor,
				Text:           msg.Text,
				ChosenAgent:    msg.ChosenAgent,
				SupervisorType: supervisorType,
				Delegation:     true,
			})

		case planner.AgentStep:
			ac := agent.Context{
				Prompt:      prompt,
				ToolOutputs: toolOutputs,
				Fusion:      s.Fusion,
				History:     t.sess.History[:len(t.sess.History)-1], // current prompt goes separately
			}
			if s.UsePrior {
				ac.PriorAgent = priorAgent
				ac.PriorOutput = priorOutput
			}

			t.emit(stream.Event{Sender: s.AgentID, StreamStart: true})
			text, err := o.runner.Run(ctx, s.AgentID, ac, func(chunk string) {
				t.emit(stream.Event{Sender: s.AgentID, StreamChunk: true, Text: chunk})
			})
			if err != nil {
				t.emit(stream.Event{Sender: s.AgentID, StreamEnd: true, Error: true})
				if ctxErr := ctx.Err(); ctxErr != nil {
					return o.cancelled(t, ctxErr)
				}
				log.Printf("[Orchestrator] Agent %s failed: %v", s.AgentID, err)
				errMsg := session.Message{
					Sender: session.SenderSystem,
					Text:   fmt.Sprintf("Agent %s failed: %v", s.AgentID, err),
					Error:  true,
				}
				t.append(errMsg)
				t.emit(stream.Event{Sender: session.SenderSystem, Text: errMsg.Text, Error: true})
				if s.AgentID == lastAgent {
					return fmt.Errorf("primary agent %s: %w", s.AgentID, err)
				}
				continue
			}
			t.emit(stream.Event{Sender: s.AgentID, StreamEnd: true, Text: text})
			t.append(session.Message{
				Sender:        s.AgentID,
				Text:          text,
				ViaSupervisor: t.sess.SupervisorMode,
			})
			priorAgent = s.AgentID
			priorOutput = text
		}
	}

	// Supervisor turns close with an acknowledgement naming the agent that
	// produced the user-facing answer.
	if t.sess.SupervisorMode && priorAgent != "" {
		ack := session.Message{
			Sender:         session.SenderSupervisor,
			Text:           o.ackText(priorAgent),
			ChosenAgent:    priorAgent,
			SupervisorType: supervisorType,
			ViaSupervisor:  true,
		}
		t.append(ack)
		t.emit(stream.Event{
			Sender:         session.SenderSupervisor,
			Text:           ack.Text,
			ChosenAgent:    ack.ChosenAgent,
			SupervisorType: supervisorType,
		})
	}
	return nil
}

// cancelled commits the terminal marker for an aborted turn. No further
// events are emitted after cancellation.
func (o *Orchestrator) cancelled(t *turnState, cause error) error {
	reason := "cancelled"
	if errors.Is(cause, context.DeadlineExceeded) {
		reason = "cancelled: turn timed out"
	}
	t.append(session.Message{Sender: session.SenderSystem, Text: reason, Error: true})
	return fmt.Errorf("turn %s: %w", reason, cause)
}

// defaultAgentID resolves the configured default, falling back to the
// first declared agent when the configured id is not in the catalog.
func (o *Orchestrator) defaultAgentID() string {
	def, err := o.registry.Default(o.defaultAgent)
	if err != nil {
		return o.defaultAgent
	}
	return def.ID
}

func (o *Orchestrator) ackText(agentID string) string {
	name := agentID
	if def, ok := o.registry.Get(agentID); ok {
		name = def.Name
	}
	return fmt.Sprintf("%s produced the final answer above.", name)
}

// commit appends everything the turn accumulated in one store write.
func (o *Orchestrator) commit(sessionID string, t *turnState) error {
	if len(t.pending) == 0 {
		return nil
	}
	_, err := o.store.Update(sessionID, func(s *session.Session) error {
		s.History = append(s.History, t.pending...)
		return nil
	})
	return err
}

func hasAgentStep(steps []planner.Step) bool {
	return countAgentSteps(steps) > 0
}

func countAgentSteps(steps []planner.Step) int {
	n := 0
	for _, s := range steps {
		if _, ok := s.(planner.AgentStep); ok {
			n++
		}
	}
	return n
}

func lastAgentID(steps []planner.Step) string {
	last := ""
	for _, s := range steps {
		if as, ok := s.(planner.AgentStep); ok {
			last = as.AgentID
		}
	}
	return last
}
