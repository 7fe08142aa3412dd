// Package stream carries the newline-delimited JSON event protocol between
// the orchestrator and HTTP clients. Each event is one JSON object on one
// line; a consumer splits on newlines and decodes independently.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Event is one frame of the turn protocol. Exactly one sender per frame;
// agent frames additionally carry one of the stream_* markers.
type Event struct {
	Sender        string `json:"sender"`
	Text          string `json:"text,omitempty"`
	ToolID        string `json:"tool_id,omitempty"`
	ForAgent      string `json:"for_agent,omitempty"`
	ViaSupervisor bool   `json:"via_supervisor,omitempty"`

	RoutingDecision string `json:"routing_decision,omitempty"`
	ChosenAgent     string `json:"chosen_agent,omitempty"`
	SupervisorType  string `json:"supervisor_type,omitempty"`
	Delegation      bool   `json:"delegation,omitempty"`

	StreamStart bool `json:"stream_start,omitempty"`
	StreamChunk bool `json:"stream_chunk,omitempty"`
	StreamEnd   bool `json:"stream_end,omitempty"`

	Error bool `json:"error,omitempty"`
}

// Emitter receives turn events in order. Emit may fail when the client has
// gone away; the orchestrator treats that as cancellation.
type Emitter interface {
	Emit(ev Event) error
}

// Writer streams events to an HTTP response as NDJSON, flushing after every
// frame so clients see tokens as they arrive. The response header goes out
// with the first frame, so callers can still send a plain HTTP error when a
// turn is rejected before producing any output.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context

	mu      sync.Mutex
	enc     *json.Encoder
	started bool
}

// NewWriter prepares w for NDJSON streaming.
func NewWriter(ctx context.Context, w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	return &Writer{w: w, flusher: flusher, ctx: ctx, enc: json.NewEncoder(w)}, nil
}

// Started reports whether any frame has been written yet.
func (sw *Writer) Started() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.started
}

// Emit writes one event frame. Returns the context error once the client
// has disconnected.
func (sw *Writer) Emit(ev Event) error {
	select {
	case <-sw.ctx.Done():
		return sw.ctx.Err()
	default:
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()
	if !sw.started {
		sw.w.Header().Set("Content-Type", "application/x-ndjson")
		sw.w.Header().Set("Cache-Control", "no-cache")
		sw.w.Header().Set("X-Accel-Buffering", "no")
		sw.w.WriteHeader(http.StatusOK)
		sw.started = true
	}
	if err := sw.enc.Encode(ev); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	sw.flusher.Flush()
	return nil
}

// Collector buffers events in memory, for the non-streaming message endpoint
// and for tests.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *Collector) Emit(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

// Events returns a copy of everything emitted so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}
