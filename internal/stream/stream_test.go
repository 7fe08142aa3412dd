package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriterEmitsNDJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(context.Background(), rec)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if w.Started() {
		t.Error("writer started before any frame")
	}

	events := []Event{
		{Sender: "user", Text: "hello"},
		{Sender: "granny", StreamStart: true},
		{Sender: "granny", StreamChunk: true, Text: "Ah, "},
		{Sender: "granny", StreamEnd: true, Text: "Ah, draga."},
	}
	for _, ev := range events {
		if err := w.Emit(ev); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	if !w.Started() {
		t.Error("writer not marked started")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type = %q", ct)
	}

	var decoded []Event
	sc := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		decoded = append(decoded, ev)
	}
	if len(decoded) != len(events) {
		t.Fatalf("decoded %d frames, want %d", len(decoded), len(events))
	}
	if decoded[2].Text != "Ah, " || !decoded[2].StreamChunk {
		t.Errorf("chunk frame = %+v", decoded[2])
	}
}

func TestWriterStopsAfterCancel(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	w, err := NewWriter(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Emit(Event{Sender: "user", Text: "hi"}); err != nil {
		t.Fatalf("Emit before cancel: %v", err)
	}
	cancel()
	if err := w.Emit(Event{Sender: "user", Text: "more"}); err == nil {
		t.Error("Emit after cancel should fail")
	}
}

func TestEventOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Event{Sender: "user", Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, field := range []string{"tool_id", "stream_start", "error", "routing_decision"} {
		if strings.Contains(s, field) {
			t.Errorf("zero field %q serialized: %s", field, s)
		}
	}
}

func TestCollector(t *testing.T) {
	var c Collector
	c.Emit(Event{Sender: "user", Text: "a"})
	c.Emit(Event{Sender: "system", Error: true, Text: "b"})
	got := c.Events()
	if len(got) != 2 || got[1].Error != true {
		t.Errorf("events = %+v", got)
	}

	// The returned slice is a copy.
	got[0].Text = "mutated"
	if c.Events()[0].Text != "a" {
		t.Error("Events returned shared backing storage")
	}
}
