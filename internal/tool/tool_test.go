package tool

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sezatoare/sezatoare/internal/catalog"
)

type fakeSearch struct {
	calls     int
	lastQuery string
	result    string
	err       error
	delay     time.Duration
}

func (f *fakeSearch) Name() string { return "fake" }

func (f *fakeSearch) Search(ctx context.Context, query string) (string, error) {
	f.calls++
	f.lastQuery = query
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.result, f.err
}

func newTestRuntime(t *testing.T, search SearchProvider, timeout time.Duration) *Runtime {
	t.Helper()
	kb, err := catalog.NewKnowledgeCatalog("")
	if err != nil {
		t.Fatalf("NewKnowledgeCatalog: %v", err)
	}
	return NewRuntime(search, kb, timeout)
}

func TestWebSearchSkippedWithoutCues(t *testing.T) {
	fs := &fakeSearch{result: "irrelevant"}
	turn := newTestRuntime(t, fs, time.Second).NewTurn()

	out := turn.MaybeRun(context.Background(), WebSearch, "tell me a story about dragons", "", "granny")
	if out.Status != StatusSkipped {
		t.Fatalf("status = %s, want skipped", out.Status)
	}
	if fs.calls != 0 {
		t.Errorf("provider called %d times for an irrelevant prompt", fs.calls)
	}
}

func TestWebSearchQueryContainsEntities(t *testing.T) {
	fs := &fakeSearch{result: "Sunny, 24 degrees in Bucharest."}
	turn := newTestRuntime(t, fs, time.Second).NewTurn()

	out := turn.MaybeRun(context.Background(), WebSearch, "What's the weather in Bucharest today?", "", "granny")
	if out.Status != StatusUsed {
		t.Fatalf("status = %s (%s)", out.Status, out.Reason)
	}
	for _, want := range []string{"weather", "Bucharest", "today"} {
		if !strings.Contains(out.Query, want) {
			t.Errorf("query %q missing %q", out.Query, want)
		}
	}
	if out.ForAgent != "granny" {
		t.Errorf("for_agent = %s", out.ForAgent)
	}
	if out.Result != fs.result {
		t.Errorf("result = %q", out.Result)
	}
}

func TestWebSearchSkippedWhenUnconfigured(t *testing.T) {
	turn := newTestRuntime(t, nil, time.Second).NewTurn()
	out := turn.MaybeRun(context.Background(), WebSearch, "latest news today", "", "a")
	if out.Status != StatusSkipped {
		t.Errorf("status = %s, want skipped when provider is nil", out.Status)
	}
}

func TestTurnCacheIsIdempotent(t *testing.T) {
	fs := &fakeSearch{result: "cached payload"}
	turn := newTestRuntime(t, fs, time.Second).NewTurn()

	first := turn.MaybeRun(context.Background(), WebSearch, "weather in Bucharest now", "", "a")
	second := turn.MaybeRun(context.Background(), WebSearch, "weather in Bucharest now", "", "a")
	if fs.calls != 1 {
		t.Fatalf("provider called %d times, want 1", fs.calls)
	}
	if first.Result != second.Result || first.Query != second.Query || first.Status != second.Status {
		t.Error("cached outcome differs from the original")
	}

	// A new turn starts with a fresh cache.
	fresh := newTestRuntime(t, fs, time.Second).NewTurn()
	fresh.MaybeRun(context.Background(), WebSearch, "weather in Bucharest now", "", "a")
	if fs.calls != 2 {
		t.Errorf("provider called %d times across two turns, want 2", fs.calls)
	}
}

func TestWebSearchFailureIsAnOutcome(t *testing.T) {
	fs := &fakeSearch{err: errors.New("upstream down")}
	turn := newTestRuntime(t, fs, time.Second).NewTurn()

	out := turn.MaybeRun(context.Background(), WebSearch, "latest news", "", "a")
	if out.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", out.Status)
	}
	if !strings.Contains(out.Result, "upstream down") {
		t.Errorf("result %q does not surface the error", out.Result)
	}
}

func TestWebSearchTimeout(t *testing.T) {
	fs := &fakeSearch{result: "slow", delay: 200 * time.Millisecond}
	turn := newTestRuntime(t, fs, 20*time.Millisecond).NewTurn()

	out := turn.MaybeRun(context.Background(), WebSearch, "latest news", "", "a")
	if out.Status != StatusFailed {
		t.Fatalf("status = %s, want failed on timeout", out.Status)
	}
}

func TestKnowledgebaseWithOption(t *testing.T) {
	turn := newTestRuntime(t, nil, time.Second).NewTurn()
	out := turn.MaybeRun(context.Background(), Knowledgebase, "How do I make traditional Romanian ciorba?", "ciorba", "granny")
	if out.Status != StatusUsed {
		t.Fatalf("status = %s (%s)", out.Status, out.Reason)
	}
	if !strings.Contains(out.Result, "Ciorba") {
		t.Errorf("result does not contain the document: %q", out.Result)
	}
	if out.Query != "ciorba" {
		t.Errorf("query = %q", out.Query)
	}
}

func TestKnowledgebaseConservativeMatching(t *testing.T) {
	turn := newTestRuntime(t, nil, time.Second).NewTurn()

	// Generic cooking talk without any domain term is skipped.
	out := turn.MaybeRun(context.Background(), Knowledgebase, "what should I eat tonight", "ciorba", "granny")
	if out.Status != StatusSkipped {
		t.Errorf("status = %s, want skipped without domain cues", out.Status)
	}

	// Without an option the key is inferred from domain terms.
	out = turn.MaybeRun(context.Background(), Knowledgebase, "bunica's ciorba reteta please", "", "granny")
	if out.Status != StatusUsed {
		t.Errorf("status = %s (%s), want used via inferred key", out.Status, out.Reason)
	}
}

func TestKnowledgebaseUnknownKey(t *testing.T) {
	turn := newTestRuntime(t, nil, time.Second).NewTurn()
	out := turn.MaybeRun(context.Background(), Knowledgebase, "ciorba", "no_such_key", "granny")
	if out.Status != StatusFailed {
		t.Errorf("status = %s, want failed for unknown key", out.Status)
	}
}

func TestUnknownToolSkipped(t *testing.T) {
	turn := newTestRuntime(t, nil, time.Second).NewTurn()
	out := turn.MaybeRun(context.Background(), "calculator", "2+2", "", "a")
	if out.Status != StatusSkipped {
		t.Errorf("status = %s, want skipped", out.Status)
	}
}

func TestComposeQueryFallsBackToStopwordStrip(t *testing.T) {
	q := ComposeQuery("what is the price", []string{"price"})
	if !strings.Contains(q, "price") {
		t.Errorf("query = %q", q)
	}

	words := strings.Fields(ComposeQuery("what's the latest news about the weather forecast in Bucharest today and tomorrow", []string{"weather", "news", "forecast", "today"}))
	if len(words) > 5 {
		t.Errorf("query has %d words, cap is 5: %v", len(words), words)
	}
}

func TestStripHTML(t *testing.T) {
	got := StripHTML("<p>Hello <b>world</b></p>")
	if got != "Hello world" {
		t.Errorf("StripHTML = %q", got)
	}
	if got := StripHTML("plain text"); got != "plain text" {
		t.Errorf("plain passthrough = %q", got)
	}
}
