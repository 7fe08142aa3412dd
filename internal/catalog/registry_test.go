package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedCatalogLoads(t *testing.T) {
	r, err := NewRegistry("")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	agents := r.List()
	if len(agents) != 4 {
		t.Fatalf("expected 4 agents, got %d", len(agents))
	}

	// Declaration order from the JSON document, not map order.
	wantOrder := []string{"granny", "story_creator", "parody_creator", "data_analyst"}
	for i, id := range wantOrder {
		if agents[i].ID != id {
			t.Errorf("agent[%d] = %s, want %s", i, agents[i].ID, id)
		}
	}

	def, ok := r.Get("granny")
	if !ok {
		t.Fatal("granny not found")
	}
	if def.SystemPrompt == "" {
		t.Error("granny has no system prompt")
	}
	if !def.Active {
		t.Error("granny should be active")
	}
	if def.Parameters.MaxTokens == 0 {
		t.Error("granny has no max_tokens")
	}
}

func TestByCapability(t *testing.T) {
	r, err := NewRegistry("")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ids := r.ByCapability("humor")
	if len(ids) != 1 || ids[0] != "parody_creator" {
		t.Errorf("ByCapability(humor) = %v, want [parody_creator]", ids)
	}
	if got := r.ByCapability("no_such_tag"); len(got) != 0 {
		t.Errorf("ByCapability(no_such_tag) = %v, want empty", got)
	}
}

func TestDefaultFallsBackToFirstDeclared(t *testing.T) {
	r, err := NewRegistry("")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	def, err := r.Default("story_creator")
	if err != nil || def.ID != "story_creator" {
		t.Errorf("Default(story_creator) = %v, %v", def.ID, err)
	}
	def, err = r.Default("does_not_exist")
	if err != nil {
		t.Fatalf("Default with unknown preferred: %v", err)
	}
	if def.ID != "granny" {
		t.Errorf("fallback default = %s, want granny (first declared)", def.ID)
	}
}

func TestReloadKeepsOldSnapshotOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.json")
	if err := os.WriteFile(path, defaultAgentsConfig, 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewRegistry(path)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	before := len(r.List())

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err == nil {
		t.Fatal("Reload should fail on malformed catalog")
	}
	if got := len(r.List()); got != before {
		t.Errorf("after failed reload: %d agents, want %d", got, before)
	}
	if !r.Has("granny") {
		t.Error("granny lost after failed reload")
	}
}

func TestParseDocumentValidation(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"no agents", `{"agents": {}, "skills": {}, "metadata": {}}`},
		{"missing system_prompt", `{"agents": {"a": {"id": "a"}}}`},
		{"id mismatch", `{"agents": {"a": {"id": "b", "system_prompt": "x"}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, _, err := parseDocument([]byte(tc.doc)); err == nil {
				t.Errorf("parseDocument accepted %s", tc.name)
			}
		})
	}
}

func TestKnowledgeCatalog(t *testing.T) {
	k, err := NewKnowledgeCatalog("")
	if err != nil {
		t.Fatalf("NewKnowledgeCatalog: %v", err)
	}
	keys := k.Keys()
	if len(keys) == 0 {
		t.Fatal("embedded knowledge catalog is empty")
	}
	entry, ok := k.Get("ciorba")
	if !ok {
		t.Fatal("ciorba entry missing")
	}
	if entry.Label != "Ciorba Recipe" {
		t.Errorf("label = %q", entry.Label)
	}
	content, err := k.Content("ciorba")
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if content == "" {
		t.Error("ciorba content is empty")
	}
	if _, err := k.Content("nope"); err == nil {
		t.Error("Content for unknown key should fail")
	}
}

func TestKnowledgeCatalogFileEntry(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("file body"), 0o644); err != nil {
		t.Fatal(err)
	}
	catalogPath := filepath.Join(dir, "kb.json")
	doc := `{"doc": {"label": "Doc", "description": "d", "path": "doc.txt"}}`
	if err := os.WriteFile(catalogPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	k, err := NewKnowledgeCatalog(catalogPath)
	if err != nil {
		t.Fatalf("NewKnowledgeCatalog: %v", err)
	}
	content, err := k.Content("doc")
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if content != "file body" {
		t.Errorf("content = %q", content)
	}
}
