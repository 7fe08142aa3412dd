package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

//go:embed data/knowledgebase.json
var defaultKnowledgeConfig []byte

// KnowledgeEntry describes one knowledge sub-document. Content comes from
// either InlineText or a file at Path, read lazily on first use.
type KnowledgeEntry struct {
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
	Path        string   `json:"path,omitempty"`
	InlineText  string   `json:"inline_text,omitempty"`
}

// KnowledgeCatalog is the loaded knowledge map, key → entry. Entries are
// read-only after load; file contents are cached after the first read.
type KnowledgeCatalog struct {
	baseDir string
	entries map[string]KnowledgeEntry

	mu    sync.Mutex
	cache map[string]string
}

// NewKnowledgeCatalog loads the knowledge catalog at path, or the embedded
// default when path is empty. Relative file paths inside the catalog resolve
// against the catalog file's directory.
func NewKnowledgeCatalog(path string) (*KnowledgeCatalog, error) {
	data := defaultKnowledgeConfig
	baseDir := ""
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read knowledge catalog %s: %w", path, err)
		}
		baseDir = filepath.Dir(path)
	}

	entries := map[string]KnowledgeEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse knowledge catalog: %w", err)
	}
	for key, e := range entries {
		if e.Path == "" && e.InlineText == "" {
			return nil, fmt.Errorf("knowledge entry %q has neither path nor inline_text", key)
		}
	}

	return &KnowledgeCatalog{
		baseDir: baseDir,
		entries: entries,
		cache:   map[string]string{},
	}, nil
}

// Keys returns all knowledge keys, sorted.
func (k *KnowledgeCatalog) Keys() []string {
	keys := make([]string, 0, len(k.entries))
	for key := range k.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the entry for a key.
func (k *KnowledgeCatalog) Get(key string) (KnowledgeEntry, bool) {
	e, ok := k.entries[key]
	return e, ok
}

// Content returns the text body for a key, reading the backing file lazily
// and caching the result.
func (k *KnowledgeCatalog) Content(key string) (string, error) {
	e, ok := k.entries[key]
	if !ok {
		return "", fmt.Errorf("unknown knowledge key %q", key)
	}
	if e.InlineText != "" {
		return e.InlineText, nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if cached, ok := k.cache[key]; ok {
		return cached, nil
	}

	path := e.Path
	if k.baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(k.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read knowledge file for %q: %w", key, err)
	}
	k.cache[key] = string(data)
	return string(data), nil
}
