package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists sessions as one JSON document per session id under dir.
// Writes to the same session are serialized by a per-id mutex; writes to
// different sessions proceed in parallel. There are no cross-session
// transactions.
type Store struct {
	dir string

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex
}

// NewStore opens (creating if needed) a session store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir %s: %w", dir, err)
	}
	return &Store{dir: dir, locks: map[string]*sync.Mutex{}}, nil
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Store) pathFor(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Create allocates a new empty session and persists it.
func (s *Store) Create() (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		History:   []Message{},
	}
	if err := s.Put(sess); err != nil {
		return nil, err
	}
	log.Printf("[Session] Created %s", sess.ID)
	return sess, nil
}

// Get loads a session by id. ok is false when the session does not exist.
func (s *Store) Get(id string) (*Session, bool, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()
	return s.read(id)
}

func (s *Store) read(id string) (*Session, bool, error) {
	data, err := os.ReadFile(s.pathFor(id))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read session %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, false, fmt.Errorf("parse session %s: %w", id, err)
	}
	return &sess, true, nil
}

// Put writes the full session document.
func (s *Store) Put(sess *Session) error {
	l := s.lockFor(sess.ID)
	l.Lock()
	defer l.Unlock()
	return s.write(sess)
}

func (s *Store) write(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := os.WriteFile(s.pathFor(sess.ID), data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", sess.ID, err)
	}
	return nil
}

// Update applies fn to the session under its lock and persists the result,
// a read-modify-write in one critical section.
func (s *Store) Update(id string, fn func(*Session) error) (*Session, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	sess, ok, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.write(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(id string) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()
	if err := os.Remove(s.pathFor(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// List returns all sessions that have at least one message or at least one
// enabled agent, newest first.
func (s *Store) List() ([]*Session, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}
	var out []*Session
	for _, id := range ids {
		sess, ok, err := s.Get(id)
		if err != nil {
			log.Printf("[Session] Skipping unreadable session %s: %v", id, err)
			continue
		}
		if !ok || sess.Empty() {
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Cleanup deletes every empty session and returns the removed ids.
// Running it twice in a row is a no-op the second time.
func (s *Store) Cleanup() ([]string, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, id := range ids {
		sess, ok, err := s.Get(id)
		if err != nil || !ok {
			continue
		}
		if !sess.Empty() {
			continue
		}
		if err := s.Delete(id); err != nil {
			return removed, err
		}
		removed = append(removed, id)
	}
	if len(removed) > 0 {
		log.Printf("[Session] Cleanup removed %d empty sessions", len(removed))
	}
	return removed, nil
}

func (s *Store) ids() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list sessions dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}
