package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Store is the single source of truth for the authentication session: the
// bearer token and the username it belongs to. It is constructed explicitly
// and injected into the gateway and controllers; there is no ambient global.
//
// With a path the session survives across process runs in a plain JSON file
// (the stored credentials are deliberately unencrypted). With an empty path
// the store is memory-only.
type Store struct {
	mu       sync.Mutex
	path     string
	token    string
	username string
}

type fileState struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// NewStore creates a store backed by path, loading any previously saved
// session. An unreadable or corrupt file is treated as no session.
func NewStore(path string) *Store {
	s := &Store{path: path}
	if path == "" {
		return s
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return s
	}
	s.token, s.username = st.Token, st.Username
	return s
}

// Save persists the token and username for the lifetime of the store (and its
// file, when backed by one).
func (s *Store) Save(token, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.username = token, username
	return s.flush()
}

func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Store) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Clear removes both values and the backing file. Safe to call repeatedly.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.username = "", ""
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(fileState{Token: s.token, Username: s.username})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
