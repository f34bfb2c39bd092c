package kiosk

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/logger"
)

// State is what a branch's wheel looks like between restarts.
type State struct {
	Branch    string    `json:"branch"`
	TierID    string    `json:"tierId"`
	Rotation  float64   `json:"rotation"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StateStore persists kiosk state to kiosks.json (same layout as the other data/*.json files).
type StateStore struct {
	mu      sync.Mutex
	states  map[string]State
	dataDir string
}

func NewStateStore(dataDir string) *StateStore {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &StateStore{
		states:  make(map[string]State),
		dataDir: dataDir,
	}
	s.load()
	return s
}

func (s *StateStore) path() string {
	return filepath.Join(s.dataDir, "kiosks.json")
}

func (s *StateStore) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warningf("kiosk state: read %s: %v", s.path(), err)
		}
		return
	}
	var list []State
	if err := json.Unmarshal(data, &list); err != nil {
		logger.Warningf("kiosk state: parse %s: %v", s.path(), err)
		return
	}
	for _, st := range list {
		if st.Branch != "" {
			s.states[st.Branch] = st
		}
	}
}

func (s *StateStore) saveLocked() error {
	list := make([]State, 0, len(s.states))
	for _, st := range s.states {
		list = append(list, st)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Branch < list[j].Branch })
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path(), data, 0644)
}

func (s *StateStore) Get(branch string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[branch]
	return st, ok
}

func (s *StateStore) Put(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.Branch] = st
	return s.saveLocked()
}

func (s *StateStore) Delete(branch string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[branch]; !ok {
		return nil
	}
	delete(s.states, branch)
	return s.saveLocked()
}
