package round

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// ResultsStore appends recorded wins to data/raffle_wins.json.
type ResultsStore struct {
	mu      sync.Mutex
	dataDir string
}

func NewResultsStore(dataDir string) *ResultsStore {
	if dataDir == "" {
		dataDir = "data"
	}
	return &ResultsStore{dataDir: dataDir}
}

func (rs *ResultsStore) path() string {
	return filepath.Join(rs.dataDir, "raffle_wins.json")
}

func (rs *ResultsStore) ensureDir() error {
	return os.MkdirAll(rs.dataDir, 0755)
}

// readLocked loads the ledger file. A missing file is an empty ledger. Caller must hold rs.mu.
func (rs *ResultsStore) readLocked() ([]Outcome, error) {
	data, err := os.ReadFile(rs.path())
	if errors.Is(err, os.ErrNotExist) {
		return []Outcome{}, nil
	}
	if err != nil {
		return nil, err
	}
	var list []Outcome
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Record adds a win to the JSON file (append to array).
func (rs *ResultsStore) Record(ctx context.Context, o Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if err := rs.ensureDir(); err != nil {
		return err
	}
	list, err := rs.readLocked()
	if err != nil {
		return err
	}
	list = append(list, o)
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	// Write then rename so a crash never leaves a half-written ledger.
	tmp := rs.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, rs.path())
}

// List returns recorded wins matching q, newest first.
func (rs *ResultsStore) List(ctx context.Context, q Query) ([]Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rs.mu.Lock()
	list, err := rs.readLocked()
	rs.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return filter(list, q), nil
}
