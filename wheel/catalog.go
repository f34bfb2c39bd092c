package wheel

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default_tiers.yaml
var defaultTiersYAML []byte

// ErrUnknownTier is returned when a tier id is not in the catalog.
var ErrUnknownTier = errors.New("wheel: unknown tier")

type catalogFile struct {
	Tiers []Tier `yaml:"tiers"`
}

// Catalog holds the configured tiers in display order and persists edits to its YAML file.
type Catalog struct {
	mu    sync.RWMutex
	tiers map[string]*Tier
	order []string
	path  string
}

// DefaultCatalog returns the built-in tiers, not backed by a file.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultTiersYAML)
	if err != nil {
		panic(fmt.Sprintf("wheel: built-in tiers: %v", err))
	}
	return c
}

// ParseCatalog decodes and validates a tier file.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tiers: %w", err)
	}
	c := &Catalog{tiers: make(map[string]*Tier)}
	for i := range f.Tiers {
		t := f.Tiers[i]
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.tiers[t.ID]; dup {
			return nil, &ConfigurationError{Tier: t.ID, Reason: "duplicate tier id"}
		}
		c.tiers[t.ID] = &t
		c.order = append(c.order, t.ID)
	}
	return c, nil
}

// LoadCatalog reads tiers from path. A missing file yields the built-in tiers, which
// are written to path on the first Register.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		c := DefaultCatalog()
		c.path = path
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tiers: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	c.path = path
	return c, nil
}

// saveLocked writes the catalog to disk. Caller must hold c.mu.
func (c *Catalog) saveLocked() error {
	if c.path == "" {
		return nil
	}
	f := catalogFile{Tiers: make([]Tier, 0, len(c.order))}
	for _, id := range c.order {
		f.Tiers = append(f.Tiers, *c.tiers[id])
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// Register validates and stores a tier. Overwrites if exists, keeping its position.
func (c *Catalog) Register(t Tier) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.Prizes = append([]Prize(nil), t.Prizes...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tiers[t.ID]; !ok {
		c.order = append(c.order, t.ID)
	}
	c.tiers[t.ID] = &t
	return c.saveLocked()
}

// Get returns a copy of the tier with the given id.
func (c *Catalog) Get(id string) (Tier, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tiers[id]
	if !ok {
		return Tier{}, fmt.Errorf("%w: %q", ErrUnknownTier, id)
	}
	return cloneTier(t), nil
}

// List returns copies of all tiers in display order.
func (c *Catalog) List() []Tier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Tier, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, cloneTier(c.tiers[id]))
	}
	return out
}

// Lookup finds a prize by the tier name written to the ledger and the prize name.
// Tiers are searched in display order.
func (c *Catalog) Lookup(recordName, prize string) (Prize, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.order {
		t := c.tiers[id]
		if t.RecordName() != recordName {
			continue
		}
		for _, p := range t.Prizes {
			if p.Name == prize {
				return p, true
			}
		}
	}
	return Prize{}, false
}

func cloneTier(t *Tier) Tier {
	cp := *t
	cp.Prizes = append([]Prize(nil), t.Prizes...)
	return cp
}
