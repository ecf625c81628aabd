// Package world implements the game-client collaborators on top of files
// exported by the client: a YAML item snapshot and a directory of sprites.
package world

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/raine/item-publisher/internal/item"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ErrPropertiesTimeout is returned when an item's properties did not show up
// within the wait timeout.
var ErrPropertiesTimeout = errors.New("timed out waiting for item properties")

const defaultPollInterval = 100 * time.Millisecond

type snapshotFile struct {
	Items []snapshotEntry `yaml:"items"`
}

type snapshotEntry struct {
	Serial     int64    `yaml:"serial"`
	ItemID     int      `yaml:"item_id"`
	Hue        int      `yaml:"hue"`
	Amount     int      `yaml:"amount"`
	Name       string   `yaml:"name"`
	Properties []string `yaml:"properties"`
}

func (e snapshotEntry) item() item.Item {
	amount := e.Amount
	if amount == 0 {
		amount = 1
	}
	return item.Item{
		Serial: item.Serial(e.Serial),
		KindID: e.ItemID,
		Hue:    e.Hue,
		Amount: amount,
		Name:   e.Name,
	}
}

// Snapshot is an item list exported by the game client. Properties of an
// entry may be missing until the client writes them; WaitForProperties
// re-reads the file until they appear.
type Snapshot struct {
	path         string
	pollInterval time.Duration

	mu      sync.RWMutex
	entries map[item.Serial]snapshotEntry
}

// LoadSnapshot reads the snapshot at path.
func LoadSnapshot(path string) (*Snapshot, error) {
	s := &Snapshot{path: path, pollInterval: defaultPollInterval}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseSnapshot builds a snapshot from YAML data. It cannot be reloaded.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	s := &Snapshot{pollInterval: defaultPollInterval}
	entries, err := parseEntries(data)
	if err != nil {
		return nil, err
	}
	s.entries = entries
	return s, nil
}

func parseEntries(data []byte) (map[item.Serial]snapshotEntry, error) {
	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	entries := make(map[item.Serial]snapshotEntry, len(f.Items))
	for _, e := range f.Items {
		if e.Serial <= 0 {
			return nil, fmt.Errorf("snapshot item %q has invalid serial %d", e.Name, e.Serial)
		}
		entries[item.Serial(e.Serial)] = e
	}
	return entries, nil
}

// Reload re-reads the snapshot file.
func (s *Snapshot) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	entries, err := parseEntries(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Items returns all items ordered by serial.
func (s *Snapshot) Items() []item.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]item.Item, 0, len(s.entries))
	for _, e := range s.entries {
		items = append(items, e.item())
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Serial < items[j].Serial })
	return items
}

func (s *Snapshot) Resolve(ctx context.Context, serial item.Serial) (*item.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[serial]
	if !ok {
		return nil, false
	}
	it := e.item()
	return &it, true
}

func (s *Snapshot) properties(serial item.Serial) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[serial]
	if !ok || e.Properties == nil {
		return nil, false
	}
	return append([]string(nil), e.Properties...), true
}

func (s *Snapshot) WaitForProperties(ctx context.Context, it *item.Item, timeout time.Duration) error {
	if _, ok := s.properties(it.Serial); ok {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: %s", ErrPropertiesTimeout, it.Serial)
		case <-ticker.C:
			if err := s.Reload(); err != nil {
				log.Debug().Err(err).Msg("snapshot reload failed")
				continue
			}
			if _, ok := s.properties(it.Serial); ok {
				return nil
			}
		}
	}
}

func (s *Snapshot) PropertyStrings(ctx context.Context, it *item.Item) ([]string, error) {
	props, ok := s.properties(it.Serial)
	if !ok {
		return nil, fmt.Errorf("no properties for %s", it.Serial)
	}
	return props, nil
}
