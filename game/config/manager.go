package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/pushrules/game/engine"
	"github.com/wricardo/pushrules/game/service"
)

var (
	ErrPackNotFound = service.ErrPackNotFound
	ErrInvalidPack  = service.ErrInvalidPack
)

// DefaultPackID names the built-in pack, which is always available
const DefaultPackID = "default"

// packExtensions are the file formats a pack can be stored in, in lookup order
var packExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles level pack loading and caching
type Manager struct {
	packDir     string
	defaultPack *engine.LevelPack
	packs       map[string]*engine.LevelPack
	mu          sync.RWMutex
}

// NewManager creates a new pack manager reading from packDir. An empty
// packDir serves only the built-in pack.
func NewManager(packDir string) (*Manager, error) {
	if packDir != "" {
		if _, err := os.Stat(packDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("pack directory does not exist: %s", packDir)
		}
	}

	m := &Manager{
		packDir: packDir,
		packs:   make(map[string]*engine.LevelPack),
	}

	if err := m.loadDefaultPack(); err != nil {
		return nil, fmt.Errorf("failed to load default pack: %w", err)
	}

	return m, nil
}

// LoadPack loads a level pack by name. The name may carry a file extension;
// without one, .json, .yaml and .yml files are tried in that order.
func (m *Manager) LoadPack(name string) (*engine.LevelPack, error) {
	id := packID(name)

	m.mu.RLock()
	// Check cache first
	if pack, exists := m.packs[id]; exists {
		m.mu.RUnlock()
		return pack, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if pack, exists := m.packs[id]; exists {
		return pack, nil
	}

	pack, err := m.readPack(name)
	if err != nil {
		if !errors.Is(err, ErrPackNotFound) || id != DefaultPackID {
			return nil, err
		}
		pack = engine.DefaultLevelPack()
	}

	m.packs[id] = pack
	return pack, nil
}

// readPack reads and validates a pack file. Callers hold mu.
func (m *Manager) readPack(name string) (*engine.LevelPack, error) {
	path, ok := m.resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pack file: %w", err)
	}

	pack, err := engine.DecodeLevelPack(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}

	if err := engine.ValidateLevelPack(pack); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}

	log.Debug().Str("pack", pack.Name).Str("path", path).Int("levels", len(pack.Levels)).Msg("Level pack loaded")
	return pack, nil
}

// resolve finds the file backing a pack name
func (m *Manager) resolve(name string) (string, bool) {
	if m.packDir == "" || name == "" || strings.ContainsAny(name, `/\`) {
		return "", false
	}

	candidates := []string{name}
	if !isPackFile(name) {
		candidates = candidates[:0]
		for _, ext := range packExtensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, c := range candidates {
		path := filepath.Join(m.packDir, c)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// ListPacks returns information about all available packs. The built-in pack
// is listed first unless a file overrides it; invalid files are skipped.
func (m *Manager) ListPacks() ([]*service.PackInfo, error) {
	var packs []*service.PackInfo
	seen := make(map[string]bool)

	if m.packDir != "" {
		entries, err := os.ReadDir(m.packDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read pack directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !isPackFile(entry.Name()) {
				continue
			}

			id := packID(entry.Name())
			if seen[id] {
				continue
			}

			pack, err := m.LoadPack(entry.Name())
			if err != nil {
				log.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping invalid level pack")
				continue
			}
			seen[id] = true
			packs = append(packs, packInfo(entry.Name(), id, pack))
		}
	}

	if !seen[DefaultPackID] {
		packs = append(packs, packInfo("", DefaultPackID, engine.DefaultLevelPack()))
	}

	sort.Slice(packs, func(i, j int) bool {
		if packs[i].PackID == DefaultPackID {
			return packs[j].PackID != DefaultPackID
		}
		if packs[j].PackID == DefaultPackID {
			return false
		}
		return packs[i].PackID < packs[j].PackID
	})
	return packs, nil
}

// GetDefault returns the default pack
func (m *Manager) GetDefault() *engine.LevelPack {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPack
}

// SetDefault sets the default pack by name
func (m *Manager) SetDefault(name string) error {
	pack, err := m.LoadPack(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPack = pack
	return nil
}

// RefreshCache drops every cached pack so files are re-read on next use
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.packs = make(map[string]*engine.LevelPack)
	m.mu.Unlock()

	return m.loadDefaultPack()
}

// loadDefaultPack uses default.{json,yaml,yml} from the pack directory when
// present, else the built-in pack
func (m *Manager) loadDefaultPack() error {
	pack, err := m.LoadPack(DefaultPackID)
	if err != nil {
		if !errors.Is(err, ErrInvalidPack) {
			return err
		}
		log.Warn().Err(err).Msg("Ignoring invalid default pack file, using built-in levels")
		pack = engine.DefaultLevelPack()
	}

	m.mu.Lock()
	m.defaultPack = pack
	m.mu.Unlock()
	return nil
}

// SavePack validates a pack and writes it to the pack directory. The format
// follows the extension of name, defaulting to YAML.
func (m *Manager) SavePack(name string, pack *engine.LevelPack) error {
	if m.packDir == "" {
		return fmt.Errorf("no pack directory configured")
	}
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid pack name %q", ErrInvalidPack, name)
	}

	if err := engine.ValidateLevelPack(pack); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}

	filename := name
	if !isPackFile(filename) {
		filename = name + ".yaml"
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		data, err = json.MarshalIndent(pack, "", "  ")
	default:
		data, err = yaml.Marshal(pack)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal pack: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.packDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write pack file: %w", err)
	}

	m.mu.Lock()
	m.packs[packID(filename)] = pack
	m.mu.Unlock()

	return nil
}

// packID strips a known pack extension from a file or pack name
func packID(name string) string {
	if isPackFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

func isPackFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range packExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func packInfo(filename, id string, pack *engine.LevelPack) *service.PackInfo {
	return &service.PackInfo{
		Filename:    filename,
		PackID:      id,
		Name:        pack.Name,
		Description: pack.Description,
		Levels:      len(pack.Levels),
		HistorySize: pack.HistoryCapacity(),
	}
}
