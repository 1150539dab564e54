package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LevelPack is an ordered set of levels plus the rules they are played with
type LevelPack struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	HistorySize int           `json:"history_size,omitempty" yaml:"history_size,omitempty"`
	Rules       []Rule        `json:"rules,omitempty" yaml:"rules,omitempty"`
	Levels      []LevelConfig `json:"levels" yaml:"levels"`
}

// LevelConfig is a single level layout in the level alphabet
type LevelConfig struct {
	Name   string   `json:"name" yaml:"name"`
	Layout []string `json:"layout" yaml:"layout"`
}

// HistoryCapacity returns the undo capacity sessions of this pack use
func (p *LevelPack) HistoryCapacity() int {
	if p.HistorySize == 0 {
		return MaxHistory
	}
	return p.HistorySize
}

// RuleTable builds the default rules extended with the pack's own rules
func (p *LevelPack) RuleTable() *RuleTable {
	rt := DefaultRules()
	for _, r := range p.Rules {
		rt.Add(r.Kind, r.Property)
	}
	return rt
}

// ValidateLevelPack validates a level pack for correctness and loadability
func ValidateLevelPack(pack *LevelPack) error {
	if pack == nil {
		return fmt.Errorf("pack validation: pack is nil")
	}
	if pack.Name == "" {
		return fmt.Errorf("pack validation: name is required")
	}
	if pack.HistorySize != 0 && (pack.HistorySize < MinHistory || pack.HistorySize > MaxHistoryCap) {
		return fmt.Errorf("pack validation: history_size must be between %d and %d, got %d",
			MinHistory, MaxHistoryCap, pack.HistorySize)
	}
	for i, r := range pack.Rules {
		if r.Kind == Empty || !r.Kind.Valid() {
			return fmt.Errorf("pack validation: rule %d has invalid kind %s", i+1, r.Kind)
		}
		if r.Property >= numProperties {
			return fmt.Errorf("pack validation: rule %d has invalid property %s", i+1, r.Property)
		}
	}
	if len(pack.Levels) == 0 {
		return fmt.Errorf("pack validation: at least one level is required")
	}
	for i, level := range pack.Levels {
		if _, err := ParseLevel(level.Layout); err != nil {
			return fmt.Errorf("pack validation: level %d (%s): %w", i+1, level.Name, err)
		}
	}
	return nil
}

// DecodeLevelPack parses a pack from JSON or YAML. format is a file
// extension such as ".json" or ".yaml".
func DecodeLevelPack(data []byte, format string) (*LevelPack, error) {
	var pack LevelPack
	switch strings.ToLower(format) {
	case ".json":
		if err := json.Unmarshal(data, &pack); err != nil {
			return nil, fmt.Errorf("failed to parse pack: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &pack); err != nil {
			return nil, fmt.Errorf("failed to parse pack: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported pack format %q", format)
	}
	return &pack, nil
}

// LoadLevelPack loads and validates a level pack file
func LoadLevelPack(filename string) (*LevelPack, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	pack, err := DecodeLevelPack(data, filepath.Ext(filename))
	if err != nil {
		return nil, err
	}

	if err := ValidateLevelPack(pack); err != nil {
		return nil, err
	}
	return pack, nil
}

// DefaultLevelPack returns the built-in levels
func DefaultLevelPack() *LevelPack {
	return &LevelPack{
		Name:        "default",
		Description: "Built-in levels: push rocks out of the way and reach the flag",
		Levels: []LevelConfig{
			{
				Name: "Rock Garden",
				Layout: []string{
					"#################################",
					"#       @                       #",
					"#           000                 #",
					"#       0                       #",
					"#       0        ###            #",
					"#       0        #              #",
					"#       0        #       #      #",
					"#       0        #       #      #",
					"#       0        #       #      #",
					"#       0                #      #",
					"#                        #      #",
					"#                        #      #",
					"#       $    ABC         #      #",
					"#                               #",
					"#                               #",
					"#                               #",
					"#                               #",
					"#################################",
				},
			},
			{
				Name: "Corridors",
				Layout: []string{
					"#################################",
					"#       @                       #",
					"#           00000000            #",
					"#                               #",
					"#      $                        #",
					"#                               #",
					"#                               #",
					"#          00000000000          #",
					"#                    0          #",
					"#                    0          #",
					"#                    0          #",
					"#          00000000000          #",
					"#          0                    #",
					"#          0                    #",
					"#          0                    #",
					"#          00000000000          #",
					"#                               #",
					"#################################",
				},
			},
			{
				Name: "Switchback",
				Layout: []string{
					"#################################",
					"#       @                       #",
					"#           00000000            #",
					"#                               #",
					"#      $                        #",
					"#                               #",
					"#                               #",
					"#            00000000000        #",
					"#                      0        #",
					"#                      0        #",
					"#                      0        #",
					"#                0000000        #",
					"#                      0        #",
					"#                      0        #",
					"#                      0        #",
					"#            00000000000        #",
					"#                               #",
					"#################################",
				},
			},
		},
	}
}
