package engine

import (
	"slices"
)

// RuleTable is a many-to-many mapping between object kinds and properties,
// indexed both ways so the resolver can ask "which kinds are Push" directly.
type RuleTable struct {
	byKind     map[ObjectKind]map[Property]struct{}
	byProperty map[Property]map[ObjectKind]struct{}
}

// Rule is a single kind-has-property assignment
type Rule struct {
	Kind     ObjectKind `json:"kind" yaml:"kind"`
	Property Property   `json:"property" yaml:"property"`
}

// NewRuleTable creates an empty rule table
func NewRuleTable() *RuleTable {
	return &RuleTable{
		byKind:     make(map[ObjectKind]map[Property]struct{}),
		byProperty: make(map[Property]map[ObjectKind]struct{}),
	}
}

// DefaultRules returns the rules every level starts with
func DefaultRules() *RuleTable {
	rt := NewRuleTable()
	rt.Add(Baba, You)
	rt.Add(Wall, Stop)
	rt.Add(Flag, Win)
	rt.Add(Rock, Push)
	for _, k := range TextKinds() {
		rt.Add(k, Push)
	}
	return rt
}

// Add records that kind has property. Adding an existing rule is a no-op.
func (rt *RuleTable) Add(kind ObjectKind, property Property) {
	if rt.byKind[kind] == nil {
		rt.byKind[kind] = make(map[Property]struct{})
	}
	rt.byKind[kind][property] = struct{}{}

	if rt.byProperty[property] == nil {
		rt.byProperty[property] = make(map[ObjectKind]struct{})
	}
	rt.byProperty[property][kind] = struct{}{}
}

// Get returns the kinds currently holding property, ordered by kind
func (rt *RuleTable) Get(property Property) []ObjectKind {
	set := rt.byProperty[property]
	kinds := make([]ObjectKind, 0, len(set))
	for k := range set {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Properties returns the properties held by kind, ordered by property
func (rt *RuleTable) Properties(kind ObjectKind) []Property {
	set := rt.byKind[kind]
	props := make([]Property, 0, len(set))
	for p := range set {
		props = append(props, p)
	}
	slices.Sort(props)
	return props
}

// Has reports whether kind has property
func (rt *RuleTable) Has(kind ObjectKind, property Property) bool {
	_, ok := rt.byKind[kind][property]
	return ok
}

// Rules lists every assignment ordered by kind, then property
func (rt *RuleTable) Rules() []Rule {
	var rules []Rule
	for _, k := range AllKinds() {
		for _, p := range rt.Properties(k) {
			rules = append(rules, Rule{Kind: k, Property: p})
		}
	}
	return rules
}

// Len returns the number of assignments
func (rt *RuleTable) Len() int {
	n := 0
	for _, props := range rt.byKind {
		n += len(props)
	}
	return n
}

// Clone returns an independent copy of the table
func (rt *RuleTable) Clone() *RuleTable {
	c := NewRuleTable()
	for k, props := range rt.byKind {
		for p := range props {
			c.Add(k, p)
		}
	}
	return c
}
