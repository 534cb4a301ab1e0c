package datanorm

import "strings"

// NormalizeName is the identity key for entity names: pure lower-casing.
func NormalizeName(s string) string {
	return strings.ToLower(s)
}

// NameSet is a case-insensitive set that keeps the first-seen spelling of
// each name for display. Iteration order is insertion order.
type NameSet struct {
	display map[string]string
	order   []string
}

// NewNameSet returns an empty set.
func NewNameSet() *NameSet {
	return &NameSet{display: make(map[string]string)}
}

// Add inserts name unless an equal name (ignoring case) is present.
// It reports whether the name was new.
func (s *NameSet) Add(name string) bool {
	key := NormalizeName(name)
	if _, ok := s.display[key]; ok {
		return false
	}
	s.display[key] = name
	s.order = append(s.order, key)
	return true
}

// Has reports whether name is present, ignoring case.
func (s *NameSet) Has(name string) bool {
	_, ok := s.display[NormalizeName(name)]
	return ok
}

// HasKey reports whether an already-normalized key is present.
func (s *NameSet) HasKey(key string) bool {
	_, ok := s.display[key]
	return ok
}

// Len returns the number of distinct names.
func (s *NameSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Keys returns normalized keys in insertion order.
func (s *NameSet) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Display returns first-seen spellings in insertion order.
func (s *NameSet) Display() []string {
	out := make([]string, 0, s.Len())
	if s == nil {
		return out
	}
	for _, k := range s.order {
		out = append(out, s.display[k])
	}
	return out
}

// DisplayOf returns the stored spelling for a normalized key.
func (s *NameSet) DisplayOf(key string) string {
	return s.display[key]
}

// Difference returns display names in s that are absent from other,
// in s's insertion order.
func (s *NameSet) Difference(other *NameSet) []string {
	out := []string{}
	if s == nil {
		return out
	}
	for _, k := range s.order {
		if other == nil || !other.HasKey(k) {
			out = append(out, s.display[k])
		}
	}
	return out
}

// IntersectionLen counts names present in both sets.
func (s *NameSet) IntersectionLen(other *NameSet) int {
	if s == nil || other == nil {
		return 0
	}
	n := 0
	for _, k := range s.order {
		if other.HasKey(k) {
			n++
		}
	}
	return n
}
