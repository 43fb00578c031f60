package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// PresenceSet is a set of ids stored as an object of id -> true. Order is irrelevant and duplicates are
// impossible by construction.
type PresenceSet map[string]bool

// NewPresenceSet returns a set holding the given ids.
func NewPresenceSet(ids ...string) PresenceSet {
	s := make(PresenceSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s PresenceSet) Add(id string) {
	if id != "" {
		s[id] = true
	}
}

func (s PresenceSet) Remove(id string) {
	delete(s, id)
}

func (s PresenceSet) Has(id string) bool {
	return s[id]
}

// Len counts only present entries; false values left over from older data are ignored.
func (s PresenceSet) Len() int {
	n := 0
	for _, present := range s {
		if present {
			n++
		}
	}
	return n
}

// IDs returns the present ids in lexical order.
func (s PresenceSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id, present := range s {
		if present {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Equal reports whether both sets hold exactly the same present ids.
func (s PresenceSet) Equal(other PresenceSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for id, present := range s {
		if present && !other[id] {
			return false
		}
	}
	return true
}

// MarshalJSON writes an object, never null, so that an empty set round-trips as an empty set.
func (s PresenceSet) MarshalJSON() ([]byte, error) {
	t := make(map[string]bool, len(s))
	for id, present := range s {
		if present {
			t[id] = true
		}
	}
	return json.Marshal(t)
}

// UnmarshalJSON accepts the object form and, for older data, a plain array of ids.
func (s *PresenceSet) UnmarshalJSON(b []byte) error {
	t := PresenceSet{}
	var obj map[string]interface{}
	if err := json.Unmarshal(b, &obj); err == nil {
		for id, v := range obj {
			if present, ok := v.(bool); ok && present {
				t[id] = true
			}
		}
		*s = t
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return errors.New(fmt.Sprint("failed to unmarshal presence set:", string(b)))
	}
	for _, id := range list {
		t.Add(id)
	}
	*s = t
	return nil
}
