package models

import (
	"encoding/json"
	"sort"
)

// VideoSet is a sorted list of unique video ids. The zero value is an empty set.
type VideoSet []int

// NewVideoSet builds a normalized set from ids.
func NewVideoSet(ids ...int) VideoSet {
	return VideoSet(ids).Normalize()
}

// Normalize returns a sorted copy of s without duplicates. It never returns nil.
func (s VideoSet) Normalize() VideoSet {
	out := make(VideoSet, 0, len(s))
	out = append(out, s...)
	sort.Ints(out)

	n := 0
	for i, id := range out {
		if i > 0 && out[n-1] == id {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}

// Contains reports whether id is in the set. s must be normalized.
func (s VideoSet) Contains(id int) bool {
	i := sort.SearchInts(s, id)
	return i < len(s) && s[i] == id
}

// With returns a normalized copy of s that includes id.
func (s VideoSet) With(id int) VideoSet {
	return append(s.Clone(), id).Normalize()
}

// Without returns a normalized copy of s that excludes id.
func (s VideoSet) Without(id int) VideoSet {
	out := make(VideoSet, 0, len(s))
	for _, v := range s {
		if v != id {
			out = append(out, v)
		}
	}
	return out.Normalize()
}

// Equal compares two normalized sets.
func (s VideoSet) Equal(other VideoSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s VideoSet) Clone() VideoSet {
	out := make(VideoSet, len(s))
	copy(out, s)
	return out
}

// Ints returns the ids as a plain slice.
func (s VideoSet) Ints() []int {
	return []int(s.Clone())
}

// MarshalJSON encodes an empty set as [] instead of null.
func (s VideoSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(s))
}

// UnmarshalJSON decodes and normalizes.
func (s *VideoSet) UnmarshalJSON(data []byte) error {
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewVideoSet(ids...)
	return nil
}
