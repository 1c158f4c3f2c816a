package editor

import "strings"

// TagSet is a set of tags kept in the order they were added. It is a plain
// slice underneath so it encodes as a JSON array.
type TagSet []string

func NewTagSet(items ...string) TagSet {
	set := make(TagSet, 0, len(items))
	set.Add(items...)
	return set
}

// Values returns a copy of the tags in insertion order.
func (s *TagSet) Values() []string {
	values := make([]string, len(*s))
	copy(values, *s)
	return values
}

func (s *TagSet) Len() int {
	return len(*s)
}

func (s *TagSet) Has(tag string) bool {
	for _, t := range *s {
		if t == tag {
			return true
		}
	}
	return false
}

// Add appends each trimmed item that is non-blank and not already present.
// It reports whether anything was added.
func (s *TagSet) Add(items ...string) bool {
	added := false
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || s.Has(item) {
			continue
		}
		*s = append(*s, item)
		added = true
	}
	return added
}

// Remove drops the given tags; missing ones are ignored.
func (s *TagSet) Remove(items ...string) {
	for _, item := range items {
		for i, t := range *s {
			if t == item {
				*s = append((*s)[:i], (*s)[i+1:]...)
				break
			}
		}
	}
}

// Pop removes and returns the most recently added tag.
func (s *TagSet) Pop() (string, bool) {
	n := len(*s)
	if n == 0 {
		return "", false
	}
	last := (*s)[n-1]
	*s = (*s)[:n-1]
	return last, true
}
