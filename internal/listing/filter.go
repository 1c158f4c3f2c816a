// Package listing filters an owner's records by tag and search term and
// serves the list, both as pages and as a live stream.
package listing

import (
	"strings"

	"projet/internal/record"
)

type Criteria struct {
	Tag    string `form:"tag" json:"tag"`
	Search string `form:"q" json:"q"`
}

// Filter keeps records carrying Criteria.Tag, when set, whose title, body or
// one of whose tags contains the trimmed search term, ignoring case. Order is
// preserved.
func Filter(records []record.Record, c Criteria) []record.Record {
	term := strings.ToLower(strings.TrimSpace(c.Search))

	out := make([]record.Record, 0, len(records))
	for _, rec := range records {
		if c.Tag != "" && !rec.Tags.Contains(c.Tag) {
			continue
		}
		if term != "" && !matches(rec, term) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matches(rec record.Record, term string) bool {
	if strings.Contains(strings.ToLower(rec.Title), term) || strings.Contains(strings.ToLower(rec.Body), term) {
		return true
	}
	for _, tag := range rec.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// Tags lists every tag in use, in first-seen order.
func Tags(records []record.Record) []string {
	var all record.Tags
	for _, rec := range records {
		all = append(all, rec.Tags...)
	}
	return all.Normalize()
}
