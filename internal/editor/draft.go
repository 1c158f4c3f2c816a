// Package editor holds the working copy of a record while it is edited: the
// draft fields, the tag input and the remount generation of the widget.
package editor

import (
	"strings"
	"time"

	"projet/internal/record"
	"projet/internal/revision"
)

// Keys the tag input reacts to.
const (
	KeyEnter     = "Enter"
	KeyComma     = ","
	KeyBackspace = "Backspace"
)

type Draft struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Tags     TagSet `json:"tags"`
	TagInput string `json:"tag_input"`
}

func DraftFrom(f record.Fields) Draft {
	return Draft{Title: f.Title, Body: f.Body, Tags: NewTagSet(f.Tags...)}
}

func (d *Draft) Fields() record.Fields {
	return record.Fields{Title: d.Title, Body: d.Body, Tags: record.Tags(d.Tags.Values())}
}

// HandleKey applies key pressed in the tag input, where input is the text
// in the box when it was pressed. Enter and comma commit the pending tag,
// Backspace on an empty box removes the last tag. It reports whether the
// tag set changed.
func (d *Draft) HandleKey(key, input string) bool {
	switch key {
	case KeyEnter, KeyComma:
		d.TagInput = ""
		return d.Tags.Add(strings.TrimSpace(input))
	case KeyBackspace:
		if input == "" {
			d.TagInput = ""
			_, ok := d.Tags.Pop()
			return ok
		}
		d.TagInput = input
		return false
	default:
		d.TagInput = input
		return false
	}
}

// Surface is one open editor. Generation changes whenever the draft is
// replaced programmatically; clients rebuild the editing widget when it does.
type Surface struct {
	ID         string         `json:"id"`
	OwnerID    string         `json:"owner_id"`
	RecordID   string         `json:"record_id,omitempty"`
	Draft      Draft          `json:"draft"`
	Edit       *revision.Edit `json:"edit,omitempty"`
	Generation int            `json:"generation"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// IsNew reports whether saving creates a record.
func (s *Surface) IsNew() bool {
	return s.Edit == nil
}

// Replace loads f into the draft and bumps the generation.
func (s *Surface) Replace(f record.Fields) {
	s.Draft = DraftFrom(f)
	s.Generation++
}

// touch marks a user change.
func (s *Surface) touch(now time.Time) {
	if s.Edit != nil {
		s.Edit.Touch()
	}
	s.UpdatedAt = now
}
