package editor

import (
	"testing"

	"projet/internal/record"
	"projet/internal/revision"

	"github.com/stretchr/testify/assert"
)

func TestTagSet(t *testing.T) {
	set := NewTagSet("b", "a", "b", " ", " c ")
	assert.Equal(t, []string{"b", "a", "c"}, set.Values())

	assert.False(t, set.Add("a"))
	assert.True(t, set.Add("d"))
	assert.Equal(t, 4, set.Len())

	set.Remove("a", "missing")
	assert.Equal(t, []string{"b", "c", "d"}, set.Values())

	last, ok := set.Pop()
	assert.True(t, ok)
	assert.Equal(t, "d", last)

	empty := NewTagSet()
	_, ok = empty.Pop()
	assert.False(t, ok)
}

func TestDraft_HandleKey(t *testing.T) {
	tests := []struct {
		name      string
		tags      []string
		key       string
		input     string
		wantTags  []string
		wantInput string
		changed   bool
	}{
		{name: "enter commits", key: KeyEnter, input: " work ", wantTags: []string{"work"}, changed: true},
		{name: "comma commits", tags: []string{"a"}, key: KeyComma, input: "b", wantTags: []string{"a", "b"}, changed: true},
		{name: "duplicate ignored", tags: []string{"a"}, key: KeyEnter, input: "a", wantTags: []string{"a"}},
		{name: "blank ignored", tags: []string{"a"}, key: KeyEnter, input: "   ", wantTags: []string{"a"}},
		{name: "backspace on empty pops", tags: []string{"a", "b"}, key: KeyBackspace, input: "", wantTags: []string{"a"}, changed: true},
		{name: "backspace with text edits input", tags: []string{"a"}, key: KeyBackspace, input: "wo", wantTags: []string{"a"}, wantInput: "wo"},
		{name: "backspace with no tags", key: KeyBackspace, input: "", wantTags: []string{}},
		{name: "typing", key: "k", input: "wor", wantTags: []string{}, wantInput: "wor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Draft{Tags: NewTagSet(tt.tags...)}
			changed := d.HandleKey(tt.key, tt.input)

			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.wantTags, d.Tags.Values())
			assert.Equal(t, tt.wantInput, d.TagInput)
		})
	}
}

func TestSurface_ReplaceBumpsGeneration(t *testing.T) {
	s := &Surface{}
	s.Replace(record.Fields{Title: "A", Body: "1", Tags: record.Tags{"x"}})
	assert.Equal(t, 1, s.Generation)

	s.Draft.HandleKey(KeyEnter, "y")
	assert.Equal(t, 1, s.Generation)

	s.Replace(record.Fields{})
	assert.Equal(t, 2, s.Generation)
	assert.Empty(t, s.Draft.Tags.Values())
}

func TestSurface_TouchMarksEditDirty(t *testing.T) {
	s := &Surface{Edit: &revision.Edit{RecordID: "r1", State: revision.Clean}}
	s.touch(s.UpdatedAt)
	assert.Equal(t, revision.Dirty, s.Edit.State)
}
