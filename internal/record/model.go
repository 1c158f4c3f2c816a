// Package record is the adapter over the document database: journal records,
// their revision trail and live per-owner snapshots.
package record

import (
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	StatusActive = "active"

	// DefaultRevisionNote labels every archive written by a save.
	DefaultRevisionNote = "User Edit"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrMissingOwner  = errors.New("record has no owner")
	ErrMissingParent = errors.New("revision has no parent record")
)

// Tags is an ordered set of labels. It is stored as text[] on postgres and as
// the same array literal in a text column elsewhere.
type Tags []string

// Normalize trims every tag and drops blanks and repeats, keeping first-seen
// order. The result is never nil.
func (t Tags) Normalize() Tags {
	out := make(Tags, 0, len(t))
	seen := make(map[string]struct{}, len(t))
	for _, tag := range t {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func (t Tags) Contains(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

func (t Tags) Value() (driver.Value, error) {
	return pq.StringArray(t.Normalize()).Value()
}

func (t *Tags) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*t = Tags(arr).Normalize()
	return nil
}

func (Tags) GormDataType() string {
	return "tags"
}

func (Tags) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

type Record struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID        string    `gorm:"type:varchar(36);index;not null" json:"owner_id"`
	Title          string    `gorm:"not null" json:"title"`
	Body           string    `gorm:"type:text" json:"body"`
	Tags           Tags      `json:"tags"`
	Status         string    `gorm:"type:varchar(20);default:active" json:"status"`
	RevisionCount  int       `gorm:"not null;default:0" json:"revision_count"`
	CreatedAt      time.Time `gorm:"index;autoCreateTime:false" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
	LastModifiedBy string    `gorm:"type:varchar(36)" json:"last_modified_by"`
}

func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.OwnerID == "" {
		return ErrMissingOwner
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
	r.Tags = r.Tags.Normalize()
	return nil
}

// AfterFind coerces rows written by older clients.
func (r *Record) AfterFind(tx *gorm.DB) error {
	r.Tags = r.Tags.Normalize()
	if r.Status == "" {
		r.Status = StatusActive
	}
	if r.UpdatedAt.Before(r.CreatedAt) {
		r.UpdatedAt = r.CreatedAt
	}
	return nil
}

func (r *Record) Fields() Fields {
	return Fields{Title: r.Title, Body: r.Body, Tags: append(Tags{}, r.Tags...)}
}

// Revision is an immutable snapshot of a record taken just before an update.
type Revision struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ParentRecordID string    `gorm:"type:varchar(36);index;not null" json:"parent_record_id"`
	SnapshotTitle  string    `json:"snapshot_title"`
	SnapshotBody   string    `gorm:"type:text" json:"snapshot_body"`
	SnapshotTags   Tags      `json:"snapshot_tags"`
	ArchivedAt     time.Time `gorm:"index" json:"archived_at"`
	ArchivedBy     string    `gorm:"type:varchar(36)" json:"archived_by"`
	Note           string    `json:"note"`
}

func (r *Revision) BeforeCreate(tx *gorm.DB) error {
	if r.ParentRecordID == "" {
		return ErrMissingParent
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Note == "" {
		r.Note = DefaultRevisionNote
	}
	r.SnapshotTags = r.SnapshotTags.Normalize()
	return nil
}

func (r *Revision) AfterFind(tx *gorm.DB) error {
	r.SnapshotTags = r.SnapshotTags.Normalize()
	return nil
}

func (r *Revision) Fields() Fields {
	return Fields{Title: r.SnapshotTitle, Body: r.SnapshotBody, Tags: append(Tags{}, r.SnapshotTags...)}
}

// Fields is the user-editable part of a record.
type Fields struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tags  Tags   `json:"tags"`
}

// Equal compares tags as sets.
func (f Fields) Equal(o Fields) bool {
	if f.Title != o.Title || f.Body != o.Body {
		return false
	}
	a, b := f.Tags.Normalize(), o.Tags.Normalize()
	if len(a) != len(b) {
		return false
	}
	for _, tag := range a {
		if !b.Contains(tag) {
			return false
		}
	}
	return true
}

// Patch is a partial replace; nil members are left alone.
type Patch struct {
	Title *string
	Body  *string
	Tags  *Tags
}

// PatchFrom replaces all three user fields.
func PatchFrom(f Fields) Patch {
	tags := f.Tags
	return Patch{Title: &f.Title, Body: &f.Body, Tags: &tags}
}
