// Package revision implements save-with-history: the state live before an
// update is archived as a Revision, then the update is applied.
package revision

import (
	"context"
	"errors"
	"strings"
	"time"

	apiError "projet/internal/errors"
	"projet/internal/record"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
)

// UntitledTitle names quick captures saved without a title.
const UntitledTitle = "Untitled Knot"

type State string

const (
	Clean      State = "clean"
	Dirty      State = "dirty"
	Archiving  State = "archiving"
	Committing State = "committing"
)

// Edit tracks one record open for editing. Original is the persisted state
// the next save archives; it is nil for a record that does not exist yet.
type Edit struct {
	RecordID string         `json:"record_id,omitempty"`
	Original *record.Fields `json:"original,omitempty"`
	State    State          `json:"state"`
}

// NewEdit starts a clean edit of rec.
func NewEdit(rec *record.Record) *Edit {
	fields := rec.Fields()
	return &Edit{RecordID: rec.ID, Original: &fields, State: Clean}
}

// Touch records a user change.
func (e *Edit) Touch() {
	if e.State == Clean {
		e.State = Dirty
	}
}

// RecordStore is the part of record.Store the manager writes through.
type RecordStore interface {
	Create(ctx context.Context, ownerID string, fields record.Fields) (*record.Record, error)
	Update(ctx context.Context, id, actor string, patch record.Patch) (*record.Record, error)
	AppendRevision(ctx context.Context, recordID string, rev *record.Revision) error
}

type Manager struct {
	store  RecordStore
	logger *zap.Logger
	now    func() time.Time
}

func NewManager(store RecordStore, logger *zap.Logger) *Manager {
	return &Manager{store: store, logger: logger, now: time.Now}
}

// Validate requires a title and a body with something besides whitespace.
func Validate(f record.Fields) error {
	return validation.Errors{
		"title": validation.Validate(strings.TrimSpace(f.Title), validation.Required.Error("is required")),
		"body":  validation.Validate(strings.TrimSpace(f.Body), validation.Required.Error("is required")),
	}.Filter()
}

// SaveEdit archives previous, when given, and then writes current over
// record id. The two writes are not atomic: if the archive lands and the
// update fails, the extra revision stays.
func (m *Manager) SaveEdit(ctx context.Context, actor, id string, current record.Fields, previous *record.Fields) (*record.Record, error) {
	edit := &Edit{RecordID: id, Original: previous, State: Dirty}
	return m.Commit(ctx, actor, edit, current)
}

// Commit saves current for edit and moves it back to clean. On failure the
// edit stays dirty with its Original untouched.
func (m *Manager) Commit(ctx context.Context, actor string, edit *Edit, current record.Fields) (*record.Record, error) {
	if edit.State == Archiving || edit.State == Committing {
		return nil, apiError.Conflict("Save already in progress", nil)
	}
	if err := Validate(current); err != nil {
		return nil, apiError.NewValidationError(err)
	}

	if edit.Original != nil {
		m.transition(edit, Archiving)
		rev := &record.Revision{
			SnapshotTitle: edit.Original.Title,
			SnapshotBody:  edit.Original.Body,
			SnapshotTags:  append(record.Tags{}, edit.Original.Tags...),
			ArchivedAt:    m.now().UTC(),
			ArchivedBy:    actor,
			Note:          record.DefaultRevisionNote,
		}
		if err := m.store.AppendRevision(ctx, edit.RecordID, rev); err != nil {
			m.transition(edit, Dirty)
			return nil, writeError("archive", err)
		}
	}

	m.transition(edit, Committing)
	rec, err := m.store.Update(ctx, edit.RecordID, actor, record.PatchFrom(current))
	if err != nil {
		m.transition(edit, Dirty)
		return nil, writeError("commit", err)
	}

	saved := rec.Fields()
	edit.Original = &saved
	m.transition(edit, Clean)
	return rec, nil
}

// SaveNew creates a record from the composer.
func (m *Manager) SaveNew(ctx context.Context, actor string, fields record.Fields) (*record.Record, error) {
	if err := Validate(fields); err != nil {
		return nil, apiError.NewValidationError(err)
	}
	return m.create(ctx, actor, fields)
}

// QuickSave creates a record from a quick capture: only the body is required.
func (m *Manager) QuickSave(ctx context.Context, actor string, fields record.Fields) (*record.Record, error) {
	if strings.TrimSpace(fields.Title) == "" {
		fields.Title = UntitledTitle
	}
	return m.SaveNew(ctx, actor, fields)
}

func (m *Manager) create(ctx context.Context, actor string, fields record.Fields) (*record.Record, error) {
	rec, err := m.store.Create(ctx, actor, fields)
	if err != nil {
		return nil, writeError("create", err)
	}
	m.logger.Debug("record created", zap.String("record_id", rec.ID))
	return rec, nil
}

// Restore returns the fields captured by rev. Nothing is written.
func Restore(rev *record.Revision) record.Fields {
	return rev.Fields()
}

func (m *Manager) transition(edit *Edit, to State) {
	m.logger.Debug("edit state",
		zap.String("record_id", edit.RecordID),
		zap.String("from", string(edit.State)),
		zap.String("to", string(to)),
	)
	edit.State = to
}

func writeError(step string, err error) error {
	if errors.Is(err, record.ErrNotFound) {
		return apiError.NotFound("Record not found", err)
	}
	return apiError.WriteFailed(step, err)
}
