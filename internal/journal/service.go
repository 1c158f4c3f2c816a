// Package journal serves the record screens: composer, quick capture,
// viewer, save, delete and history.
package journal

import (
	"context"
	"errors"

	apiError "projet/internal/errors"
	"projet/internal/record"
	"projet/internal/revision"

	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, ownerID string, fields record.Fields) (*record.Record, error)
	QuickCreate(ctx context.Context, ownerID string, fields record.Fields) (*record.Record, error)
	Show(ctx context.Context, ownerID, id string) (*record.Record, error)
	Update(ctx context.Context, ownerID, id string, fields record.Fields) (*record.Record, error)
	Delete(ctx context.Context, ownerID, id string, confirmed bool) error
	Revisions(ctx context.Context, ownerID, id string) ([]record.Revision, error)
}

// RecordStore is the part of record.Store the journal reads and deletes with.
type RecordStore interface {
	Get(ctx context.Context, id string) (*record.Record, error)
	Delete(ctx context.Context, id string) error
	ListRevisions(ctx context.Context, recordID string) ([]record.Revision, error)
}

type DefaultService struct {
	store   RecordStore
	manager *revision.Manager
	logger  *zap.Logger
}

func NewService(store RecordStore, manager *revision.Manager, logger *zap.Logger) Service {
	return &DefaultService{store: store, manager: manager, logger: logger}
}

func (s *DefaultService) Create(ctx context.Context, ownerID string, fields record.Fields) (*record.Record, error) {
	return s.manager.SaveNew(ctx, ownerID, fields)
}

func (s *DefaultService) QuickCreate(ctx context.Context, ownerID string, fields record.Fields) (*record.Record, error) {
	return s.manager.QuickSave(ctx, ownerID, fields)
}

// Show returns the record if ownerID owns it. Records of other owners are
// reported as missing.
func (s *DefaultService) Show(ctx context.Context, ownerID, id string) (*record.Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, apiError.NotFound("Record not found", err)
		}
		return nil, err
	}
	if rec.OwnerID != ownerID {
		return nil, apiError.NotFound("Record not found", nil)
	}
	return rec, nil
}

// Update saves fields over the record, archiving the persisted state first.
func (s *DefaultService) Update(ctx context.Context, ownerID, id string, fields record.Fields) (*record.Record, error) {
	if err := revision.Validate(fields); err != nil {
		return nil, apiError.NewValidationError(err)
	}

	rec, err := s.Show(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	previous := rec.Fields()
	return s.manager.SaveEdit(ctx, ownerID, id, fields, &previous)
}

func (s *DefaultService) Delete(ctx context.Context, ownerID, id string, confirmed bool) error {
	if !confirmed {
		return apiError.ConfirmationRequired("Delete this record permanently? Repeat with confirm=true")
	}
	if _, err := s.Show(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return apiError.NotFound("Record not found", err)
		}
		return apiError.WriteFailed("delete", err)
	}
	s.logger.Info("record deleted", zap.String("record_id", id), zap.String("owner_id", ownerID))
	return nil
}

func (s *DefaultService) Revisions(ctx context.Context, ownerID, id string) ([]record.Revision, error) {
	if _, err := s.Show(ctx, ownerID, id); err != nil {
		return nil, err
	}
	revisions, err := s.store.ListRevisions(ctx, id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, apiError.NotFound("Record not found", err)
		}
		return nil, err
	}
	return revisions, nil
}
