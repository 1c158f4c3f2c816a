package editor

import (
	"context"
	"errors"
	"sync"
	"time"

	"projet/internal/cache"
	apiError "projet/internal/errors"
	"projet/internal/record"
	"projet/internal/revision"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Open(ctx context.Context, ownerID, recordID string) (*Surface, error)
	Get(ctx context.Context, ownerID, id string) (*Surface, error)
	Edit(ctx context.Context, ownerID, id string, form FormEdit) (*Surface, error)
	Key(ctx context.Context, ownerID, id string, form FormKey) (*Surface, error)
	RemoveTag(ctx context.Context, ownerID, id, tag string) (*Surface, error)
	Restore(ctx context.Context, ownerID, id, revisionID string) (*Surface, error)
	Save(ctx context.Context, ownerID, id string) (*SaveResult, error)
	Discard(ctx context.Context, ownerID, id string) error
}

// RecordReader is the read side of record.Store the editor needs.
type RecordReader interface {
	Get(ctx context.Context, id string) (*record.Record, error)
	FindRevision(ctx context.Context, recordID, revisionID string) (*record.Revision, error)
}

type FormEdit struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

type FormKey struct {
	Key   string `json:"key" binding:"required"`
	Input string `json:"input"`
}

type SaveResult struct {
	Record *record.Record `json:"record"`
	Draft  *Surface       `json:"draft"`
}

type DefaultService struct {
	records RecordReader
	manager *revision.Manager
	drafts  cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	saving map[string]struct{}
}

func NewService(records RecordReader, manager *revision.Manager, drafts cache.Cache, ttl time.Duration, logger *zap.Logger) Service {
	return &DefaultService{
		records: records,
		manager: manager,
		drafts:  drafts,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		saving:  make(map[string]struct{}),
	}
}

func draftKey(id string) string {
	return "draft:" + id
}

// Open starts an editor on recordID, or an empty composer when recordID is
// blank.
func (s *DefaultService) Open(ctx context.Context, ownerID, recordID string) (*Surface, error) {
	surface := &Surface{ID: uuid.NewString(), OwnerID: ownerID}

	if recordID == "" {
		surface.Replace(record.Fields{})
	} else {
		rec, err := s.records.Get(ctx, recordID)
		if err != nil {
			return nil, recordError(err)
		}
		if rec.OwnerID != ownerID {
			return nil, apiError.NotFound("Record not found", nil)
		}
		surface.RecordID = rec.ID
		surface.Edit = revision.NewEdit(rec)
		surface.Replace(rec.Fields())
	}

	surface.UpdatedAt = s.now().UTC()
	if err := s.put(ctx, surface); err != nil {
		return nil, err
	}
	return surface, nil
}

func (s *DefaultService) Get(ctx context.Context, ownerID, id string) (*Surface, error) {
	var surface Surface
	found, err := s.drafts.Get(ctx, draftKey(id), &surface)
	if err != nil {
		return nil, err
	}
	if !found || surface.OwnerID != ownerID {
		return nil, apiError.NotFound("Draft not found", nil)
	}
	return &surface, nil
}

func (s *DefaultService) Edit(ctx context.Context, ownerID, id string, form FormEdit) (*Surface, error) {
	return s.mutate(ctx, ownerID, id, func(surface *Surface) error {
		if form.Title != nil {
			surface.Draft.Title = *form.Title
		}
		if form.Body != nil {
			surface.Draft.Body = *form.Body
		}
		surface.touch(s.now().UTC())
		return nil
	})
}

func (s *DefaultService) Key(ctx context.Context, ownerID, id string, form FormKey) (*Surface, error) {
	return s.mutate(ctx, ownerID, id, func(surface *Surface) error {
		if surface.Draft.HandleKey(form.Key, form.Input) {
			surface.touch(s.now().UTC())
		}
		return nil
	})
}

func (s *DefaultService) RemoveTag(ctx context.Context, ownerID, id, tag string) (*Surface, error) {
	return s.mutate(ctx, ownerID, id, func(surface *Surface) error {
		if surface.Draft.Tags.Has(tag) {
			surface.Draft.Tags.Remove(tag)
			surface.touch(s.now().UTC())
		}
		return nil
	})
}

// Restore loads a revision into the draft. Nothing is written until Save.
func (s *DefaultService) Restore(ctx context.Context, ownerID, id, revisionID string) (*Surface, error) {
	return s.mutate(ctx, ownerID, id, func(surface *Surface) error {
		if surface.IsNew() {
			return apiError.UnprocessableEntity("Only saved records have revisions", nil)
		}
		rev, err := s.records.FindRevision(ctx, surface.RecordID, revisionID)
		if err != nil {
			return recordError(err)
		}
		surface.Replace(revision.Restore(rev))
		surface.touch(s.now().UTC())
		return nil
	})
}

// Save writes the draft. A composer draft is cleared afterwards so the next
// entry starts empty; an edit keeps its fields and becomes clean.
func (s *DefaultService) Save(ctx context.Context, ownerID, id string) (*SaveResult, error) {
	if !s.claim(id) {
		return nil, apiError.Conflict("Save already in progress", nil)
	}
	defer s.release(id)

	surface, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	var rec *record.Record
	if surface.IsNew() {
		rec, err = s.manager.SaveNew(ctx, ownerID, surface.Draft.Fields())
		if err != nil {
			return nil, err
		}
		surface.Replace(record.Fields{})
	} else {
		rec, err = s.manager.Commit(ctx, ownerID, surface.Edit, surface.Draft.Fields())
		if err != nil {
			return nil, err
		}
	}

	surface.UpdatedAt = s.now().UTC()
	if err := s.put(ctx, surface); err != nil {
		return nil, err
	}
	return &SaveResult{Record: rec, Draft: surface}, nil
}

// claim marks draft id as saving. The edit state lives in the cache and is
// only written back after the save, so overlapping saves are caught here.
func (s *DefaultService) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.saving[id]; busy {
		return false
	}
	s.saving[id] = struct{}{}
	return true
}

func (s *DefaultService) release(id string) {
	s.mu.Lock()
	delete(s.saving, id)
	s.mu.Unlock()
}

func (s *DefaultService) Discard(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, draftKey(id))
}

func (s *DefaultService) mutate(ctx context.Context, ownerID, id string, apply func(*Surface) error) (*Surface, error) {
	surface, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(surface); err != nil {
		return nil, err
	}
	if err := s.put(ctx, surface); err != nil {
		return nil, err
	}
	return surface, nil
}

func (s *DefaultService) put(ctx context.Context, surface *Surface) error {
	if err := s.drafts.Set(ctx, draftKey(surface.ID), surface, s.ttl); err != nil {
		s.logger.Error("storing draft", zap.String("draft_id", surface.ID), zap.Error(err))
		return err
	}
	return nil
}

func recordError(err error) error {
	if errors.Is(err, record.ErrNotFound) {
		return apiError.NotFound("Record not found", err)
	}
	return err
}
