package record

import (
	"context"
	"fmt"
	"sync"
	"time"

	"projet/internal/worker"

	"go.uber.org/zap"
)

// Submitter runs background work; *worker.WorkerPool satisfies it.
type Submitter interface {
	Submit(t worker.Task)
}

// Store is what the rest of the application talks to. Every write announces
// the owner through the notifier, and Start turns announcements into fresh
// snapshots for that owner's subscribers.
type Store struct {
	repo     RecordRepository
	notifier Notifier
	pool     Submitter
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]*subscriber
}

func NewStore(repo RecordRepository, notifier Notifier, pool Submitter, logger *zap.Logger) *Store {
	return &Store{
		repo:     repo,
		notifier: notifier,
		pool:     pool,
		logger:   logger,
		now:      time.Now,
		subs:     make(map[string]map[int]*subscriber),
	}
}

// Start listens for change announcements until ctx ends.
func (s *Store) Start(ctx context.Context) error {
	return s.notifier.Listen(ctx, s.changed)
}

func (s *Store) List(ctx context.Context, ownerID string) ([]Record, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Store) Create(ctx context.Context, ownerID string, fields Fields) (*Record, error) {
	now := s.now().UTC()
	rec := &Record{
		OwnerID:        ownerID,
		Title:          fields.Title,
		Body:           fields.Body,
		Tags:           fields.Tags.Normalize(),
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastModifiedBy: ownerID,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.announce(ownerID)
	return rec, nil
}

// Update applies patch and always refreshes updated_at and last_modified_by.
func (s *Store) Update(ctx context.Context, id, actor string, patch Patch) (*Record, error) {
	rec, err := s.repo.Update(ctx, id, func(r *Record) {
		if patch.Title != nil {
			r.Title = *patch.Title
		}
		if patch.Body != nil {
			r.Body = *patch.Body
		}
		if patch.Tags != nil {
			r.Tags = *patch.Tags
		}
		now := s.now().UTC()
		if now.Before(r.CreatedAt) {
			now = r.CreatedAt
		}
		r.UpdatedAt = now
		r.LastModifiedBy = actor
	})
	if err != nil {
		return nil, err
	}
	s.announce(rec.OwnerID)
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	rec, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.announce(rec.OwnerID)
	return nil
}

// AppendRevision archives rev under recordID.
func (s *Store) AppendRevision(ctx context.Context, recordID string, rev *Revision) error {
	rev.ParentRecordID = recordID
	if rev.ArchivedAt.IsZero() {
		rev.ArchivedAt = s.now().UTC()
	}
	return s.repo.AppendRevision(ctx, rev)
}

func (s *Store) ListRevisions(ctx context.Context, recordID string) ([]Revision, error) {
	return s.repo.ListRevisions(ctx, recordID)
}

// FindRevision returns one revision of recordID.
func (s *Store) FindRevision(ctx context.Context, recordID, revisionID string) (*Revision, error) {
	revisions, err := s.repo.ListRevisions(ctx, recordID)
	if err != nil {
		return nil, err
	}
	for i := range revisions {
		if revisions[i].ID == revisionID {
			return &revisions[i], nil
		}
	}
	return nil, fmt.Errorf("revision %s: %w", revisionID, ErrNotFound)
}

func (s *Store) announce(ownerID string) {
	s.pool.Submit(func(ctx context.Context) error {
		return s.notifier.Publish(ctx, ownerID)
	})
}

type subscriber struct {
	ownerID string
	fn      func([]Record)
	kick    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

// Subscribe delivers the owner's records to fn now and after every change,
// newest first. Deliveries to one subscriber never overlap, and a burst of
// changes may collapse into one delivery. fn may run once more after cancel.
func (s *Store) Subscribe(ownerID string, fn func([]Record)) (cancel func()) {
	ctx, stop := context.WithCancel(context.Background())
	sub := &subscriber{
		ownerID: ownerID,
		fn:      fn,
		kick:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  stop,
	}
	sub.kick <- struct{}{}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.subs[ownerID] == nil {
		s.subs[ownerID] = make(map[int]*subscriber)
	}
	s.subs[ownerID][id] = sub
	s.mu.Unlock()

	go s.run(sub)

	return func() {
		s.mu.Lock()
		delete(s.subs[ownerID], id)
		if len(s.subs[ownerID]) == 0 {
			delete(s.subs, ownerID)
		}
		s.mu.Unlock()
		stop()
	}
}

func (s *Store) run(sub *subscriber) {
	for {
		select {
		case <-sub.ctx.Done():
			return
		case <-sub.kick:
		}

		records, err := s.repo.ListByOwner(sub.ctx, sub.ownerID)
		if err != nil {
			if sub.ctx.Err() == nil {
				s.logger.Error("loading records for subscriber", zap.String("owner_id", sub.ownerID), zap.Error(err))
			}
			continue
		}
		if sub.ctx.Err() != nil {
			return
		}
		sub.fn(records)
	}
}

func (s *Store) changed(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs[ownerID] {
		select {
		case sub.kick <- struct{}{}:
		default:
		}
	}
}

// Subscribers reports live subscriptions, for health output.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, subs := range s.subs {
		n += len(subs)
	}
	return n
}
