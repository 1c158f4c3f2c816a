package record

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Delete policies for revisions of a removed record.
const (
	DeleteCascade = "cascade"
	DeleteOrphan  = "orphan"
)

type RecordRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)
	FindByID(ctx context.Context, id string) (*Record, error)
	Create(ctx context.Context, rec *Record) error
	// Update loads the record, lets apply mutate it and writes it back.
	Update(ctx context.Context, id string, apply func(*Record)) (*Record, error)
	// Delete removes the record and returns what was removed.
	Delete(ctx context.Context, id string) (*Record, error)
	// AppendRevision inserts rev and bumps the parent's revision count.
	AppendRevision(ctx context.Context, rev *Revision) error
	ListRevisions(ctx context.Context, recordID string) ([]Revision, error)
}

type RecordRepositoryImpl struct {
	db           *gorm.DB
	deletePolicy string
}

// NewRepository creates a record repository. An unknown policy cascades.
func NewRepository(db *gorm.DB, deletePolicy string) RecordRepository {
	if deletePolicy != DeleteOrphan {
		deletePolicy = DeleteCascade
	}
	return &RecordRepositoryImpl{db: db, deletePolicy: deletePolicy}
}

func (r *RecordRepositoryImpl) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	records := []Record{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&records).Error
	return records, err
}

func (r *RecordRepositoryImpl) FindByID(ctx context.Context, id string) (*Record, error) {
	return findRecord(r.db.WithContext(ctx), id)
}

func findRecord(tx *gorm.DB, id string) (*Record, error) {
	var rec Record
	err := tx.First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RecordRepositoryImpl) Create(ctx context.Context, rec *Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *RecordRepositoryImpl) Update(ctx context.Context, id string, apply func(*Record)) (*Record, error) {
	var updated *Record
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findRecord(tx, id)
		if err != nil {
			return err
		}
		apply(rec)
		rec.Tags = rec.Tags.Normalize()

		if err := tx.Model(rec).Select("title", "body", "tags", "updated_at", "last_modified_by").Updates(rec).Error; err != nil {
			return err
		}
		updated = rec
		return nil
	})
	return updated, err
}

func (r *RecordRepositoryImpl) Delete(ctx context.Context, id string) (*Record, error) {
	var deleted *Record
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findRecord(tx, id)
		if err != nil {
			return err
		}
		if r.deletePolicy == DeleteCascade {
			if err := tx.Where("parent_record_id = ?", id).Delete(&Revision{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&Record{}, "id = ?", id).Error; err != nil {
			return err
		}
		deleted = rec
		return nil
	})
	return deleted, err
}

func (r *RecordRepositoryImpl) AppendRevision(ctx context.Context, rev *Revision) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Record{}).
			Where("id = ?", rev.ParentRecordID).
			Update("revision_count", gorm.Expr("revision_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(rev).Error
	})
}

func (r *RecordRepositoryImpl) ListRevisions(ctx context.Context, recordID string) ([]Revision, error) {
	db := r.db.WithContext(ctx)

	var parents int64
	if err := db.Model(&Record{}).Where("id = ?", recordID).Count(&parents).Error; err != nil {
		return nil, err
	}
	if parents == 0 {
		return nil, ErrNotFound
	}

	revisions := []Revision{}
	err := db.Where("parent_record_id = ?", recordID).
		Order("archived_at DESC").
		Order("id DESC").
		Find(&revisions).Error
	return revisions, err
}
