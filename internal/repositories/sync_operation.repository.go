package repositories

import (
	"context"

	contextutil "github.com/gamedjinn/sync/internal/context"
	"github.com/gamedjinn/sync/internal/database"
	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncOperationRepository interface {
	Create(ctx context.Context, op *SyncOperation) (*SyncOperation, error)
	Update(ctx context.Context, op *SyncOperation) error
	GetByID(ctx context.Context, id uuid.UUID) (*SyncOperation, error)
	ListByLibrary(ctx context.Context, libraryID uuid.UUID, limit int) ([]*SyncOperation, error)
}

type syncOperationRepository struct {
	db  database.DB
	log logger.Logger
}

func NewSyncOperationRepository(db database.DB) SyncOperationRepository {
	return &syncOperationRepository{
		db:  db,
		log: logger.New("syncOperationRepository"),
	}
}

func (r *syncOperationRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextutil.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *syncOperationRepository) Create(ctx context.Context, op *SyncOperation) (*SyncOperation, error) {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(op).Error; err != nil {
		return nil, log.Err("failed to create sync operation", err, "libraryID", op.LibraryID)
	}

	return op, nil
}

func (r *syncOperationRepository) Update(ctx context.Context, op *SyncOperation) error {
	log := r.log.Function("Update")

	if err := r.getDB(ctx).Save(op).Error; err != nil {
		return log.Err("failed to update sync operation", err, "id", op.ID)
	}

	return nil
}

func (r *syncOperationRepository) GetByID(ctx context.Context, id uuid.UUID) (*SyncOperation, error) {
	log := r.log.Function("GetByID")

	var op SyncOperation
	if err := r.getDB(ctx).First(&op, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, log.Err("failed to get sync operation by ID", err, "id", id)
	}

	return &op, nil
}

func (r *syncOperationRepository) ListByLibrary(ctx context.Context, libraryID uuid.UUID, limit int) ([]*SyncOperation, error) {
	log := r.log.Function("ListByLibrary")

	var ops []*SyncOperation
	if err := r.getDB(ctx).Where("library_id = ?", libraryID).Order("started_at DESC").Limit(limit).Find(&ops).Error; err != nil {
		return nil, log.Err("failed to list sync operations", err, "libraryID", libraryID)
	}

	return ops, nil
}
