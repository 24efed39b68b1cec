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

type UserLibraryRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*UserLibrary, error)
	GetByUserAndPlatform(ctx context.Context, userID uuid.UUID, platformID uuid.UUID) (*UserLibrary, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*UserLibrary, error)
	List(ctx context.Context, limit, offset int) ([]*UserLibrary, int64, error)
	ListEnabledForSync(ctx context.Context) ([]*UserLibrary, error)
	Create(ctx context.Context, library *UserLibrary) (*UserLibrary, error)
	Update(ctx context.Context, library *UserLibrary) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type userLibraryRepository struct {
	db  database.DB
	log logger.Logger
}

func NewUserLibraryRepository(db database.DB) UserLibraryRepository {
	return &userLibraryRepository{
		db:  db,
		log: logger.New("userLibraryRepository"),
	}
}

func (r *userLibraryRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextutil.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *userLibraryRepository) GetByID(ctx context.Context, id uuid.UUID) (*UserLibrary, error) {
	log := r.log.Function("GetByID")

	var library UserLibrary
	if err := r.getDB(ctx).Preload("Platform").First(&library, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, log.Err("failed to get user library by ID", err, "id", id)
	}

	return &library, nil
}

func (r *userLibraryRepository) GetByUserAndPlatform(ctx context.Context, userID uuid.UUID, platformID uuid.UUID) (*UserLibrary, error) {
	log := r.log.Function("GetByUserAndPlatform")

	var library UserLibrary
	err := r.getDB(ctx).
		Preload("Platform").
		First(&library, "user_id = ? AND platform_id = ?", userID, platformID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, log.Err("failed to get user library by user and platform", err, "userID", userID, "platformID", platformID)
	}

	return &library, nil
}

func (r *userLibraryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*UserLibrary, error) {
	log := r.log.Function("ListByUser")

	var libraries []*UserLibrary
	if err := r.getDB(ctx).Preload("Platform").Where("user_id = ?", userID).Find(&libraries).Error; err != nil {
		return nil, log.Err("failed to list user libraries", err, "userID", userID)
	}

	return libraries, nil
}

func (r *userLibraryRepository) List(ctx context.Context, limit, offset int) ([]*UserLibrary, int64, error) {
	log := r.log.Function("List")

	var libraries []*UserLibrary
	var total int64

	if err := r.getDB(ctx).Model(&UserLibrary{}).Count(&total).Error; err != nil {
		return nil, 0, log.Err("failed to count user libraries", err)
	}

	if err := r.getDB(ctx).Preload("Platform").Limit(limit).Offset(offset).Find(&libraries).Error; err != nil {
		return nil, 0, log.Err("failed to list user libraries", err)
	}

	return libraries, total, nil
}

// ListEnabledForSync returns every library with sync enabled, for the
// scheduled-sync job to enqueue each on its own cadence.
func (r *userLibraryRepository) ListEnabledForSync(ctx context.Context) ([]*UserLibrary, error) {
	log := r.log.Function("ListEnabledForSync")

	var libraries []*UserLibrary
	if err := r.getDB(ctx).Preload("Platform").Where("sync_enabled = ?", true).Find(&libraries).Error; err != nil {
		return nil, log.Err("failed to list sync-enabled libraries", err)
	}

	return libraries, nil
}

func (r *userLibraryRepository) Create(ctx context.Context, library *UserLibrary) (*UserLibrary, error) {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(library).Error; err != nil {
		return nil, log.Err("failed to create user library", err, "userID", library.UserID)
	}

	return library, nil
}

func (r *userLibraryRepository) Update(ctx context.Context, library *UserLibrary) error {
	log := r.log.Function("Update")

	if err := r.getDB(ctx).Save(library).Error; err != nil {
		return log.Err("failed to update user library", err, "id", library.ID)
	}

	return nil
}

func (r *userLibraryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	log := r.log.Function("Delete")

	if err := r.getDB(ctx).Delete(&UserLibrary{}, "id = ?", id).Error; err != nil {
		return log.Err("failed to delete user library", err, "id", id)
	}

	return nil
}
