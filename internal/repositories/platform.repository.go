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

type PlatformRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Platform, error)
	GetBySlug(ctx context.Context, slug string) (*Platform, error)
	List(ctx context.Context) ([]*Platform, error)
	Create(ctx context.Context, platform *Platform) (*Platform, error)
}

type platformRepository struct {
	db  database.DB
	log logger.Logger
}

func NewPlatformRepository(db database.DB) PlatformRepository {
	return &platformRepository{
		db:  db,
		log: logger.New("platformRepository"),
	}
}

func (r *platformRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextutil.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *platformRepository) GetByID(ctx context.Context, id uuid.UUID) (*Platform, error) {
	log := r.log.Function("GetByID")

	var platform Platform
	if err := r.getDB(ctx).First(&platform, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, log.Err("failed to get platform by ID", err, "id", id)
	}

	return &platform, nil
}

func (r *platformRepository) GetBySlug(ctx context.Context, slug string) (*Platform, error) {
	log := r.log.Function("GetBySlug")

	var platform Platform
	if err := r.getDB(ctx).First(&platform, "slug = ?", slug).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, log.Err("failed to get platform by slug", err, "slug", slug)
	}

	return &platform, nil
}

func (r *platformRepository) List(ctx context.Context) ([]*Platform, error) {
	log := r.log.Function("List")

	var platforms []*Platform
	if err := r.getDB(ctx).Order("name ASC").Find(&platforms).Error; err != nil {
		return nil, log.Err("failed to list platforms", err)
	}

	return platforms, nil
}

func (r *platformRepository) Create(ctx context.Context, platform *Platform) (*Platform, error) {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Create(platform).Error; err != nil {
		return nil, log.Err("failed to create platform", err, "slug", platform.Slug)
	}

	return platform, nil
}
