// Package librariesController manages UserLibrary lifecycle: creation
// against a known platform, listing, patching sync settings, and deletion.
package librariesController

import (
	"context"

	"github.com/gamedjinn/sync/internal/apperr"
	"github.com/gamedjinn/sync/internal/constants"
	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/repositories"
	"github.com/gamedjinn/sync/internal/services"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LibrariesController struct {
	platforms repositories.PlatformRepository
	libraries repositories.UserLibraryRepository
	cs        *services.CatalogService
}

type CreateLibraryInput struct {
	PlatformID     uuid.UUID
	UserIdentifier string
	DisplayName    string
	Credentials    datatypes.JSON
}

type UpdateLibraryInput struct {
	SyncEnabled *bool
	DisplayName *string
}

type LibrariesControllerInterface interface {
	List(ctx context.Context, page, limit int) ([]*UserLibrary, int64, error)
	Create(ctx context.Context, input CreateLibraryInput) (*UserLibrary, error)
	Update(ctx context.Context, libraryID uuid.UUID, input UpdateLibraryInput) (*UserLibrary, error)
	Delete(ctx context.Context, libraryID uuid.UUID) error
}

func New(platforms repositories.PlatformRepository, libraries repositories.UserLibraryRepository, cs *services.CatalogService) LibrariesControllerInterface {
	return &LibrariesController{platforms: platforms, libraries: libraries, cs: cs}
}

func (lc *LibrariesController) List(ctx context.Context, page, limit int) ([]*UserLibrary, int64, error) {
	log := logger.NewWithContext(ctx, "librariesController").Function("List")

	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	libraries, total, err := lc.libraries.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, log.Err("failed to list libraries", err)
	}
	return libraries, total, nil
}

func (lc *LibrariesController) Create(ctx context.Context, input CreateLibraryInput) (*UserLibrary, error) {
	log := logger.NewWithContext(ctx, "librariesController").Function("Create")

	platform, err := lc.platforms.GetByID(ctx, input.PlatformID)
	if err != nil {
		return nil, log.Err("failed to load platform", err, "platformID", input.PlatformID)
	}
	if platform == nil {
		return nil, apperr.NotFound("platform_not_found", "platform not found").
			WithDetails(map[string]any{"platformId": input.PlatformID})
	}

	library := &UserLibrary{
		UserID:         constants.SystemUserID,
		PlatformID:     input.PlatformID,
		UserIdentifier: input.UserIdentifier,
		DisplayName:    input.DisplayName,
		Credentials:    input.Credentials,
		SyncEnabled:    true,
		SyncStatus:     SyncStatusIdle,
	}

	created, err := lc.cs.UpsertLibrary(ctx, library)
	if err != nil {
		return nil, err
	}

	log.Info("library created", "libraryID", created.ID, "platformID", input.PlatformID)
	return created, nil
}

func (lc *LibrariesController) Update(ctx context.Context, libraryID uuid.UUID, input UpdateLibraryInput) (*UserLibrary, error) {
	log := logger.NewWithContext(ctx, "librariesController").Function("Update")

	library, err := lc.libraries.GetByID(ctx, libraryID)
	if err != nil {
		return nil, log.Err("failed to load library", err, "libraryID", libraryID)
	}
	if library == nil {
		return nil, apperr.NotFound("library_not_found", "library not found").WithDetails(map[string]any{"libraryId": libraryID})
	}

	if input.SyncEnabled != nil {
		library.SyncEnabled = *input.SyncEnabled
	}
	if input.DisplayName != nil {
		library.DisplayName = *input.DisplayName
	}

	if err := lc.libraries.Update(ctx, library); err != nil {
		return nil, log.Err("failed to update library", err, "libraryID", libraryID)
	}

	return library, nil
}

func (lc *LibrariesController) Delete(ctx context.Context, libraryID uuid.UUID) error {
	log := logger.NewWithContext(ctx, "librariesController").Function("Delete")

	if err := lc.cs.DeleteLibrary(ctx, libraryID); err != nil {
		return log.Err("failed to delete library", err, "libraryID", libraryID)
	}
	return nil
}
