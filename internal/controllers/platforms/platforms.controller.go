// Package platformsController exposes the registered storefront integrations
// (spec's PA roster) over HTTP.
package platformsController

import (
	"context"

	"github.com/gamedjinn/sync/internal/logger"
	. "github.com/gamedjinn/sync/internal/models"
	"github.com/gamedjinn/sync/internal/repositories"
)

type PlatformsController struct {
	platforms repositories.PlatformRepository
}

type PlatformsControllerInterface interface {
	List(ctx context.Context) ([]*Platform, error)
}

func New(platforms repositories.PlatformRepository) PlatformsControllerInterface {
	return &PlatformsController{platforms: platforms}
}

func (pc *PlatformsController) List(ctx context.Context) ([]*Platform, error) {
	log := logger.NewWithContext(ctx, "platformsController").Function("List")

	platforms, err := pc.platforms.List(ctx)
	if err != nil {
		return nil, log.Err("failed to list platforms", err)
	}
	return platforms, nil
}
