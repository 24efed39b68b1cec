package controllers

import (
	"github.com/gamedjinn/sync/internal/repositories"
	"github.com/gamedjinn/sync/internal/services"

	gamesController "github.com/gamedjinn/sync/internal/controllers/games"
	librariesController "github.com/gamedjinn/sync/internal/controllers/libraries"
	platformsController "github.com/gamedjinn/sync/internal/controllers/platforms"
	syncController "github.com/gamedjinn/sync/internal/controllers/sync"
)

type Controllers struct {
	Sync      syncController.SyncControllerInterface
	Libraries librariesController.LibrariesControllerInterface
	Platforms platformsController.PlatformsControllerInterface
	Games     gamesController.GamesControllerInterface
}

func New(
	repos repositories.Repository,
	cs *services.CatalogService,
	jq *services.JobQueueService,
	ss *services.SyncStateService,
	pt *services.ProgressTrackerService,
) Controllers {
	return Controllers{
		Sync:      syncController.New(repos.UserLibrary, jq, ss, pt),
		Libraries: librariesController.New(repos.Platform, repos.UserLibrary, cs),
		Platforms: platformsController.New(repos.Platform),
		Games:     gamesController.New(repos.Game, cs),
	}
}
