package repositories

import (
	"github.com/gamedjinn/sync/internal/database"
)

type Repository struct {
	Platform      PlatformRepository
	UserLibrary   UserLibraryRepository
	Game          GameRepository
	UserGame      UserGameRepository
	Achievement   AchievementRepository
	GameMatch     GameMatchRepository
	SyncOperation SyncOperationRepository
}

func New(db database.DB) Repository {
	return Repository{
		Platform:      NewPlatformRepository(db),
		UserLibrary:   NewUserLibraryRepository(db),
		Game:          NewGameRepository(db),
		UserGame:      NewUserGameRepository(db),
		Achievement:   NewAchievementRepository(db),
		GameMatch:     NewGameMatchRepository(db),
		SyncOperation: NewSyncOperationRepository(db),
	}
}
