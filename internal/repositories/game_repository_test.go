package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/gamedjinn/sync/internal/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupGameRepoTestDB(t *testing.T) (GameRepository, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)

	repo := NewGameRepository(database.DB{SQL: gormDB})
	return repo, mock
}

func TestGameRepository_List_CountsAndPaginates(t *testing.T) {
	repo, mock := setupGameRepoTestDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "games"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rows := sqlmock.NewRows([]string{"id", "title"}).
		AddRow("11111111-1111-1111-1111-111111111111", "Game A").
		AddRow("22222222-2222-2222-2222-222222222222", "Game B")
	mock.ExpectQuery(`SELECT \* FROM "games"`).WillReturnRows(rows)

	games, total, err := repo.List(context.Background(), 50, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, games, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGameRepository_List_PropagatesCountError(t *testing.T) {
	repo, mock := setupGameRepoTestDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "games"`).WillReturnError(errors.New("db unavailable"))

	_, _, err := repo.List(context.Background(), 50, 0)
	assert.Error(t, err)
}
