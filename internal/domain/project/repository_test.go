package project

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/persistence/postgres/connection/connectiontest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryUpdateDoesNotRecreateMissingProject(t *testing.T) {
	db, mock := connectiontest.New(t)
	mock.ExpectExec(`UPDATE "projects" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewRepository(db).Update(context.Background(), &Project{
		ID:        uuid.New(),
		Name:      "Migration",
		Status:    ProjectStatusInProgress,
		CreatedBy: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestRepositoryNameFilterEscapesWildcards(t *testing.T) {
	db, mock := connectiontest.New(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "projects" WHERE .*name ILIKE \$1 ESCAPE '\\'`).
		WithArgs(`%Q3\_100\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "projects"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	name := "Q3_100%"
	projects, _, err := NewRepository(db).FindAll(context.Background(), ProjectFilter{Name: &name})
	require.NoError(t, err)
	assert.Empty(t, projects)
}
