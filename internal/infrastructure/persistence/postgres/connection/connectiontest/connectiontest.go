// Package connectiontest backs a connection.Database with go-sqlmock so
// repositories can be tested against the SQL they emit.
package connectiontest

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a database on a mocked postgres pool. Expectations are checked
// when the test finishes.
func New(t *testing.T) (*connection.Database, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening sqlmock: %v", err)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("opening gorm: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
		sqlDB.Close()
	})
	return &connection.Database{DB: gormDB}, mock
}
