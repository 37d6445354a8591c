// Package testdb opens a migrated SQLite database for repository and
// engine tests.
package testdb

import (
	"path/filepath"
	"testing"

	"support-chat-be/internal/model"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/pkg/database"

	"gorm.io/gorm"
)

// Open returns a fresh database file under t.TempDir with every chat table
// migrated. The connection is closed on cleanup.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// Factory is Open wrapped in a repository factory.
func Factory(t testing.TB) unitofwork.RepositoryFactory {
	t.Helper()
	return unitofwork.NewRepositoryFactory(Open(t))
}
