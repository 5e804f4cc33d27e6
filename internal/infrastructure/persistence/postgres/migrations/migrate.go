package migrations

import (
	"fmt"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/notification"
	"github.com/ahmedelhadi17776/worklog/internal/domain/profile"
	"github.com/ahmedelhadi17776/worklog/internal/domain/project"
	"github.com/ahmedelhadi17776/worklog/internal/domain/task"
	"github.com/ahmedelhadi17776/worklog/internal/domain/timelog"
	"github.com/ahmedelhadi17776/worklog/internal/infrastructure/persistence/postgres/connection"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrationRecord tracks the migration history
type MigrationRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"not null;unique"`
	Version   int       `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for migration records
func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// constraint is a named table constraint added once
type constraint struct {
	Table string
	Name  string
	DDL   string
}

// Models lists the tables in foreign key order
func Models() []interface{} {
	return []interface{}{
		&profile.Profile{},
		&project.Project{},
		&project.ProjectMember{},
		&task.Task{},
		&timelog.TimeLog{},
		&notification.Notification{},
	}
}

var constraints = []constraint{
	{"profiles", "chk_profiles_role", "CHECK (role IN ('admin', 'project_manager', 'employee'))"},
	{"profiles", "chk_profiles_status", "CHECK (status IN ('active', 'inactive'))"},
	{"projects", "chk_projects_status", "CHECK (status IN ('planned', 'in_progress', 'completed'))"},
	{"projects", "fk_projects_manager", "FOREIGN KEY (manager_id) REFERENCES profiles(id) ON DELETE SET NULL"},
	{"project_members", "fk_project_members_project", "FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE"},
	{"project_members", "fk_project_members_user", "FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE"},
	{"tasks", "chk_tasks_status", "CHECK (status IN ('to_do', 'in_progress', 'completed', 'on_hold'))"},
	{"tasks", "chk_tasks_priority", "CHECK (priority IN ('low', 'medium', 'high'))"},
	{"tasks", "fk_tasks_project", "FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE"},
	{"tasks", "fk_tasks_assignee", "FOREIGN KEY (assigned_to) REFERENCES profiles(id) ON DELETE SET NULL"},
	{"tasks", "fk_tasks_creator", "FOREIGN KEY (created_by) REFERENCES profiles(id) ON DELETE CASCADE"},
	{"time_logs", "chk_time_logs_approval", "CHECK (approval_status IN ('pending', 'approved', 'rejected'))"},
	{"time_logs", "chk_time_logs_source", "CHECK (source IN ('timer', 'manual'))"},
	{"time_logs", "chk_time_logs_interval", "CHECK (end_time IS NULL OR end_time >= start_time)"},
	{"time_logs", "fk_time_logs_user", "FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE"},
	{"time_logs", "fk_time_logs_task", "FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE"},
	{"time_logs", "fk_time_logs_project", "FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE SET NULL"},
	{"notifications", "chk_notifications_type", "CHECK (type IN ('task_assignment', 'deadline_reminder', 'status_change', 'approval_request'))"},
	{"notifications", "fk_notifications_user", "FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE"},
}

// indexes GORM tags cannot express
var indexes = []string{
	fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON time_logs (user_id) WHERE end_time IS NULL", timelog.ActiveTimerIndex),
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *connection.Database, logger *zap.Logger) error {
	logger.Info("Starting automatic database migration...")

	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		logger.Error("Failed to create migrations table", zap.Error(err))
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var lastVersion int
		if err := tx.Model(&MigrationRecord{}).Select("COALESCE(MAX(version), 0)").Scan(&lastVersion).Error; err != nil {
			return fmt.Errorf("failed to get last version: %w", err)
		}
		next := func() int {
			lastVersion++
			return lastVersion
		}

		for _, model := range Models() {
			name := fmt.Sprintf("%T", model)
			if err := tx.AutoMigrate(model); err != nil {
				logger.Error("Failed to migrate model", zap.String("model", name), zap.Error(err))
				return fmt.Errorf("failed to migrate %s: %w", name, err)
			}
			if err := record(tx, name, next, logger); err != nil {
				return err
			}
		}

		for _, c := range constraints {
			if err := addConstraint(tx, c); err != nil {
				logger.Error("Failed to add constraint", zap.String("constraint", c.Name), zap.Error(err))
				return err
			}
			if err := record(tx, c.Name, next, logger); err != nil {
				return err
			}
		}

		for _, ddl := range indexes {
			if err := tx.Exec(ddl).Error; err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}
		if err := record(tx, timelog.ActiveTimerIndex, next, logger); err != nil {
			return err
		}

		logger.Info("Database migration completed successfully")
		return nil
	})
}

func addConstraint(tx *gorm.DB, c constraint) error {
	var exists bool
	err := tx.Raw("SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)", c.Name).Scan(&exists).Error
	if err != nil {
		return fmt.Errorf("failed to look up constraint %s: %w", c.Name, err)
	}
	if exists {
		return nil
	}
	if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s", c.Table, c.Name, c.DDL)).Error; err != nil {
		return fmt.Errorf("failed to add constraint %s: %w", c.Name, err)
	}
	return nil
}

// record stores name in the history unless it is already there
func record(tx *gorm.DB, name string, next func() int, logger *zap.Logger) error {
	var count int64
	if err := tx.Model(&MigrationRecord{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	if count > 0 {
		return nil
	}
	rec := MigrationRecord{Name: name, Version: next(), AppliedAt: time.Now()}
	if err := tx.Create(&rec).Error; err != nil {
		logger.Error("Failed to record migration", zap.String("name", name), zap.Error(err))
		return fmt.Errorf("failed to record migration for %s: %w", name, err)
	}
	logger.Info("Applied new migration", zap.String("name", name), zap.Int("version", rec.Version))
	return nil
}

// GetMigrationHistory returns the history of applied migrations
func GetMigrationHistory(db *connection.Database) ([]MigrationRecord, error) {
	var records []MigrationRecord
	err := db.Order("version ASC").Find(&records).Error
	return records, err
}
