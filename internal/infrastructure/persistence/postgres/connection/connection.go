package connection

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmedelhadi17776/worklog/pkg/config"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLSTATE codes the repositories translate into domain errors
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Database struct {
	*gorm.DB
	dsn  string
	pool poolSettings
}

type poolSettings struct {
	maxIdle     int
	maxOpen     int
	maxLifetime time.Duration
}

// DSN builds the connection string. STORE_URL takes precedence over discrete settings.
func DSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		sslMode,
	)
	if cfg.Timezone != "" {
		dsn += " TimeZone=" + cfg.Timezone
	}
	return dsn
}

func gormConfig(logQueries bool) *gorm.Config {
	level := logger.Warn
	if logQueries {
		level = logger.Info
	}
	return &gorm.Config{
		Logger:      logger.Default.LogMode(level),
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Reconnect attempts to reconnect to the database if the connection is lost
func (db *Database) Reconnect() error {
	newDB, err := gorm.Open(postgres.Open(db.dsn), gormConfig(false))
	if err != nil {
		return fmt.Errorf("failed to reconnect to database: %w", err)
	}

	db.DB = newDB
	return db.configurePool()
}

func (db *Database) configurePool() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(db.pool.maxIdle)
	sqlDB.SetMaxOpenConns(db.pool.maxOpen)
	sqlDB.SetConnMaxLifetime(db.pool.maxLifetime)
	return nil
}

func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := DSN(cfg.Database)

	// Verify connectivity with a plain driver first so credential errors carry the server detail
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create sql.DB: %w", err)
	}
	defer sqlDB.Close()

	sqlDB.SetConnMaxLifetime(10 * time.Second)
	if err := sqlDB.Ping(); err != nil {
		var sqlErr *pq.Error
		if errors.As(err, &sqlErr) {
			return nil, fmt.Errorf("postgres error: code=%s, message=%s, detail=%s", sqlErr.Code, sqlErr.Message, sqlErr.Detail)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(cfg.Database.LogQueries))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database with GORM: %w", err)
	}

	database := &Database{
		DB:  db,
		dsn: dsn,
		pool: poolSettings{
			maxIdle:     10,
			maxOpen:     100,
			maxLifetime: time.Hour,
		},
	}
	if cfg.Database.MaxIdleConns > 0 {
		database.pool.maxIdle = cfg.Database.MaxIdleConns
	}
	if cfg.Database.MaxOpenConns > 0 {
		database.pool.maxOpen = cfg.Database.MaxOpenConns
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		database.pool.maxLifetime = cfg.Database.ConnMaxLifetime
	}
	if err := database.configurePool(); err != nil {
		return nil, err
	}

	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	if err := pool.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping connection pool: %w", err)
	}

	return database, nil
}

// Ping checks the pool is still usable
func (db *Database) Ping() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close releases the pool
func (db *Database) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsUniqueViolation reports whether err came from a unique constraint or index.
// When constraint is not empty the violated constraint name must match too.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return constraint == "" && errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsForeignKeyViolation reports whether err came from a row referencing a missing parent
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == foreignKeyViolation
	}
	return errors.Is(err, gorm.ErrForeignKeyViolated)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns search text into a LIKE pattern matching it literally
// anywhere. Use it with ILIKE ? ESCAPE '\'.
func ContainsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}
