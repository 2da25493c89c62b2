package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/flokiorg/userhub/db/migrations"
	"github.com/flokiorg/userhub/logger"
)

// NewDB opens the sqlite database at uri and runs pending migrations.
// uri may be a plain path or a "file:" URI.
func NewDB(uri string, logDBQueries bool) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if logDBQueries {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	gormDB, err := gorm.Open(sqlite.Open(withPragmas(uri)), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	err = migrations.Migrate(gormDB)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to migrate")
		Stop(gormDB)
		return nil, err
	}

	return gormDB, nil
}

func Stop(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	err = sqlDB.Close()
	if err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

func withPragmas(uri string) string {
	pragmas := "_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL"
	if strings.Contains(uri, "mode=memory") || strings.Contains(uri, ":memory:") {
		pragmas = "_busy_timeout=5000&_foreign_keys=1"
	}
	if strings.Contains(uri, "?") {
		return uri + "&" + pragmas
	}
	return uri + "?" + pragmas
}
