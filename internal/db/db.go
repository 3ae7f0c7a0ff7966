package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database described by the DSN, selecting the
// SQLite or PostgreSQL driver from its shape.
func Open(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if isSQLiteDSN(dsn) {
		return gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), gormCfg)
	}
	return gorm.Open(postgres.Open(dsn), gormCfg)
}

// isSQLiteDSN reports whether the DSN addresses a SQLite database.
func isSQLiteDSN(dsn string) bool {
	lowered := strings.ToLower(dsn)
	if strings.HasPrefix(lowered, "sqlite://") || strings.HasPrefix(lowered, "file:") {
		return true
	}
	if strings.Contains(lowered, ":memory:") {
		return true
	}
	return strings.HasSuffix(lowered, ".db") || strings.HasSuffix(lowered, ".sqlite")
}
