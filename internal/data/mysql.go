package data

import (
	"context"
	"fmt"
	"time"

	"Scribeline/internal/conf"
	pkglog "Scribeline/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The call log writes from a single goroutine; a small pool is enough.
const (
	mysqlMaxOpenConns    = 4
	mysqlMaxIdleConns    = 2
	mysqlConnMaxLifetime = time.Hour
	mysqlPingTimeout     = 3 * time.Second
	mysqlSlowThreshold   = 200 * time.Millisecond
)

// NewMySQLClient opens the call log database and migrates ai_call_logs.
// It returns a nil client when no database source is configured.
func NewMySQLClient(c *conf.Data, l log.Logger) (*gorm.DB, func(), error) {
	helper := pkglog.NewLogHelper(l)

	if c == nil || c.Database == nil || c.Database.Source == "" {
		helper.Database("database source is empty, call log disabled")
		return nil, func() {}, nil
	}
	if c.Database.Driver != "" && c.Database.Driver != "mysql" {
		return nil, nil, fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	db, err := gorm.Open(mysql.Open(c.Database.Source), &gorm.Config{
		Logger: logger.New(&gormLogAdapter{helper: helper}, logger.Config{
			SlowThreshold:             mysqlSlowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(mysqlMaxOpenConns)
	sqlDB.SetMaxIdleConns(mysqlMaxIdleConns)
	sqlDB.SetConnMaxLifetime(mysqlConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), mysqlPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := db.AutoMigrate(&AICallLog{}); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to migrate %s: %w", AICallLog{}.TableName(), err)
	}

	helper.Database("call log database ready", "table", AICallLog{}.TableName())

	cleanup := func() {
		helper.Database("closing call log database")
		if err := sqlDB.Close(); err != nil {
			helper.Errorw("msg", "failed to close MySQL", "error", err)
		}
	}
	return db, cleanup, nil
}

// gormLogAdapter routes gorm's slow query and error lines to the database log type.
type gormLogAdapter struct {
	helper *pkglog.LogHelper
}

// Printf implements gorm/logger.Writer interface.
func (g *gormLogAdapter) Printf(format string, v ...interface{}) {
	g.helper.Database(fmt.Sprintf(format, v...))
}
