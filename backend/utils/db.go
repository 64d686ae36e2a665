package utils

import (
	"context"
	"fmt"
	"time"

	"academy/backend/config"
	"academy/backend/models"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	gormutils "gorm.io/gorm/utils"
)

// InitDB opens the configured database. Postgres is the production driver,
// sqlite serves local runs and tests.
func InitDB(cfg *config.Config, logger ...*Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	case "postgres", "":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, errors.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	gormCfg := &gorm.Config{}
	if len(logger) > 0 && logger[0] != nil {
		gormCfg.Logger = NewGormLogger(logger[0])
	} else {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database handle")
	}
	if cfg.DBDriver == "sqlite" {
		// one connection keeps in-memory databases alive and avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(models.All()...), "auto migrate")
}

// GormLogger routes gorm output to the application logger and flags slow queries.
type GormLogger struct {
	log           *Logger
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
}

func NewGormLogger(l *Logger) gormlogger.Interface {
	return &GormLogger{log: l, SlowThreshold: 200 * time.Millisecond, LogLevel: gormlogger.Warn}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.LogLevel = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Info {
		l.log.Info(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Warn {
		l.log.Warn(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Error {
		l.log.Error(fmt.Errorf(msg, data...), "gorm")
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := gormutils.FileWithLineNum()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.LogLevel >= gormlogger.Error:
		l.log.Error(err, "%s | %s | %d rows | %s", file, elapsed, rows, sql)
	case elapsed > l.SlowThreshold && l.LogLevel >= gormlogger.Warn:
		l.log.Warn("slow sql %s | %s | %d rows | %s", file, elapsed, rows, sql)
	case l.LogLevel >= gormlogger.Info:
		l.log.Info("%s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}
