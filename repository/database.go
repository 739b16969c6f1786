package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cppla/miniblog/config"
	"github.com/cppla/miniblog/models"
	"github.com/cppla/miniblog/utils"
)

// Open returns the Store selected by cfg.StoreDriver. SQL drivers are
// connected under the configured retry policy and migrated before use.
func Open(ctx context.Context, cfg config.AppConfig) (Store, error) {
	category := WithDefaultCategory(cfg.DefaultCategory)
	if cfg.StoreDriver == config.DriverFile {
		return OpenFileStore(cfg.DataFile, category)
	}
	db, err := InitDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewGormStore(db, category), nil
}

// InitDatabase connects to the configured SQL database, retrying per
// DB_CONNECT_ATTEMPTS / DB_CONNECT_DELAY, then runs idempotent migrations.
func InitDatabase(ctx context.Context, cfg config.AppConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	gormCfg := &gorm.Config{
		Logger:                                   utils.NewGormLogger(cfg.LogLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	}

	var db *gorm.DB
	policy := utils.RetryPolicy{
		MaxAttempts: cfg.DBConnectAttempts,
		Delay:       cfg.DBConnectDelay,
		Exponential: cfg.DBConnectBackoff,
	}
	err = utils.Retry(ctx, "connect "+cfg.StoreDriver, policy, func() error {
		conn, err := gorm.Open(dialector, gormCfg)
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			_ = sqlDB.Close()
			return err
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}

	configurePool(db, cfg.StoreDriver)

	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	utils.Sugar.Infof("connected to %s store", cfg.StoreDriver)
	return db, nil
}

func dialectorFor(cfg config.AppConfig) (gorm.Dialector, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		dsn := cfg.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
		}
		return postgres.Open(dsn), nil
	case config.DriverMySQL:
		dsn := cfg.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		}
		return mysql.Open(dsn), nil
	case config.DriverSQLite:
		dsn := cfg.DatabaseURI
		if dsn == "" {
			dsn = cfg.DBName + ".db"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("store driver %q has no SQL dialect", cfg.StoreDriver)
	}
}

func configurePool(db *gorm.DB, driver string) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if driver == config.DriverSQLite {
		// single writer
		sqlDB.SetMaxOpenConns(1)
		return
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)
}
