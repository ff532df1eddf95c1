package utils

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/medveille/veille-backend/model"
)

// GetDBConnection opens the Postgres database configured by DB_DSN, or by
// the discrete DB_HOST/DB_PORT/DB_USER/DB_PASSWORD/DB_NAME variables when
// no DSN is given.
func GetDBConnection() (*gorm.DB, error) {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			os.Getenv("DB_HOST"), os.Getenv("DB_PORT"), os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"), os.Getenv("DB_NAME"),
		)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "fail to connect to database")
	}
	return db, nil
}

// DatabaseSetupAndMigration migrates every table the veille backend owns.
func DatabaseSetupAndMigration(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.Discipline{},
		&model.SubDiscipline{},
		&model.Article{},
		&model.ArticleLike{},
		&model.ArticleRead{},
		&model.ArticleThumbsUp{},
		&model.Subscription{},
		&model.PushToken{},
	)
}

var tempDBCounter int64

// CreateTempDB returns a fresh in-memory sqlite database with the full
// schema migrated, for DB-backed unit tests. Each call gets an isolated
// database; cache=shared keeps the pool's connections on the same one.
func CreateTempDB(t *testing.T) (*gorm.DB, func()) {
	dsn := fmt.Sprintf("file:tempdb%d?mode=memory&cache=shared",
		atomic.AddInt64(&tempDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("fail to open temp db: %v", err)
	}
	if err := DatabaseSetupAndMigration(db); err != nil {
		t.Fatalf("fail to migrate temp db: %v", err)
	}
	cleanup := func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	return db, cleanup
}
