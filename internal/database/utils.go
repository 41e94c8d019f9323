package database

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Open открывает БД и создает таблицы, если их нет.
func Open(ctx context.Context, driver, dsn string, logger logrus.FieldLogger) (*sqlx.DB, error) {
	logger.Info("OpenDB:>Start")
	defer logger.Info("OpenDB:>End")

	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, errors.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}

	if driver == DriverSQLite {
		// sqlite не переносит параллельную запись, а :memory: живет в одном соединении
		db.SetMaxOpenConns(1)
	}

	err = Migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Infof("%s database is ready", driver)
	return db, nil
}

// Migrate выполняет DDL схемы по одному выражению.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range strings.Split(Schema(db.DriverName()), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return errors.Wrapf(err, "failed to apply schema; query:\n%s", stmt)
		}
	}
	return nil
}
