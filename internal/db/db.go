// Package db opens the relational store and runs schema migrations.
package db

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for PostgreSQL
	_ "modernc.org/sqlite"             // register sqlite driver for embedded mode

	"fiber-cms-pg/internal/config"
	"fiber-cms-pg/internal/logx"
)

var dbLogger = logx.GetScope("db")

// Dialects the gateway knows how to speak.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DB wraps *sql.DB with the dialect it was opened against; the store
// layer uses the dialect to rebind placeholders and pick JSON column
// behavior.
type DB struct {
	*sql.DB
	Dialect string
}

var baseDB *sql.DB

// Open connects to PostgreSQL when PG.URL is set, otherwise falls back
// to an embedded sqlite file so the CMS runs with zero external
// services.
func Open(cfg *config.Config) (*DB, func(), error) {
	var (
		sqldb   *sql.DB
		dialect string
		err     error
	)
	if cfg.PG.URL != "" {
		sqldb, err = sql.Open("pgx", cfg.PG.URL)
		dialect = DialectPostgres
	} else {
		sqldb, err = sql.Open("sqlite", cfg.SQLite.Path)
		dialect = DialectSQLite
	}
	if err != nil {
		return nil, func() {}, err
	}
	if dialect == DialectPostgres {
		sqldb.SetMaxOpenConns(cfg.PG.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.PG.MaxIdleConns)
	} else {
		// sqlite serializes writers; more connections only add lock
		// contention.
		sqldb.SetMaxOpenConns(1)
	}
	if err := sqldb.Ping(); err != nil {
		_ = sqldb.Close()
		return nil, func() {}, err
	}
	baseDB = sqldb

	d := &DB{DB: sqldb, Dialect: dialect}
	closer := func() {
		baseDB = nil
		if err := sqldb.Close(); err != nil {
			dbLogger.Sugar().Errorf("close db: %v", err)
		}
	}
	dbLogger.Sugar().Infof("database opened, dialect=%s", dialect)
	return d, closer, nil
}

// UpdatePool updates DB pool settings at runtime.
func UpdatePool(maxOpen, maxIdle int) {
	if baseDB == nil {
		return
	}
	if maxOpen > 0 {
		baseDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		baseDB.SetMaxIdleConns(maxIdle)
	}
}
