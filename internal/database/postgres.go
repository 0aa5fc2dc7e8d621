package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// keepAliveQuery is a no-op issued periodically so idle pooled connections
// are not reclaimed by the server or the hosting platform.
const keepAliveQuery = "SELECT 1"

type PoolOptions struct {
	MaxOpenConns int
}

type PgNotesRepository struct {
	conn *sql.DB
	log  *log.Logger
}

func NewPgNotesRepository(logger *log.Logger, dsn string, opts PoolOptions) (*PgNotesRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// database/sql queues callers beyond MaxOpenConns without a limit
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PgNotesRepository{conn: db, log: logger}, nil
}

func (db *PgNotesRepository) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// KeepAlive runs keepAliveQuery every interval until ctx is done.
func (db *PgNotesRepository) KeepAlive(ctx context.Context, interval time.Duration) {
	keepAlive(ctx, db.log, interval, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, keepAliveQuery)
		return err
	})
}

func keepAlive(ctx context.Context, logger *log.Logger, interval time.Duration, ping func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ping(ctx); err != nil {
				logger.Println("keep-alive:", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (db *PgNotesRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *PgNotesRepository) Stats() sql.DBStats {
	return db.conn.Stats()
}

func wrapQueryError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
