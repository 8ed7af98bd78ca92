// Package pg stores snapshots in PostgreSQL, one row per key, and announces
// replacements with LISTEN/NOTIFY.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/staffdesk/messenger/internal/config"
	"github.com/staffdesk/messenger/internal/service"
	"github.com/staffdesk/messenger/shared/logger"
)

const notifyChannel = "messenger_snapshots"

const schema = `
CREATE TABLE IF NOT EXISTS messenger_snapshots (
	key        TEXT PRIMARY KEY,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Storage struct {
	db      *sql.DB
	connStr string
}

var (
	_ service.SnapshotStorage = (*Storage)(nil)
	_ service.SnapshotWatcher = (*Storage)(nil)
)

// ConnectionConfig holds database connection pool settings.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LightweightConnectionConfig suits the single-writer snapshot workload.
func LightweightConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

func New(ctx context.Context, cfg config.Pg) (*Storage, error) {
	log := logger.Component("pg_storage")
	log.Info("connecting to db", "host", cfg.Host, "dbname", cfg.Dbname)
	db, err := Connect(ctx, cfg.ConnString(), LightweightConnectionConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}
	log.Info("successfully connected to db")
	return &Storage{db: db, connStr: cfg.ConnString()}, nil
}

// Connect opens a pool and verifies connectivity with a ping.
func Connect(ctx context.Context, connStr string, connCfg ConnectionConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(connCfg.MaxOpenConns)
	db.SetMaxIdleConns(connCfg.MaxIdleConns)
	db.SetConnMaxLifetime(connCfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(connCfg.ConnMaxIdleTime)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// WithTx runs fn in a transaction, rolling back when fn fails.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if transaction is already committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM messenger_snapshots WHERE key = $1`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query snapshot: %w", err)
	}
	return data, true, nil
}

// Put upserts the row and notifies listeners in the same transaction, so a
// notification is only delivered once the new value is visible.
func (s *Storage) Put(ctx context.Context, key string, data []byte) error {
	return WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messenger_snapshots (key, data, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
			key, data)
		if err != nil {
			return fmt.Errorf("failed to upsert snapshot: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, key); err != nil {
			return fmt.Errorf("failed to notify snapshot change: %w", err)
		}
		return nil
	})
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messenger_snapshots WHERE key = $1`, key); err != nil {
			return fmt.Errorf("failed to delete snapshot: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, key); err != nil {
			return fmt.Errorf("failed to notify snapshot change: %w", err)
		}
		return nil
	})
}

// Watch listens on the notification channel and forwards notifications for key.
func (s *Storage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	log := logger.Component("pg_storage")
	listener := pq.NewListener(s.connStr, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Error("snapshot listener event", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				// nil after a reconnect: changes may have been missed.
				if n != nil && n.Extra != key {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}
