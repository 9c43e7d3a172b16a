package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/notjira/internal/config"
)

const notifyChannel = "board_changes"

// PostgresStore backs the document store with a jsonb table. Merge uses jsonb
// concatenation, Increment goes through the board_increment SQL function
// (single row-locked statement, hence atomic), and snapshot pushes ride
// LISTEN/NOTIFY on the board_changes channel.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore establishes a connection pool from the configured DSN.
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN required for the postgres store backend")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// PoolHandle returns the underlying pgx pool, used by the migration runner.
func (p *PostgresStore) PoolHandle() *pgxpool.Pool {
	return p.pool
}

func (p *PostgresStore) Put(ctx context.Context, collection, key string, value any) error {
	doc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	const query = `
        INSERT INTO board_documents (collection, key, doc)
        VALUES ($1, $2, $3)
        ON CONFLICT (collection, key) DO UPDATE SET doc = EXCLUDED.doc`
	if _, err := p.pool.Exec(ctx, query, collection, key, doc); err != nil {
		return err
	}
	return p.notify(ctx, collection)
}

func (p *PostgresStore) Get(ctx context.Context, collection, key string, dest any) error {
	const query = `SELECT doc FROM board_documents WHERE collection=$1 AND key=$2`
	var doc []byte
	if err := p.pool.QueryRow(ctx, query, collection, key).Scan(&doc); err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(doc, dest)
}

func (p *PostgresStore) Merge(ctx context.Context, collection, key string, fields map[string]any) error {
	doc, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	const query = `
        INSERT INTO board_documents (collection, key, doc)
        VALUES ($1, $2, $3)
        ON CONFLICT (collection, key) DO UPDATE SET doc = board_documents.doc || EXCLUDED.doc`
	if _, err := p.pool.Exec(ctx, query, collection, key, doc); err != nil {
		return err
	}
	return p.notify(ctx, collection)
}

func (p *PostgresStore) Increment(ctx context.Context, collection, key string, deltas map[string]int64) error {
	payload, err := json.Marshal(deltas)
	if err != nil {
		return fmt.Errorf("encode deltas: %w", err)
	}
	if _, err := p.pool.Exec(ctx, `SELECT board_increment($1, $2, $3)`, collection, key, payload); err != nil {
		return err
	}
	return p.notify(ctx, collection)
}

func (p *PostgresStore) Delete(ctx context.Context, collection, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM board_documents WHERE collection=$1 AND key=$2`, collection, key); err != nil {
		return err
	}
	return p.notify(ctx, collection)
}

type postgresSubscription struct {
	ch     chan Snapshot
	cancel context.CancelFunc
	once   sync.Once
}

func (s *postgresSubscription) Snapshots() <-chan Snapshot { return s.ch }

func (s *postgresSubscription) Close() {
	s.once.Do(s.cancel)
}

func (p *PostgresStore) Subscribe(ctx context.Context, collection string) (Subscription, error) {
	subCtx, cancel := context.WithCancel(context.Background())

	conn, err := p.pool.Acquire(subCtx)
	if err != nil {
		cancel()
		return nil, err
	}
	if _, err := conn.Exec(subCtx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		cancel()
		return nil, err
	}

	sub := &postgresSubscription{
		ch:     make(chan Snapshot, 16),
		cancel: cancel,
	}

	go func() {
		defer close(sub.ch)
		defer conn.Release()
		deliver := func() {
			snap, err := p.snapshot(subCtx, collection)
			if err != nil {
				if subCtx.Err() == nil {
					p.logger.Warn("snapshot read failed", zap.String("collection", collection), zap.Error(err))
				}
				return
			}
			select {
			case sub.ch <- snap:
			case <-subCtx.Done():
			}
		}
		deliver()
		for {
			notification, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				return
			}
			if notification.Payload == collection {
				deliver()
			}
		}
	}()

	return sub, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) notify(ctx context.Context, collection string) error {
	_, err := p.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection)
	return err
}

func (p *PostgresStore) snapshot(ctx context.Context, collection string) (Snapshot, error) {
	rows, err := p.pool.Query(ctx, `SELECT key, doc FROM board_documents WHERE collection=$1`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := Snapshot{}
	for rows.Next() {
		var key string
		var doc []byte
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, err
		}
		snap[key] = json.RawMessage(doc)
	}
	return snap, rows.Err()
}
