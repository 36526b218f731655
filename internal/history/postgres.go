package history

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var schemaSQL = []string{`CREATE TABLE IF NOT EXISTS ccmonitor_history (
	id          BIGSERIAL PRIMARY KEY,
	recorded_at TIMESTAMPTZ NOT NULL,
	event       TEXT NOT NULL,
	entry_id    TEXT NOT NULL,
	function    TEXT NOT NULL,
	kind        TEXT NOT NULL,
	args        JSONB NOT NULL,
	payload     JSONB
)`,
	`CREATE INDEX IF NOT EXISTS ccmonitor_history_function_idx ON ccmonitor_history (function, recorded_at DESC)`,
}

// db is the subset of *pgxpool.Pool the store uses.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Postgres stores records in the ccmonitor_history table.
type Postgres struct {
	db db
}

// OpenPostgres connects to dsn, checks the connection and creates the table
// when missing.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "history database")
	}
	p := &Postgres{db: pool}
	if err := p.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.db.Ping(ctx); err != nil {
		return errors.Wrap(err, "ping history database")
	}
	for _, stmt := range schemaSQL {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "create history table")
		}
	}
	return nil
}

// Append inserts r.
func (p *Postgres) Append(ctx context.Context, r Record) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO ccmonitor_history (recorded_at, event, entry_id, function, kind, args, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.At, r.Event, r.EntryID, r.Function, r.Kind, string(r.Args), string(r.Payload))
	return errors.Wrap(err, "insert history record")
}

// Recent returns up to limit records, newest first.
func (p *Postgres) Recent(ctx context.Context, limit int, function string) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.Query(ctx,
		`SELECT recorded_at, event, entry_id, function, kind, args::text, COALESCE(payload::text, 'null')
		   FROM ccmonitor_history
		  WHERE $1 = '' OR function = $1
		  ORDER BY recorded_at DESC, id DESC
		  LIMIT $2`, function, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query history")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var args, payload string
		if err := rows.Scan(&r.At, &r.Event, &r.EntryID, &r.Function, &r.Kind, &args, &payload); err != nil {
			return nil, errors.Wrap(err, "scan history row")
		}
		r.Args = []byte(args)
		r.Payload = []byte(payload)
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "read history rows")
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
