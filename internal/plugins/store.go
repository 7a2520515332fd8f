package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"

	"arc-framework/launchpad/internal/config"
	"arc-framework/launchpad/internal/health"
	"arc-framework/launchpad/internal/launch"
)

// StoreName is the registry name of the Postgres capability.
const StoreName = "store"

const createLaunchTable = `CREATE TABLE IF NOT EXISTS app_launches (
	id          uuid PRIMARY KEY,
	started_at  timestamptz NOT NULL,
	result      boolean NOT NULL,
	duration_ms bigint NOT NULL,
	steps       jsonb NOT NULL
)`

const insertLaunch = `INSERT INTO app_launches (id, started_at, result, duration_ms, steps)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

// dbConn abstracts the pgxpool.Pool methods used by Store so tests can inject
// a fake without standing up a database.
type dbConn interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// StorePlugin registers the store capability.
type StorePlugin struct {
	cfg config.PostgresConfig
}

// NewStorePlugin returns a plugin backed by the Postgres database in cfg.
func NewStorePlugin(cfg config.PostgresConfig) *StorePlugin {
	return &StorePlugin{cfg: cfg}
}

func (p *StorePlugin) Name() string { return StoreName }

// Register provides a lazily connecting Store capability.
func (p *StorePlugin) Register(r *Registry) {
	r.Provide(StoreName, NewStore(p.cfg, NewCircuitBreaker(StoreName)))
}

// Store records launches in Postgres.
type Store struct {
	cfg     config.PostgresConfig
	cb      *gobreaker.CircuitBreaker
	connect func(ctx context.Context, cfg config.PostgresConfig) (dbConn, error)
}

// NewStore creates a Store that opens a pgx pool per operation. No connection
// is made at construction time.
func NewStore(cfg config.PostgresConfig, cb *gobreaker.CircuitBreaker) *Store {
	return &Store{
		cfg:     cfg,
		cb:      cb,
		connect: realConnect,
	}
}

// Probe pings the Postgres server inside the circuit breaker.
func (s *Store) Probe(ctx context.Context) health.ProbeResult {
	start := time.Now()

	_, err := s.cb.Execute(func() (any, error) {
		pool, err := s.connect(ctx, s.cfg)
		if err != nil {
			return nil, err
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping: %w", err)
		}
		return nil, nil
	})

	latency := time.Since(start).Milliseconds()
	if err != nil {
		return health.ProbeResult{Name: StoreName, OK: false, LatencyMs: latency, Error: breakerMessage(err)}
	}
	return health.ProbeResult{Name: StoreName, OK: true, LatencyMs: latency}
}

// Announce inserts report into app_launches, creating the table on first use.
// Re-announcing the same launch ID is a no-op.
func (s *Store) Announce(ctx context.Context, report *launch.Report) error {
	steps, err := json.Marshal(report.Steps)
	if err != nil {
		return fmt.Errorf("encoding launch steps: %w", err)
	}

	_, err = s.cb.Execute(func() (any, error) {
		pool, err := s.connect(ctx, s.cfg)
		if err != nil {
			return nil, err
		}
		defer pool.Close()

		if _, err := pool.Exec(ctx, createLaunchTable); err != nil {
			return nil, fmt.Errorf("creating app_launches: %w", err)
		}
		if _, err := pool.Exec(ctx, insertLaunch,
			report.ID, report.StartedAt, report.Result, report.DurationMs, steps,
		); err != nil {
			return nil, fmt.Errorf("inserting launch %s: %w", report.ID, err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("store announce: %w", err)
	}
	return nil
}

// realConnect opens a pgxpool.Pool using the provided PostgresConfig.
func realConnect(ctx context.Context, cfg config.PostgresConfig) (dbConn, error) {
	poolCfg, err := pgxpool.ParseConfig(postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}

	return pool, nil
}

// postgresDSN renders cfg as a postgres:// URL. Credentials and the database
// name are escaped, so reserved characters in a password stay in the password.
func postgresDSN(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.DB,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}
