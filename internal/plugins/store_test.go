package plugins

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arc-framework/launchpad/internal/config"
	"arc-framework/launchpad/internal/launch"
)

// mockDB implements dbConn for use in tests.
type mockDB struct {
	pingErr error
	execErr map[string]error // keyed by statement prefix
	execs   []string
	args    [][]any
	closed  bool
}

func (m *mockDB) Ping(_ context.Context) error { return m.pingErr }
func (m *mockDB) Close()                       { m.closed = true }

func (m *mockDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.execs = append(m.execs, sql)
	m.args = append(m.args, args)
	for prefix, err := range m.execErr {
		if strings.HasPrefix(sql, prefix) {
			return pgconn.CommandTag{}, err
		}
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

// makeStore returns a Store with a stubbed connect function.
func makeStore(db dbConn, connectErr error, cb *gobreaker.CircuitBreaker) *Store {
	return &Store{
		cfg: config.PostgresConfig{},
		cb:  cb,
		connect: func(_ context.Context, _ config.PostgresConfig) (dbConn, error) {
			return db, connectErr
		},
	}
}

func TestStoreProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pingErr    error
		connectErr error
		wantOK     bool
		wantErrSub string
	}{
		{name: "success: ping ok", wantOK: true},
		{name: "failure: ping error", pingErr: errors.New("connection refused"), wantErrSub: "ping"},
		{name: "failure: connect error", connectErr: errors.New("dial error"), wantErrSub: "dial error"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cb := NewCircuitBreaker("store-" + tc.name)
			var s *Store
			if tc.connectErr != nil {
				s = makeStore(nil, tc.connectErr, cb)
			} else {
				s = makeStore(&mockDB{pingErr: tc.pingErr}, nil, cb)
			}

			r := s.Probe(context.Background())

			assert.Equal(t, StoreName, r.Name)
			assert.Equal(t, tc.wantOK, r.OK)
			if tc.wantErrSub != "" {
				assert.Contains(t, r.Error, tc.wantErrSub)
			}
		})
	}
}

func TestStoreProbe_ClosesPool(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	makeStore(db, nil, NewCircuitBreaker("store-close")).Probe(context.Background())
	assert.True(t, db.closed)
}

func TestStoreAnnounce(t *testing.T) {
	t.Parallel()

	db := &mockDB{}
	s := makeStore(db, nil, NewCircuitBreaker("store-announce"))
	report := &launch.Report{
		ID:         uuid.New(),
		StartedAt:  time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
		Result:     true,
		DurationMs: 12,
		Steps:      []launch.StepRecord{{Name: "maps.configure"}},
	}

	require.NoError(t, s.Announce(context.Background(), report))

	require.Len(t, db.execs, 2)
	assert.True(t, strings.HasPrefix(db.execs[0], "CREATE TABLE IF NOT EXISTS app_launches"))
	assert.True(t, strings.HasPrefix(db.execs[1], "INSERT INTO app_launches"))

	args := db.args[1]
	require.Len(t, args, 5)
	assert.Equal(t, report.ID, args[0])
	assert.Equal(t, report.StartedAt, args[1])
	assert.Equal(t, true, args[2])
	assert.Equal(t, int64(12), args[3])
	assert.JSONEq(t, `[{"name":"maps.configure","order":0,"durationMs":0}]`, string(args[4].([]byte)))
	assert.True(t, db.closed)
}

func TestStoreAnnounce_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		db         *mockDB
		connectErr error
		wantErrSub string
	}{
		{
			name:       "create table fails",
			db:         &mockDB{execErr: map[string]error{"CREATE": errors.New("permission denied")}},
			wantErrSub: "creating app_launches",
		},
		{
			name:       "insert fails",
			db:         &mockDB{execErr: map[string]error{"INSERT": errors.New("disk full")}},
			wantErrSub: "inserting launch",
		},
		{
			name:       "connect fails",
			connectErr: errors.New("dial error"),
			wantErrSub: "dial error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var s *Store
			if tc.connectErr != nil {
				s = makeStore(nil, tc.connectErr, NewCircuitBreaker("store-err-"+tc.name))
			} else {
				s = makeStore(tc.db, nil, NewCircuitBreaker("store-err-"+tc.name))
			}

			err := s.Announce(context.Background(), &launch.Report{ID: uuid.New()})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErrSub)
		})
	}
}

func TestRealConnect_InvalidDSN(t *testing.T) {
	t.Parallel()

	_, err := realConnect(context.Background(), config.PostgresConfig{
		Host: "localhost", Port: 5432, User: "arc", DB: "arc_db", SSLMode: "bogus",
	})
	assert.Error(t, err)
}

func TestPostgresDSN_EscapesReservedCharacters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		user     string
		password string
		db       string
	}{
		{name: "plain", user: "arc", password: "secret", db: "arc_db"},
		{name: "at slash hash", user: "arc", password: "p@ss/w#rd", db: "arc_db"},
		{name: "colon and question mark", user: "ad:min", password: "a:b?c=d&e", db: "arc_db"},
		{name: "percent and space", user: "arc", password: "100% sure ", db: "launch db"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			poolCfg, err := pgxpool.ParseConfig(postgresDSN(config.PostgresConfig{
				Host: "arc-oracle", Port: 5432, User: tc.user, Password: tc.password, DB: tc.db, SSLMode: "disable",
			}))
			require.NoError(t, err)

			cc := poolCfg.ConnConfig
			assert.Equal(t, "arc-oracle", cc.Host)
			assert.Equal(t, uint16(5432), cc.Port)
			assert.Equal(t, tc.user, cc.User)
			assert.Equal(t, tc.password, cc.Password)
			assert.Equal(t, tc.db, cc.Database)
		})
	}
}
