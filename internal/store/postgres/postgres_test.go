package postgres_test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waythor-lab/klock/internal/store/postgres"
)

func newMockStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery("SELECT agent_id, priority FROM agent_priorities").
		WillReturnRows(sqlmock.NewRows([]string{"agent_id", "priority"}))

	s, err := postgres.New(sqlx.NewDb(db, "postgres"))
	require.NoError(t, err)
	return s, mock
}

func TestRegisterAgentPriorityUpsertsAndCaches(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO agent_priorities").
		WithArgs("agent-a", int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.RegisterAgentPriority("agent-a", 100)

	assert.Equal(t, map[string]uint64{"agent-a": 100}, s.Priorities())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseReportsAffectedRows(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE leases SET state = 'RELEASED'").
		WithArgs("lease_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.True(t, s.Release("lease_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseReturnsFalseWhenNoRowsAffected(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE leases SET state = 'RELEASED'").
		WithArgs("unknown").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.False(t, s.Release("unknown"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveLeasesScansRows(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "agent_id", "session_id", "resource_type", "resource_path",
		"predicate", "state", "acquired_at", "ttl", "expires_at", "last_heartbeat",
	}).AddRow("lease_1", "agent-a", "s1", "FILE", "/a.ts", "MUTATES", "ACTIVE", int64(1000), int64(5000), int64(6000), int64(1000))

	mock.ExpectQuery("SELECT id, agent_id, session_id, resource_type, resource_path, predicate, state, acquired_at, ttl, expires_at, last_heartbeat").
		WillReturnRows(rows)

	leases, err := s.ActiveLeasesErr()
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, "agent-a", leases[0].AgentID)
	assert.Equal(t, uint64(6000), leases[0].ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvictExpiredReturnsAffectedCount(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE leases SET state = 'EXPIRED'").
		WithArgs(int64(5000)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	assert.Equal(t, 3, s.EvictExpired(5000))
	assert.NoError(t, mock.ExpectationsWereMet())
}
