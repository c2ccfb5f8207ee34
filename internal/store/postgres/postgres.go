// Package postgres implements store.LeaseStore on PostgreSQL, for
// deployments where leases must survive a server restart.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/waythor-lab/klock/internal/scheduler"
	"github.com/waythor-lab/klock/internal/store"
	"github.com/waythor-lab/klock/internal/types"
)

// Store is a PostgreSQL-backed LeaseStore. Agent priorities are cached in
// memory after open and kept in sync with every RegisterAgentPriority call,
// mirroring the read-mostly access pattern the scheduler needs on every
// acquire.
type Store struct {
	db         *sqlx.DB
	priorities map[string]uint64
}

// Open connects to dsn, verifies connectivity, and applies pending schema
// migrations before returning.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return New(sqlx.NewDb(sqlDB, "postgres"))
}

// New wraps an already-open *sqlx.DB, loading agent priorities into memory.
func New(db *sqlx.DB) (*Store, error) {
	s := &Store{db: db, priorities: make(map[string]uint64)}
	if err := s.loadPriorities(); err != nil {
		return nil, err
	}
	return s, nil
}

var _ store.LeaseStore = (*Store)(nil)

func (s *Store) loadPriorities() error {
	rows, err := s.db.Queryx("SELECT agent_id, priority FROM agent_priorities")
	if err != nil {
		return fmt.Errorf("load agent priorities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var agentID string
		var priority int64
		if err := rows.Scan(&agentID, &priority); err != nil {
			return fmt.Errorf("scan agent priority: %w", err)
		}
		s.priorities[agentID] = uint64(priority)
	}
	return rows.Err()
}

// RegisterAgentPriority upserts an agent's priority, in the database and in
// the in-memory cache the scheduler reads from.
func (s *Store) RegisterAgentPriority(agentID string, priority uint64) {
	_, _ = s.db.Exec(`
		INSERT INTO agent_priorities (agent_id, priority) VALUES ($1, $2)
		ON CONFLICT (agent_id) DO UPDATE SET priority = EXCLUDED.priority
	`, agentID, int64(priority))
	s.priorities[agentID] = priority
}

// Priorities returns a snapshot copy of the cached priority map.
func (s *Store) Priorities() map[string]uint64 {
	out := make(map[string]uint64, len(s.priorities))
	for k, v := range s.priorities {
		out[k] = v
	}
	return out
}

// Acquire evicts expired leases, consults the Wait-Die scheduler against
// currently active leases, and inserts a new row on Granted.
func (s *Store) Acquire(agentID, sessionID string, resource types.ResourceRef, predicate types.Predicate, ttl, now uint64) types.LeaseResult {
	s.EvictExpired(now)

	active, err := s.ActiveLeasesErr()
	if err != nil {
		return types.LeaseResult{Reason: types.FailureResourceLocked}
	}

	verdict := scheduler.Decide(agentID, predicate, resource, active, s.priorities)

	switch verdict.Status {
	case scheduler.Wait:
		return types.LeaseResult{Reason: types.FailureWait}
	case scheduler.Die:
		return types.LeaseResult{Reason: types.FailureDie, WaitTimeMS: verdict.RetryAfterMS}
	default:
		id := "lease_" + agentID + "_" + uuid.NewString()
		lease := types.NewLease(id, agentID, sessionID, resource, predicate, ttl, now)
		_, err := s.db.Exec(`
			INSERT INTO leases
				(id, agent_id, session_id, resource_type, resource_path, predicate, state, acquired_at, ttl, expires_at, last_heartbeat)
			VALUES ($1, $2, $3, $4, $5, $6, 'ACTIVE', $7, $8, $9, $10)
		`, lease.ID, lease.AgentID, lease.SessionID, lease.Resource.ResourceType.String(), lease.Resource.Path,
			lease.Predicate.String(), int64(lease.AcquiredAt), int64(lease.TTL), int64(lease.ExpiresAt), int64(lease.LastHeartbeat))
		if err != nil {
			return types.LeaseResult{Reason: types.FailureResourceLocked}
		}
		return types.LeaseResult{Success: true, Lease: lease}
	}
}

// Release marks an Active lease Released. A no-op (false) for any other
// state or an unknown id.
func (s *Store) Release(leaseID string) bool {
	res, err := s.db.Exec(`UPDATE leases SET state = 'RELEASED' WHERE id = $1 AND state = 'ACTIVE'`, leaseID)
	if err != nil {
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// Heartbeat slides an Active lease's expiry to now+ttl.
func (s *Store) Heartbeat(leaseID string, now uint64) bool {
	var ttl int64
	err := s.db.Get(&ttl, `SELECT ttl FROM leases WHERE id = $1 AND state = 'ACTIVE'`, leaseID)
	if err != nil {
		return false
	}
	newExpiry := int64(now) + ttl
	res, err := s.db.Exec(`
		UPDATE leases SET last_heartbeat = $1, expires_at = $2 WHERE id = $3 AND state = 'ACTIVE'
	`, int64(now), newExpiry, leaseID)
	if err != nil {
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// ActiveLeases returns every currently Active lease, swallowing query
// errors as an empty slice — callers that need the error should use
// ActiveLeasesErr.
func (s *Store) ActiveLeases() []types.Lease {
	leases, err := s.ActiveLeasesErr()
	if err != nil {
		return nil
	}
	return leases
}

// ActiveLeasesErr is like ActiveLeases but surfaces query failures.
func (s *Store) ActiveLeasesErr() ([]types.Lease, error) {
	rows, err := s.db.Queryx(`
		SELECT id, agent_id, session_id, resource_type, resource_path, predicate, state, acquired_at, ttl, expires_at, last_heartbeat
		FROM leases WHERE state = 'ACTIVE'
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Lease
	for rows.Next() {
		lease, err := scanLeaseRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lease)
	}
	return out, rows.Err()
}

// EvictExpired transitions every Active, past-expiry lease to Expired.
func (s *Store) EvictExpired(now uint64) int {
	res, err := s.db.Exec(`UPDATE leases SET state = 'EXPIRED' WHERE state = 'ACTIVE' AND expires_at < $1`, int64(now))
	if err != nil {
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanLeaseRow(rows *sqlx.Rows) (types.Lease, error) {
	var (
		id, agentID, sessionID, resourceType, resourcePath, predicate, state string
		acquiredAt, ttl, expiresAt, lastHeartbeat                            int64
	)
	if err := rows.Scan(&id, &agentID, &sessionID, &resourceType, &resourcePath, &predicate, &state, &acquiredAt, &ttl, &expiresAt, &lastHeartbeat); err != nil {
		return types.Lease{}, err
	}

	var leaseState types.LeaseState
	switch state {
	case "ACTIVE":
		leaseState = types.Active
	case "EXPIRED":
		leaseState = types.Expired
	case "RELEASED":
		leaseState = types.Released
	case "REVOKED":
		leaseState = types.Revoked
	default:
		return types.Lease{}, errors.New("unrecognized lease state: " + state)
	}

	return types.Lease{
		ID:            id,
		AgentID:       agentID,
		SessionID:     sessionID,
		Resource:      types.ResourceRef{ResourceType: types.ParseResourceType(resourceType), Path: resourcePath},
		Predicate:     types.ParsePredicate(predicate),
		State:         leaseState,
		AcquiredAt:    uint64(acquiredAt),
		TTL:           uint64(ttl),
		ExpiresAt:     uint64(expiresAt),
		LastHeartbeat: uint64(lastHeartbeat),
	}, nil
}
