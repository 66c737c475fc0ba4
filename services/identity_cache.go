package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IdentityRef is what a chat remembers about the identity resolved for a
// table, so a later visit can skip the resolution round trip.
type IdentityRef struct {
	UserID    int64
	Kind      SessionState
	UpdatedAt time.Time
}

// IdentityCache stores one IdentityRef per (scope, table).
type IdentityCache interface {
	Get(ctx context.Context, scope, tableID string) (IdentityRef, bool, error)
	Put(ctx context.Context, scope, tableID string, ref IdentityRef) error
	Delete(ctx context.Context, scope, tableID string) error
}

type cacheKey struct {
	scope, tableID string
}

// MemoryIdentityCache keeps references for the lifetime of the process.
type MemoryIdentityCache struct {
	mu   sync.RWMutex
	refs map[cacheKey]IdentityRef
}

func NewMemoryIdentityCache() *MemoryIdentityCache {
	return &MemoryIdentityCache{refs: make(map[cacheKey]IdentityRef)}
}

func (c *MemoryIdentityCache) Get(_ context.Context, scope, tableID string) (IdentityRef, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref, ok := c.refs[cacheKey{scope, tableID}]
	return ref, ok, nil
}

func (c *MemoryIdentityCache) Put(_ context.Context, scope, tableID string, ref IdentityRef) error {
	if ref.UpdatedAt.IsZero() {
		ref.UpdatedAt = time.Now()
	}
	c.mu.Lock()
	c.refs[cacheKey{scope, tableID}] = ref
	c.mu.Unlock()
	return nil
}

func (c *MemoryIdentityCache) Delete(_ context.Context, scope, tableID string) error {
	c.mu.Lock()
	delete(c.refs, cacheKey{scope, tableID})
	c.mu.Unlock()
	return nil
}

// DB is the subset of a pgx pool the Postgres cache needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PGIdentityCache persists references in identity_cache so they survive a
// bot restart.
type PGIdentityCache struct {
	db DB
}

func NewPGIdentityCache(db DB) *PGIdentityCache {
	return &PGIdentityCache{db: db}
}

// EnsureTable creates identity_cache if missing (safety net when migrate was not run).
func (c *PGIdentityCache) EnsureTable(ctx context.Context) error {
	_, err := c.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS identity_cache (
			scope TEXT NOT NULL,
			table_id TEXT NOT NULL,
			user_id BIGINT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('guest','authenticated')),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (scope, table_id)
		)`)
	return err
}

func isRelationNotExist(err error) bool {
	return err != nil && strings.Contains(err.Error(), "identity_cache") && strings.Contains(err.Error(), "does not exist")
}

func (c *PGIdentityCache) Get(ctx context.Context, scope, tableID string) (IdentityRef, bool, error) {
	var (
		ref  IdentityRef
		kind string
	)
	err := c.db.QueryRow(ctx, `
		SELECT user_id, kind, updated_at FROM identity_cache WHERE scope = $1 AND table_id = $2`,
		scope, tableID,
	).Scan(&ref.UserID, &kind, &ref.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return IdentityRef{}, false, nil
		}
		if isRelationNotExist(err) {
			if ensureErr := c.EnsureTable(ctx); ensureErr != nil {
				return IdentityRef{}, false, ensureErr
			}
			return IdentityRef{}, false, nil
		}
		return IdentityRef{}, false, fmt.Errorf("get identity: %w", err)
	}
	ref.Kind = SessionState(kind)
	return ref, true, nil
}

func (c *PGIdentityCache) Put(ctx context.Context, scope, tableID string, ref IdentityRef) error {
	if ref.Kind != StateGuest && ref.Kind != StateAuthenticated {
		return fmt.Errorf("put identity: unsupported kind %q", ref.Kind)
	}
	_, err := c.db.Exec(ctx, `
		INSERT INTO identity_cache (scope, table_id, user_id, kind, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (scope, table_id) DO UPDATE SET user_id = EXCLUDED.user_id, kind = EXCLUDED.kind, updated_at = now()`,
		scope, tableID, ref.UserID, string(ref.Kind),
	)
	if err != nil && isRelationNotExist(err) {
		if ensureErr := c.EnsureTable(ctx); ensureErr != nil {
			return ensureErr
		}
		return c.Put(ctx, scope, tableID, ref)
	}
	if err != nil {
		return fmt.Errorf("put identity: %w", err)
	}
	return nil
}

func (c *PGIdentityCache) Delete(ctx context.Context, scope, tableID string) error {
	_, err := c.db.Exec(ctx, `DELETE FROM identity_cache WHERE scope = $1 AND table_id = $2`, scope, tableID)
	if err != nil && !isRelationNotExist(err) {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}
