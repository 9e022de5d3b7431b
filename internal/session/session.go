// Package session tracks each user's active tenant selection. The store is
// injected into handlers rather than reached through a global, and observers
// can subscribe to selection changes instead of polling.
package session

import (
	"context"
	"strconv"
	"sync"

	"atelier/internal/cache"
	"atelier/internal/models"

	"github.com/redis/go-redis/v9"
)

// Store holds active-tenant selections. Selections persist in Redis when a
// client is available and fall back to process memory otherwise, so the
// store stays usable in tests and degraded environments.
type Store struct {
	rdb *redis.Client

	mu     sync.RWMutex
	local  map[uint]uint
	subs   map[uint]map[int]chan uint
	nextID int
}

// NewStore returns a Store backed by the given Redis client. rdb may be nil.
func NewStore(rdb *redis.Client) *Store {
	return &Store{
		rdb:   rdb,
		local: make(map[uint]uint),
		subs:  make(map[uint]map[int]chan uint),
	}
}

// ActiveTenant returns the stored selection for the user, if any.
func (s *Store) ActiveTenant(ctx context.Context, userID uint) (uint, bool) {
	if s.rdb != nil {
		val, err := s.rdb.Get(ctx, cache.ActiveTenantKey(userID)).Result()
		if err == nil {
			if id, perr := strconv.ParseUint(val, 10, 64); perr == nil {
				return uint(id), true
			}
		}
		if err != redis.Nil && err != nil {
			// Redis trouble degrades to the in-process copy.
			return s.activeLocal(userID)
		}
		if err == redis.Nil {
			return 0, false
		}
	}
	return s.activeLocal(userID)
}

func (s *Store) activeLocal(userID uint) (uint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.local[userID]
	return id, ok
}

// Select stores the user's active tenant and notifies subscribers.
func (s *Store) Select(ctx context.Context, userID, tenantID uint) error {
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, cache.ActiveTenantKey(userID), strconv.FormatUint(uint64(tenantID), 10), 0).Err(); err != nil {
			return models.NewInternalError(err)
		}
	}

	s.mu.Lock()
	s.local[userID] = tenantID
	chans := make([]chan uint, 0, len(s.subs[userID]))
	for _, ch := range s.subs[userID] {
		chans = append(chans, ch)
	}
	s.mu.Unlock()

	for _, ch := range chans {
		// Drop the stale value if the subscriber has not drained yet.
		select {
		case ch <- tenantID:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- tenantID:
			default:
			}
		}
	}
	return nil
}

// Clear removes the stored selection without notifying subscribers.
func (s *Store) Clear(ctx context.Context, userID uint) {
	if s.rdb != nil {
		s.rdb.Del(ctx, cache.ActiveTenantKey(userID))
	}
	s.mu.Lock()
	delete(s.local, userID)
	s.mu.Unlock()
}

// Subscribe registers for selection changes of one user. The returned cancel
// func must be called to release the channel.
func (s *Store) Subscribe(userID uint) (<-chan uint, func()) {
	ch := make(chan uint, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[int]chan uint)
	}
	s.subs[userID][id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if set, ok := s.subs[userID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(s.subs, userID)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Resolve returns the tenant the user should see as active, given the list
// of tenants they can access. The ladder is: stored selection when still
// accessible, then the default-flagged tenant, then the first accessible
// tenant, then none. A stored selection that is no longer accessible is
// cleared as a side effect.
func (s *Store) Resolve(ctx context.Context, userID uint, accessible []models.Tenant) *models.Tenant {
	if stored, ok := s.ActiveTenant(ctx, userID); ok {
		for i := range accessible {
			if accessible[i].ID == stored {
				return &accessible[i]
			}
		}
		s.Clear(ctx, userID)
	}

	for i := range accessible {
		if accessible[i].IsDefault {
			return &accessible[i]
		}
	}
	if len(accessible) > 0 {
		return &accessible[0]
	}
	return nil
}
