package gate

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/rentledger/rentledger/internal/models"
)

// DBResolver loads a user's role permissions from the database.
type DBResolver struct {
	db *gorm.DB
}

func NewDBResolver(db *gorm.DB) *DBResolver { return &DBResolver{db: db} }

func (r *DBResolver) Resolve(ctx context.Context, userID uint) ([]Permission, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Role").First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return ParseList(user.Role.Permissions), nil
}

// CachedResolver wraps a Resolver with TTL-based caching so authorization
// checks do not hit the database on every request.
type CachedResolver struct {
	inner Resolver
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[uint]cacheEntry
}

type cacheEntry struct {
	perms     []Permission
	expiresAt time.Time
}

// NewCachedResolver wraps a resolver with caching; ttl controls how long
// resolved permissions are kept before re-fetching.
func NewCachedResolver(inner Resolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{inner: inner, ttl: ttl, cache: make(map[uint]cacheEntry)}
}

func (r *CachedResolver) Resolve(ctx context.Context, userID uint) ([]Permission, error) {
	r.mu.RLock()
	entry, ok := r.cache[userID]
	r.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.perms, nil
	}

	perms, err := r.inner.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[userID] = cacheEntry{perms: perms, expiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()
	return perms, nil
}

// Invalidate removes a user from the cache. Call when their role changes.
func (r *CachedResolver) Invalidate(userID uint) {
	r.mu.Lock()
	delete(r.cache, userID)
	r.mu.Unlock()
}

// InvalidateAll clears the cache. Call when role permissions are edited.
func (r *CachedResolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[uint]cacheEntry)
	r.mu.Unlock()
}

// StaticResolver is an in-memory resolver for tests and static setups.
type StaticResolver struct {
	perms map[uint][]Permission
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{perms: make(map[uint][]Permission)}
}

// Set assigns permissions to a user id.
func (r *StaticResolver) Set(userID uint, perms ...Permission) {
	r.perms[userID] = perms
}

func (r *StaticResolver) Resolve(_ context.Context, userID uint) ([]Permission, error) {
	return r.perms[userID], nil
}
