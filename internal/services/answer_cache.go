package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"vaultrag/internal/clearance"
	"vaultrag/internal/models"
)

// cacheKeySeparator joins role and query before hashing. The unit separator
// cannot appear in a role name (closed enum) or survive query normalization,
// so "role+query" pairs can never collide by concatenation ambiguity.
const cacheKeySeparator = "\x1f"

// DeriveCacheKey produces the deterministic, role-bound fingerprint used as
// the answer cache key. The query is case-folded and trimmed first so that
// semantically identical queries collapse to one key. Including the role
// keeps cached answers isolated per clearance boundary.
func DeriveCacheKey(role clearance.Role, query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(string(role) + cacheKeySeparator + normalized))
	return hex.EncodeToString(sum[:])
}

// KeyValueStore is the slice of the shared cache store the answer cache
// needs. RedisService satisfies it; tests use an in-memory fake.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// AnswerCacheService stores answered (never denied) query results in the
// shared key-value store. A store failure on read is treated as a miss, and
// a failed write is logged and swallowed: losing a cache entry costs
// latency, never correctness, because the pipeline recomputes on miss.
type AnswerCacheService struct {
	store KeyValueStore
	ttl   time.Duration
}

// NewAnswerCacheService creates a new answer cache with the given entry TTL.
func NewAnswerCacheService(store KeyValueStore, ttl time.Duration) *AnswerCacheService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AnswerCacheService{store: store, ttl: ttl}
}

// TTL returns the configured entry lifetime.
func (s *AnswerCacheService) TTL() time.Duration {
	return s.ttl
}

// Get looks up a cache entry by key. Returns (nil, false) on miss, expiry,
// or store error. The expiry timestamp is checked even though the store
// carries its own TTL; eviction is not assumed to be exact or immediate.
func (s *AnswerCacheService) Get(ctx context.Context, key string) (*models.CacheEntry, bool) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Printf("⚠️  [CACHE] Read failed, treating as miss: %v", err)
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		log.Printf("⚠️  [CACHE] Corrupt entry for key %s, treating as miss: %v", key, err)
		return nil, false
	}

	if entry.Expired(time.Now()) {
		return nil, false
	}

	return &entry, true
}

// Put stores an answered result under the given key. Failures are logged
// and swallowed; the caller already has the answer in hand.
func (s *AnswerCacheService) Put(ctx context.Context, key string, role clearance.Role, question, answer string, sources []string) {
	entry := models.CacheEntry{
		Key:       key,
		Question:  question,
		Role:      string(role),
		Answer:    answer,
		Sources:   sources,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("⚠️  [CACHE] Failed to marshal entry: %v", err)
		return
	}

	if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
		log.Printf("⚠️  [CACHE] Write failed for key %s: %v", key, err)
	}
}
