package constants

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// Redis Cache Configuration
// This file centralizes all Redis cache keys and TTL values for the movie booking service
// Pattern: moviebooking:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

// Static Data (Long TTL: rarely changes)
const (
	TTL_STATIC_SHORT = 6 * time.Hour // 6 hours - for user profiles
)

// Semi-Static Data (Medium TTL: changes occasionally)
const (
	TTL_SEMI_STATIC_SHORT = 1 * time.Hour    // 1 hour - for catalog listings
	TTL_SEMI_STATIC_QUICK = 15 * time.Minute // 15 minutes - for search results
)

// Dynamic Data (Short TTL: changes frequently)
const (
	TTL_DYNAMIC_MEDIUM = 10 * time.Minute // 10 minutes - for statistics
	TTL_DYNAMIC_QUICK  = 2 * time.Minute  // 2 minutes - for availability
)

// Highly Dynamic (Micro TTL: real-time sensitive)
const (
	TTL_REALTIME_SHORT = 30 * time.Second // 30 seconds - for seat maps
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "moviebooking"
)

// ================== MOVIES MODULE ==================

// Movie Cache Keys
const (
	CACHE_KEY_MOVIES_LIST      = CACHE_PREFIX + ":movies:list:all"
	CACHE_KEY_MOVIES_AVAILABLE = CACHE_PREFIX + ":movies:list:available"
	CACHE_KEY_MOVIE_DETAIL     = CACHE_PREFIX + ":movies:detail:pair:" // + movie-slug:theatre-slug
	CACHE_KEY_SEAT_MAP         = CACHE_PREFIX + ":movies:seats:pair:"  // + movie-slug:theatre-slug
)

// Movie Cache TTLs
const (
	TTL_MOVIES_LIST      = TTL_SEMI_STATIC_SHORT // 1 hour
	TTL_MOVIES_AVAILABLE = TTL_DYNAMIC_QUICK     // 2 minutes
	TTL_MOVIE_DETAIL     = TTL_DYNAMIC_QUICK     // 2 minutes
	TTL_SEAT_MAP         = TTL_REALTIME_SHORT    // 30 seconds
)

// ================== ANALYTICS MODULE ==================

// Statistics Cache Keys
const (
	CACHE_KEY_STATS_MOVIES    = CACHE_PREFIX + ":analytics:stats:movies"
	CACHE_KEY_STATS_THEATRES  = CACHE_PREFIX + ":analytics:stats:theatres"
	CACHE_KEY_STATS_USERS     = CACHE_PREFIX + ":analytics:stats:users"
	CACHE_KEY_STATS_DASHBOARD = CACHE_PREFIX + ":analytics:dashboard:admin"
)

// Statistics Cache TTLs
const (
	TTL_STATS_GROUPED   = TTL_DYNAMIC_MEDIUM // 10 minutes
	TTL_STATS_DASHBOARD = TTL_DYNAMIC_MEDIUM // 10 minutes
)

// ================== AUTH MODULE ==================

// Identity Cache Keys
const (
	CACHE_KEY_IDENTITY_BY_LOGIN = CACHE_PREFIX + ":auth:identity:login:" // + login-name
	CACHE_KEY_IDENTITY_BY_ID    = CACHE_PREFIX + ":auth:identity:uuid:"  // + user-id
)

// Identity Cache TTLs
const (
	TTL_IDENTITY = TTL_STATIC_SHORT // 6 hours
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_MOVIE_LISTS = CACHE_PREFIX + ":movies:list:*"
	PATTERN_INVALIDATE_ANALYTICS   = CACHE_PREFIX + ":analytics:*"
)

// ================== HELPER FUNCTIONS ==================

// BuildMovieDetailKey builds the detail key from a pair's CacheKey
// Example: BuildMovieDetailKey("avengers:pvr:1a2b3c4d5e6f") -> "moviebooking:movies:detail:pair:avengers:pvr:1a2b3c4d5e6f"
func BuildMovieDetailKey(pairKey string) string {
	return CACHE_KEY_MOVIE_DETAIL + pairKey
}

func BuildSeatMapKey(pairKey string) string {
	return CACHE_KEY_SEAT_MAP + pairKey
}

func BuildIdentityByLoginKey(loginName string) string {
	return CACHE_KEY_IDENTITY_BY_LOGIN + loginName
}

func BuildIdentityByIDKey(userID string) string {
	return CACHE_KEY_IDENTITY_BY_ID + userID
}

// BuildMovieSearchKey keys a case-insensitive search. The digest keeps queries
// apart that only differ in punctuation.
func BuildMovieSearchKey(kind, query string) string {
	normalized := strings.ToLower(query)
	sum := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%s:movies:list:search:%s:%s:%s", CACHE_PREFIX, kind, slug.Make(normalized), hex.EncodeToString(sum[:6]))
}
