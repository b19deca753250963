// Package websearch is the low-confidence fallback: a small Searcher
// abstraction, a DuckDuckGo Lite client and an optional Redis-backed cache.
package websearch

import (
	"context"
	"errors"
	"time"

	"github.com/Yates-Labs/carebridge/internal/config"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultMaxResults is how many web results the fallback asks for.
const DefaultMaxResults = 3

// DefaultBaseURL is the DuckDuckGo Lite endpoint; the query is appended as q=.
const DefaultBaseURL = "https://lite.duckduckgo.com/lite/"

var (
	ErrSearchFailed = errors.New("web search failed")
	ErrEmptyQuery   = errors.New("search query cannot be empty")
)

// Result holds a single search result. Empty Title or URL mean the provider
// did not supply one.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Searcher returns at most limit results for query, in provider order.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Config holds web search parameters.
type Config struct {
	Enabled    bool
	MaxResults int
	Timeout    time.Duration
	BaseURL    string

	// RedisAddr enables the result cache when set
	RedisAddr string
	CacheTTL  time.Duration
}

// DefaultConfig returns default web search configuration.
// Reads from env vars: WEB_SEARCH_ENABLED, WEB_SEARCH_MAX_RESULTS,
// WEB_SEARCH_TIMEOUT, WEB_SEARCH_BASE_URL, REDIS_ADDR, WEB_SEARCH_CACHE_TTL.
func DefaultConfig() Config {
	return Config{
		Enabled:    config.Bool("WEB_SEARCH_ENABLED", true),
		MaxResults: config.Int("WEB_SEARCH_MAX_RESULTS", DefaultMaxResults),
		Timeout:    config.Duration("WEB_SEARCH_TIMEOUT", 10*time.Second),
		BaseURL:    config.String("WEB_SEARCH_BASE_URL", DefaultBaseURL),
		RedisAddr:  config.String("REDIS_ADDR", ""),
		CacheTTL:   config.Duration("WEB_SEARCH_CACHE_TTL", time.Hour),
	}
}

// New builds the configured searcher. It returns a nil Searcher when web
// search is disabled. The returned function releases the Redis connection.
func New(cfg Config, logger *zap.Logger) (Searcher, func()) {
	if !cfg.Enabled {
		return nil, func() {}
	}
	var s Searcher = NewDuckDuckGo(cfg)
	if cfg.RedisAddr == "" {
		return s, func() {}
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	return NewCachedSearcher(s, rdb, cfg.CacheTTL, logger), func() { _ = rdb.Close() }
}
