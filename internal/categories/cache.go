// Package categories keeps the process-wide list of known transaction categories.
//
// The list is loaded lazily from a kv.Store, falls back to the ledger on a cold store,
// and only grows. A category becomes visible only after it has been persisted.
package categories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/m3rciful/sheetsbot/core/logger"
	"github.com/m3rciful/sheetsbot/core/telegram/keyboard"
	"github.com/m3rciful/sheetsbot/internal/kv"
)

const (
	// DefaultKey is the store key the list is persisted under.
	DefaultKey = "keyboard"
	// RowSize is the number of buttons per keyboard row.
	RowSize = 3
)

// ErrNoStore is returned when the cache has no backing store.
var ErrNoStore = errors.New("categories: no store configured")

// Source lists the categories already present in the ledger.
type Source interface {
	Categories(ctx context.Context) ([]string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]string, error)

// Categories calls f.
func (f SourceFunc) Categories(ctx context.Context) ([]string, error) { return f(ctx) }

type persisted struct {
	Items []string `json:"items"`
}

// Cache is safe for concurrent use.
type Cache struct {
	store  kv.Store
	source Source
	key    string

	mu    sync.Mutex
	items []string
}

// New returns an empty cache. An empty key selects DefaultKey; source may be nil.
func New(store kv.Store, source Source, key string) *Cache {
	if key == "" {
		key = DefaultKey
	}
	return &Cache{store: store, source: source, key: key}
}

// EnsureInitialized loads the list when it is still empty in memory.
func (c *Cache) EnsureInitialized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked(ctx)
}

func (c *Cache) ensureLocked(ctx context.Context) error {
	if len(c.items) > 0 {
		return nil
	}
	if c.store == nil {
		return ErrNoStore
	}

	start := time.Now()
	items, err := c.load(ctx)
	if err != nil {
		logger.Error(ctx, "cache", "cache.load",
			slog.String("status", "fail"),
			slog.String("key", c.key),
			slog.String("err", err.Error()),
		)
		return err
	}
	if len(items) > 0 {
		c.items = items
		logger.Info(ctx, "cache", "cache.load",
			slog.String("status", "ok"),
			slog.String("source", "store"),
			slog.String("key", c.key),
			slog.Int("items", len(items)),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		return nil
	}

	if c.source == nil {
		return nil
	}
	fresh, err := c.source.Categories(ctx)
	if err != nil {
		logger.Error(ctx, "cache", "cache.refresh",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("categories: refresh from ledger: %w", err)
	}
	fresh = dedupe(fresh)
	if len(fresh) == 0 {
		logger.Info(ctx, "cache", "cache.refresh",
			slog.String("status", "skip"),
			slog.String("reason", "empty"),
		)
		return nil
	}
	if err := c.persist(ctx, fresh); err != nil {
		return err
	}
	c.items = fresh
	logger.Info(ctx, "cache", "cache.refresh",
		slog.String("status", "ok"),
		slog.String("source", "ledger"),
		slog.String("key", c.key),
		slog.Int("items", len(fresh)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

func (c *Cache) load(ctx context.Context) ([]string, error) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("categories: load %q: %w", c.key, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var p persisted
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("categories: decode %q: %w", c.key, err)
	}
	return dedupe(p.Items), nil
}

func (c *Cache) persist(ctx context.Context, items []string) error {
	raw, err := json.Marshal(persisted{Items: items})
	if err != nil {
		return fmt.Errorf("categories: encode: %w", err)
	}
	if err := c.store.Set(ctx, c.key, string(raw)); err != nil {
		logger.Error(ctx, "cache", "cache.persist",
			slog.String("status", "fail"),
			slog.String("key", c.key),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("categories: persist %q: %w", c.key, err)
	}
	return nil
}

// Keyboard returns the categories in rows of RowSize, in insertion order.
func (c *Cache) Keyboard(ctx context.Context) ([][]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(ctx); err != nil {
		return nil, err
	}
	return keyboard.Chunk(c.items, RowSize), nil
}

// Register adds name when it is not known yet. It returns true when the list changed.
// The in-memory list is updated only after the store accepted the new list.
func (c *Cache) Register(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(ctx); err != nil {
		return false, err
	}
	if slices.Contains(c.items, name) {
		return false, nil
	}

	next := make([]string, len(c.items), len(c.items)+1)
	copy(next, c.items)
	next = append(next, name)
	if err := c.persist(ctx, next); err != nil {
		return false, err
	}
	c.items = next
	logger.Info(ctx, "cache", "cache.register",
		slog.String("status", "ok"),
		slog.String("category", name),
		slog.Int("items", len(next)),
	)
	return true, nil
}

// Items returns a copy of the current list.
func (c *Cache) Items() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Seed warms the cache on startup.
func (c *Cache) Seed(ctx context.Context) error {
	return c.EnsureInitialized(ctx)
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
