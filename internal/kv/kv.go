// Package kv defines the string key-value store used to persist small pieces of bot state.
package kv

import "context"

// Store reads and writes string values by key.
type Store interface {
	// Get returns the value stored under key. ok is false when the key does not exist.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Backend names accepted by cache.backend.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)
