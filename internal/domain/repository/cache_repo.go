package repository

import "time"

// CacheRepository is a thin key-value cache used for resolve read-through
// caching and single-flight locks around matching runs.
type CacheRepository interface {
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	Delete(key string) error
	// SetNX sets the key only if absent; returns true when acquired.
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
}
