package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	storeBackendVar = "ILUMINA_STORE"
	storeDirVar     = "ILUMINA_STORE_DIR"
	storeKeyVar     = "ILUMINA_STORE_KEY"
	redisAddrVar    = "REDIS_ADDR"
)

// Storage backends for the tab-scoped session record
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type StorageConfig interface {
	GetStoreBackend() string
	GetStoreDir() string
	GetStoreKey() string
	GetRedisAddr() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStoreBackend() string {
	switch backend := strings.ToLower(GetEnv(storeBackendVar, StoreFile)); backend {
	case StoreMemory, StoreRedis:
		return backend
	default:
		return StoreFile
	}
}

// GetStoreDir defaults to a per-user cache directory, falling back to the
// working directory when none is available.
func (Storage) GetStoreDir() string {
	if dir := os.Getenv(storeDirVar); dir != "" {
		return dir
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return ".ilumina"
	}
	return filepath.Join(cache, "ilumina")
}

func (Storage) GetStoreKey() string {
	return GetEnv(storeKeyVar, "ilumina.session")
}

func (Storage) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "localhost:6379")
}
