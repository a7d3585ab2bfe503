// Package config loads a pool.Config from a YAML file and/or environment
// variables, and can watch that file for credential rotation at runtime.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"mredis/pool"
)

// File is the on-disk/env shape configuration is loaded from, mirroring
// pool.Config's enumerated fields plus the address to dial.
type File struct {
	Address                       string        `koanf:"address"`
	InitialConnectionBackoffDelay time.Duration `koanf:"initial_connection_backoff_delay"`
	ConnectionBackoffFactor       float64       `koanf:"connection_backoff_factor"`
	ConnectionRetryTimeout        time.Duration `koanf:"connection_retry_timeout"`
	MaximumConnectionCount        int           `koanf:"maximum_connection_count"`
	MinimumConnectionCount        int           `koanf:"minimum_connection_count"`
	ConnectionPassword            string        `koanf:"connection_password"`
}

const envPrefix = "MREDIS_"

// Load reads path (a YAML file, if non-empty) and any MREDIS_-prefixed
// environment variables, environment taking precedence, and returns the
// resulting pool.Config (with pool.DefaultConfig's defaults applied).
func Load(path string) (pool.Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return pool.Config{}, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envTransform), nil); err != nil {
		return pool.Config{}, fmt.Errorf("config: loading environment: %w", err)
	}

	var f File
	if err := k.Unmarshal("", &f); err != nil {
		return pool.Config{}, fmt.Errorf("config: unmarshalling: %w", err)
	}

	return pool.DefaultConfig(pool.Config{
		Address:                       f.Address,
		InitialConnectionBackoffDelay: f.InitialConnectionBackoffDelay,
		ConnectionBackoffFactor:       f.ConnectionBackoffFactor,
		ConnectionRetryTimeout:        f.ConnectionRetryTimeout,
		MaximumConnectionCount:        f.MaximumConnectionCount,
		MinimumConnectionCount:        f.MinimumConnectionCount,
		ConnectionPassword:            f.ConnectionPassword,
	}), nil
}

// envTransform maps MREDIS_CONNECTION_PASSWORD to connection_password,
// the key the File struct's koanf tags use.
func envTransform(key, value string) (string, interface{}) {
	return strings.ToLower(strings.TrimPrefix(key, envPrefix)), value
}

// Watch reloads path whenever it changes on disk and calls onPassword
// with the new connection_password field. Watch itself changes nothing
// else: it updates no pool and touches no open connection. Call Close on
// the returned watcher when done; that also ends the reload goroutine.
func Watch(path string, onPassword func(string)) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config: watching %s: %w", path, err)
	}

	go func() {
		for event := range w.Events {
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				continue
			}
			onPassword(cfg.ConnectionPassword)
		}
	}()

	return w, nil
}
