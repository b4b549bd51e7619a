// Package config loads typed configuration structs from the environment.
//
// Each configuration type is parsed once per process and cached, so
// packages can call Load for their own config without coordinating
// initialization order. A .env file in the working directory is applied
// before the first parse; its absence is not an error.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilConfig      = errors.New("config: nil pointer passed to Load")
	ErrFailedToParse  = errors.New("config: failed to parse environment")
)

var (
	mu           sync.Mutex
	cache        = make(map[string]any)
	dotenvLoaded sync.Once
)

// Load parses environment variables into cfg based on `env` struct tags.
// The first successful parse of each type is cached; later calls for the
// same type return the cached values.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}

	dotenvLoaded.Do(func() {
		// The .env file is a development convenience only.
		_ = godotenv.Load()
	})

	key := reflect.TypeOf(*cfg).String()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := cache[key]; ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrFailedToParse, fmt.Errorf("type %s: %w", key, err))
	}

	cache[key] = *cfg
	return nil
}

// MustLoad is Load that panics on failure, for use during startup where a
// missing required variable should stop the process.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
