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
	ErrNilPointer    = errors.New("config: nil pointer passed")
	ErrParsingConfig = errors.New("config: failed to parse environment")
)

var (
	mu             sync.RWMutex
	cache          = make(map[string]any)
	defaultEnvOnce sync.Once
)

// Load populates the given struct from environment variables based on its
// `env` tags. A .env file, if present, is loaded once per process. Each
// configuration type is parsed once and cached, so repeated Load calls
// for the same type are cheap and consistent.
func Load[T any](v *T) error {
	defaultEnvOnce.Do(func() {
		// The .env file is optional; absence is not an error.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	key := reflect.TypeOf(*v).String()

	mu.RLock()
	cached, ok := cache[key]
	mu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	mu.Lock()
	defer mu.Unlock()
	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache[key] = *v
	return nil
}

// MustLoad works like Load but panics on failure. Use for configuration
// the application cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load required configuration: %v", err))
	}
}
