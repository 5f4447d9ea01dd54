package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Validator is implemented by config structs that check their own invariants
// after being parsed from the environment.
type Validator interface {
	Validate() error
}

// configCache stores parsed configuration copies keyed by type name
type configCache struct {
	mu     sync.Mutex
	values map[string]any
}

var (
	globalCache = &configCache{values: make(map[string]any)}

	envFilesMu     sync.Mutex
	envFilesLoaded bool
)

// LoadEnv loads variables from the given .env files (or ".env" when none are
// given) without overriding variables already present in the process
// environment. Missing default .env file is not an error.
func LoadEnv(paths ...string) error {
	envFilesMu.Lock()
	defer envFilesMu.Unlock()

	envFilesLoaded = true
	if len(paths) == 0 {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load parses environment variables into v based on its `env` struct tags.
// Each configuration type is parsed once; later calls receive the cached copy.
// If v implements Validator, Validate runs before the value is cached.
//
//	type SchedulerConfig struct {
//		Workers      int           `env:"SCHEDULER_WORKERS" envDefault:"2"`
//		MisfireGrace time.Duration `env:"SCHEDULER_MISFIRE_GRACE" envDefault:"5m"`
//	}
//
//	var cfg SchedulerConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	envFilesMu.Lock()
	if !envFilesLoaded {
		envFilesLoaded = true
		_ = godotenv.Load()
	}
	envFilesMu.Unlock()

	typeName := typeNameOf[T]()

	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()

	if cached, ok := globalCache.values[typeName]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	if val, ok := any(&parsed).(Validator); ok {
		if err := val.Validate(); err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
	}

	globalCache.values[typeName] = parsed
	*v = parsed
	return nil
}

// MustLoad works like Load but panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// ResetCache drops every cached configuration so the next Load re-parses the
// environment. Intended for tests.
func ResetCache() {
	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()
	globalCache.values = make(map[string]any)
}

func typeNameOf[T any]() string {
	t := reflect.TypeFor[T]()
	return t.PkgPath() + "." + t.String()
}
