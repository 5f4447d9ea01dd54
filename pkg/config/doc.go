// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tag parsing). Each configuration type is
// parsed once per process and cached; ResetCache clears the cache in tests.
// Structs implementing Validator are validated before being cached, so a
// rejected configuration is never served from the cache.
//
// Infrastructure packages (pkg/mongo, pkg/pg, pkg/redis, pkg/opensearch) each
// export their own Config struct with env tags; the application composes them.
//
//	var cfg struct {
//		Mongo mongo.Config
//		Redis redis.Config
//	}
//	config.MustLoad(&cfg)
package config
