// Package redis connects to Redis for memkeep.
//
// Redis is optional. With SCHEDULER_LOCK_ENABLED the daemon connects to
// REDIS_URL and uses it for the job runner's execution lock, so two replicas
// never run the same scheduled job at once. Connect retries until the server
// answers and Healthcheck plugs into the daemon's backend checks.
package redis
