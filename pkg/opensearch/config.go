package opensearch

// Config holds OpenSearch client settings.
type Config struct {
	Addresses    []string `env:"OPENSEARCH_ADDRESSES" envSeparator:","`
	Username     string   `env:"OPENSEARCH_USERNAME"`
	Password     string   `env:"OPENSEARCH_PASSWORD"`
	MaxRetries   int      `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
	DisableRetry bool     `env:"OPENSEARCH_DISABLE_RETRY" envDefault:"false"`
	IndexPrefix  string   `env:"OPENSEARCH_INDEX_PREFIX" envDefault:"memkeep"` // IndexPrefix namespaces every index the daemon creates.
}

// Enabled reports whether any address is configured.
func (c Config) Enabled() bool {
	return len(c.Addresses) > 0
}

// Index returns the prefixed index name.
func (c Config) Index(name string) string {
	if c.IndexPrefix == "" {
		return name
	}
	return c.IndexPrefix + "-" + name
}
