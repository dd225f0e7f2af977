package resilience

import "time"

// Config holds circuit breaker settings. Zero fields take the cart values.
type Config struct {
	Threshold         int           // consecutive failures before opening
	ResetTimeout      time.Duration // cool-down before a half-open probe
	HalfOpenSuccesses int           // probe successes needed to close
}

// CartConfig is used for cart reads and mutations.
func CartConfig() Config {
	return Config{Threshold: 5, ResetTimeout: 30 * time.Second, HalfOpenSuccesses: 3}
}

// BrokerConfig trips early: a failing credential endpoint blocks every
// connect, so users should get the error quickly.
func BrokerConfig() Config {
	return Config{Threshold: 3, ResetTimeout: 10 * time.Second, HalfOpenSuccesses: 2}
}

// CatalogConfig trips late; menu reads fall back to the cache.
func CatalogConfig() Config {
	return Config{Threshold: 10, ResetTimeout: time.Minute, HalfOpenSuccesses: 5}
}

func (c Config) withDefaults() Config {
	def := CartConfig()
	if c.Threshold <= 0 {
		c.Threshold = def.Threshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = def.HalfOpenSuccesses
	}
	return c
}
