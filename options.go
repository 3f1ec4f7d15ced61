package nfthash

import (
	"crypto/rand"
	"io"

	"go.uber.org/zap"
)

// Option is a functional option for configuring expression construction.
type Option func(*config)

type config struct {
	resolver   SetResolver
	seedSource io.Reader
	logger     *zap.Logger
}

func defaultConfig() *config {
	return &config{
		seedSource: rand.Reader,
		logger:     zap.NewNop(),
	}
}

// WithSetResolver sets the resolver used by map variants to find their set.
// Map variants fail with ErrSetResolutionFailed without one.
func WithSetResolver(r SetResolver) Option {
	return func(c *config) {
		c.resolver = r
	}
}

// WithSeedSource sets the random source for auto-generated seeds.
// The default is crypto/rand.
func WithSeedSource(r io.Reader) Option {
	return func(c *config) {
		c.seedSource = r
	}
}

// WithLogger sets the logger used during construction and teardown.
// Evaluation never logs.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
