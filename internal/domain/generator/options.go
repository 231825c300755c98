package generator

import (
	"io"
	"strings"
	"time"
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSourceName sets the provenance source name. Blank names keep DefaultSourceName.
func WithSourceName(name string) Option {
	return func(g *Generator) {
		if strings.TrimSpace(name) != "" {
			g.sourceName = name
		}
	}
}

// WithClock sets the function used to read the generation instant.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithEntropy sets the reader identifiers are minted from. Defaults to crypto/rand.
func WithEntropy(r io.Reader) Option {
	return func(g *Generator) {
		if r != nil {
			g.entropy = r
		}
	}
}
