package hook

import (
	"context"
	"time"
)

// RegisterBuiltins installs the hooks every deployment ships with.
func RegisterBuiltins(r *Registry) {
	r.Register("ping", func(context.Context, any) (any, error) {
		return "pong", nil
	})
	r.Register("clock", func(context.Context, any) (any, error) {
		return time.Now().UTC().Format(time.RFC3339), nil
	})
}

// NewDefaultRegistry returns a registry with the builtin hooks registered
// and queueable allow-listed.
func NewDefaultRegistry(queueable []string) *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	r.Allow(queueable...)
	return r
}
