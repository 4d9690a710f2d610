package hook

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/kiranshivaraju/hookqueue/pkg/models"
)

// Handler is one listener in a hook's chain. It receives the output of the
// previous handler (the dispatch input for the first one) and returns the
// value passed on to the next.
type Handler func(ctx context.Context, prev any) (any, error)

// Registry maps hook names to handler chains and tracks which hooks may be
// queued as jobs. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	handlers  map[string][]Handler
	queueable map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:  make(map[string][]Handler),
		queueable: make(map[string]struct{}),
	}
}

// Register appends handlers to the chain for hook.
func (r *Registry) Register(hook string, handlers ...Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[hook] = append(r.handlers[hook], handlers...)
}

// Deregister removes every handler for hook.
func (r *Registry) Deregister(hook string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, hook)
}

// Allow adds hooks to the queueable allow-list.
func (r *Registry) Allow(hooks ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range hooks {
		r.queueable[h] = struct{}{}
	}
}

// Disallow removes hook from the allow-list.
func (r *Registry) Disallow(hook string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.queueable, hook)
}

func (r *Registry) IsQueueable(hook string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.queueable[hook]
	return ok
}

func (r *Registry) HasListener(hook string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[hook]) > 0
}

// Hooks returns the names of all hooks with at least one handler, sorted.
func (r *Registry) Hooks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name, hs := range r.handlers {
		if len(hs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the chain for hook starting from input. The first handler
// error stops the chain. Plain errors come back as job_failed and a panic
// comes back as job_execution_failed.
func (r *Registry) Dispatch(ctx context.Context, hook string, input any) (out any, retErr error) {
	r.mu.RLock()
	chain := append([]Handler(nil), r.handlers[hook]...)
	r.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			slog.Error("hook handler panicked",
				"hook", hook,
				"panic", p,
				"stack", string(debug.Stack()),
			)
			out = nil
			retErr = models.NewJobError(models.CodeJobExecutionFailed,
				fmt.Sprintf("panic in hook %s: %v", hook, p))
		}
	}()

	out = input
	for _, h := range chain {
		var err error
		out, err = h(ctx, out)
		if err != nil {
			return nil, models.AsJobError(err, models.CodeJobFailed)
		}
	}
	return out, nil
}
