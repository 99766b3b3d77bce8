package platform

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
)

// Registry maps platform tags to adapters. Adding a platform means
// registering one more adapter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]repository.IBlogPlatform
}

func NewRegistry(adapters ...repository.IBlogPlatform) *Registry {
	r := &Registry{adapters: make(map[string]repository.IBlogPlatform)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(adapter repository.IBlogPlatform) {
	if adapter == nil {
		return
	}
	tag := strings.ToLower(strings.TrimSpace(adapter.Platform()))
	if tag == "" {
		return
	}
	r.mu.Lock()
	r.adapters[tag] = adapter
	r.mu.Unlock()
}

func (r *Registry) Get(platform string) (repository.IBlogPlatform, error) {
	r.mu.RLock()
	a := r.adapters[strings.ToLower(platform)]
	r.mu.RUnlock()
	if a == nil {
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedPlatform, platform)
	}
	return a, nil
}

func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for tag := range r.adapters {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
