// Package resolver loads the option lists used by relation pickers. Loads
// fail soft: a kind whose list cannot be fetched yields no options instead of
// blocking the form.
package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formsync/internal/logging"
	"github.com/goliatone/go-formsync/pkg/client"
	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/normalize"
)

// Option is one selectable entity.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Lister fetches collection pages. *client.Client satisfies it.
type Lister interface {
	List(ctx context.Context, collection string, query client.PageQuery) (client.Page, error)
}

// OptionFn customises a Resolver.
type OptionFn func(*Resolver)

// WithCacheTTL keeps successful loads for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration) OptionFn {
	return func(r *Resolver) {
		r.ttl = ttl
	}
}

// WithLogger sets the logger used for fail-soft warnings.
func WithLogger(logger logrus.FieldLogger) OptionFn {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver turns collections into picker options.
type Resolver struct {
	lister   Lister
	registry *entity.Registry
	ttl      time.Duration
	cache    *cache.Cache
	logger   logrus.FieldLogger
}

// New creates a resolver over lister using the schemas in registry.
func New(lister Lister, registry *entity.Registry, opts ...OptionFn) *Resolver {
	r := &Resolver{
		lister:   lister,
		registry: registry,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.ttl > 0 {
		// Expired entries are skipped by Get; no janitor goroutine needed.
		r.cache = cache.New(r.ttl, 0)
	}
	return r
}

// LoadOptions returns the options of a kind in server order. Failures are
// logged and yield an empty, non-nil slice.
func (r *Resolver) LoadOptions(ctx context.Context, kind entity.Kind) []Option {
	log := r.logger.WithField("kind", kind)

	if r.cache != nil {
		if cached, ok := r.cache.Get(string(kind)); ok {
			return append([]Option{}, cached.([]Option)...)
		}
	}

	if r.registry == nil || r.lister == nil {
		log.Warn("reference options unavailable: resolver not configured")
		return []Option{}
	}
	schema, err := r.registry.Get(kind)
	if err != nil {
		log.WithError(err).Warn("reference options unavailable")
		return []Option{}
	}

	page, err := r.lister.List(ctx, schema.Endpoint(), client.PageQuery{})
	if err != nil {
		log.WithError(err).Warn("reference options unavailable")
		return []Option{}
	}

	options := make([]Option, 0, len(page.Results))
	for _, raw := range page.Results {
		id := normalize.ID(schema, raw)
		if id == "" {
			continue
		}
		options = append(options, Option{ID: id, Label: schema.OptionLabel(raw)})
	}
	log.WithField("count", len(options)).Debug("reference options loaded")

	if r.cache != nil {
		r.cache.Set(string(kind), append([]Option{}, options...), cache.DefaultExpiration)
	}
	return options
}

// Resolve loads several kinds concurrently. onLoaded runs as each kind
// completes, in completion order and possibly from different goroutines. The
// returned map holds every requested kind once all loads have finished.
func (r *Resolver) Resolve(ctx context.Context, kinds []entity.Kind, onLoaded func(entity.Kind, []Option)) map[entity.Kind][]Option {
	var (
		mu  sync.Mutex
		out = make(map[entity.Kind][]Option, len(kinds))
		g   errgroup.Group
	)
	seen := make(map[entity.Kind]struct{}, len(kinds))
	for _, kind := range kinds {
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}

		g.Go(func() error {
			options := r.LoadOptions(ctx, kind)
			mu.Lock()
			out[kind] = options
			mu.Unlock()
			if onLoaded != nil {
				onLoaded(kind, options)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Invalidate drops cached options of a kind so the next load refetches.
func (r *Resolver) Invalidate(kind entity.Kind) {
	if r.cache != nil {
		r.cache.Delete(string(kind))
	}
}
