// Package formsync wires the form synchronization layer from a single
// configuration value: HTTP client, reference resolver, mutation encoder
// and one list/detail controller per entity kind.
package formsync

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formsync/internal/logging"
	"github.com/goliatone/go-formsync/pkg/client"
	"github.com/goliatone/go-formsync/pkg/config"
	"github.com/goliatone/go-formsync/pkg/controller"
	"github.com/goliatone/go-formsync/pkg/encode"
	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/resolver"
)

// Version is reported in the exported OpenAPI document.
const Version = "0.1.0"

// Config aliases config.Config for callers that only import the root
// package.
type Config = config.Config

// Kind aliases entity.Kind.
type Kind = entity.Kind

// Option customises an App.
type Option func(*App)

// WithLogger sets the logger shared by every component.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRegistry replaces the built-in entity registry.
func WithRegistry(registry *entity.Registry) Option {
	return func(a *App) {
		if registry != nil {
			a.registry = registry
		}
	}
}

// WithHTTPClient replaces the transport used by the API client.
func WithHTTPClient(doer client.Doer) Option {
	return func(a *App) {
		a.doer = doer
	}
}

// WithNotifier sets the notifier handed to every controller.
func WithNotifier(n controller.Notifier) Option {
	return func(a *App) {
		a.notifier = n
	}
}

// WithConfirmer sets the delete confirmer handed to every controller.
func WithConfirmer(confirmer controller.Confirmer) Option {
	return func(a *App) {
		a.confirmer = confirmer
	}
}

// WithEncoderOptions forwards options to the mutation encoder.
func WithEncoderOptions(opts ...encode.Option) Option {
	return func(a *App) {
		a.encoderOpts = append(a.encoderOpts, opts...)
	}
}

// App holds the components shared by the controllers of one API.
type App struct {
	cfg         Config
	registry    *entity.Registry
	logger      logrus.FieldLogger
	doer        client.Doer
	notifier    controller.Notifier
	confirmer   controller.Confirmer
	encoderOpts []encode.Option

	client   *client.Client
	resolver *resolver.Resolver
	encoder  *encode.Encoder
}

// New validates cfg and builds the shared components.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		registry: entity.DefaultRegistry(),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}

	clientOpts := []client.Option{
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(app.logger),
	}
	if app.doer != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(app.doer))
	}
	app.client = client.New(cfg.APIURL, clientOpts...)
	app.resolver = resolver.New(app.client, app.registry,
		resolver.WithCacheTTL(cfg.OptionsTTL),
		resolver.WithLogger(app.logger),
	)
	app.encoder = encode.New(cfg.APIURL, app.encoderOpts...)
	return app, nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() Config { return a.cfg }

// Registry returns the entity registry.
func (a *App) Registry() *entity.Registry { return a.registry }

// Client returns the API client.
func (a *App) Client() *client.Client { return a.client }

// Resolver returns the shared reference resolver.
func (a *App) Resolver() *resolver.Resolver { return a.resolver }

// Encoder returns the mutation encoder.
func (a *App) Encoder() *encode.Encoder { return a.encoder }

// Schema looks up a kind in the registry.
func (a *App) Schema(kind Kind) (entity.Schema, error) {
	return a.registry.Get(kind)
}

// Controller builds a list/detail controller for kind. Extra options are
// applied after the app defaults.
func (a *App) Controller(kind Kind, opts ...controller.Option) (*controller.Controller, error) {
	schema, err := a.registry.Get(kind)
	if err != nil {
		return nil, fmt.Errorf("formsync: %w", err)
	}
	base := []controller.Option{
		controller.WithPageSize(a.cfg.PageSize),
		controller.WithOptions(a.resolver),
		controller.WithLogger(a.logger),
		controller.WithClampAfterDelete(a.cfg.ClampAfterDelete),
	}
	if a.notifier != nil {
		base = append(base, controller.WithNotifier(a.notifier))
	}
	if a.confirmer != nil {
		base = append(base, controller.WithConfirmer(a.confirmer))
	}
	return controller.New(schema, a.client, a.encoder, append(base, opts...)...), nil
}

// OpenAPI describes the registered collections as an OpenAPI 3 document.
func (a *App) OpenAPI() *openapi3.T {
	doc := entity.OpenAPI(a.registry, "formsync", Version)
	doc.Servers = openapi3.Servers{{URL: a.cfg.APIURL}}
	return doc
}
