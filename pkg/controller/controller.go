// Package controller drives one entity screen: a paginated list and at most
// one editing session, re-fetching the current page after mutations.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formsync/internal/logging"
	"github.com/goliatone/go-formsync/pkg/client"
	"github.com/goliatone/go-formsync/pkg/encode"
	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/errs"
	"github.com/goliatone/go-formsync/pkg/form"
)

// DefaultPageSize is the page size of paginated kinds.
const DefaultPageSize = 5

var (
	// ErrLoading is returned when a refresh is suppressed because a list
	// fetch is already outstanding.
	ErrLoading = errors.New("controller: list fetch already in progress")
	// ErrStale is returned when a response arrived after the request was
	// superseded; the response was discarded.
	ErrStale = errors.New("controller: response superseded")
	// ErrPageRange is returned for navigation outside 1..total pages.
	ErrPageRange = errors.New("controller: page out of range")
	// ErrNotEditing is returned by Submit outside the Editing state.
	ErrNotEditing = errors.New("controller: no record is being edited")
	// ErrEditing is returned by Delete while a record is being edited.
	ErrEditing = errors.New("controller: finish editing before deleting")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("controller: closed")
)

// State is the screen state.
type State int

const (
	Listing State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "listing"
}

// API is the transport used by the controller. *client.Client satisfies it.
type API interface {
	List(ctx context.Context, collection string, query client.PageQuery) (client.Page, error)
	Send(ctx context.Context, req encode.Request) (map[string]any, error)
	Delete(ctx context.Context, collection, id string) error
}

// Option customises a Controller.
type Option func(*Controller)

// WithPageSize overrides DefaultPageSize for paginated kinds.
func WithPageSize(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithOptions sets the source of picker options for editing sessions.
func WithOptions(source form.OptionSource) Option {
	return func(c *Controller) {
		c.options = source
	}
}

// WithNotifier sets the notice sink.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithConfirmer sets the delete confirmation prompt. Without one, deletes
// are never confirmed.
func WithConfirmer(confirmer Confirmer) Option {
	return func(c *Controller) {
		c.confirmer = confirmer
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClampAfterDelete moves to the new last page when a delete empties the
// current page and the page no longer exists. Off by default: the page is
// left as-is.
func WithClampAfterDelete(enabled bool) Option {
	return func(c *Controller) {
		c.clampAfterDelete = enabled
	}
}

// Controller is safe for concurrent use. Late list responses are discarded
// unless they belong to the most recent fetch.
type Controller struct {
	schema    entity.Schema
	api       API
	encoder   *encode.Encoder
	options   form.OptionSource
	notifier  Notifier
	confirmer Confirmer
	logger    logrus.FieldLogger

	pageSize         int
	clampAfterDelete bool

	mu         sync.Mutex
	state      State
	session    *form.Session
	items      []map[string]any
	page       int
	totalPages int
	listErr    error
	loading    bool
	generation uint64
	closed     bool
}

// New creates a controller for schema in the Listing state on page 1. No
// fetch is issued until Refresh.
func New(schema entity.Schema, api API, encoder *encode.Encoder, opts ...Option) *Controller {
	c := &Controller{
		schema:   schema,
		api:      api,
		encoder:  encoder,
		notifier: discardNotifier{},
		logger:   logging.Discard(),
		pageSize: DefaultPageSize,
		page:     1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = c.logger.WithField("kind", schema.Kind)
	return c
}

// Schema returns the controlled schema.
func (c *Controller) Schema() entity.Schema { return c.schema }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the editing session, or nil while listing.
func (c *Controller) Session() *form.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Items returns the entities of the current page.
func (c *Controller) Items() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]any(nil), c.items...)
}

// Page returns the 1-based current page.
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// TotalPages returns the page count declared by the last successful fetch.
func (c *Controller) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages
}

// HasPrev is false exactly on page 1.
func (c *Controller) HasPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page > 1
}

// HasNext is false exactly on the last declared page.
func (c *Controller) HasNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page < c.totalPages
}

// Loading reports whether a list fetch is outstanding.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error of the last list fetch. It persists until the next
// successful fetch.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listErr
}

// Refresh re-fetches the current page. It returns ErrLoading without issuing
// a request while another fetch is outstanding.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.loading {
		c.mu.Unlock()
		c.logger.Debug("refresh suppressed while loading")
		return ErrLoading
	}
	gen, page := c.beginFetchLocked(c.page)
	c.mu.Unlock()
	return c.fetch(ctx, gen, page)
}

// GoTo fetches page and replaces the list with it. It supersedes any
// outstanding fetch.
func (c *Controller) GoTo(ctx context.Context, page int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if page < 1 || (c.totalPages > 0 && page > c.totalPages) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrPageRange, page)
	}
	gen, page := c.beginFetchLocked(page)
	c.mu.Unlock()
	return c.fetch(ctx, gen, page)
}

// Next moves to the following page.
func (c *Controller) Next(ctx context.Context) error {
	if !c.HasNext() {
		return fmt.Errorf("%w: no next page", ErrPageRange)
	}
	return c.GoTo(ctx, c.Page()+1)
}

// Prev moves to the preceding page.
func (c *Controller) Prev(ctx context.Context) error {
	if !c.HasPrev() {
		return fmt.Errorf("%w: no previous page", ErrPageRange)
	}
	return c.GoTo(ctx, c.Page()-1)
}

// reload fetches the current page, superseding any outstanding fetch.
func (c *Controller) reload(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	gen, page := c.beginFetchLocked(c.page)
	c.mu.Unlock()
	return c.fetch(ctx, gen, page)
}

func (c *Controller) beginFetchLocked(page int) (uint64, int) {
	c.generation++
	c.loading = true
	return c.generation, page
}

func (c *Controller) fetch(ctx context.Context, gen uint64, page int) error {
	query := client.PageQuery{}
	if c.schema.Paginated {
		query = client.PageQuery{Page: page, Limit: c.pageSize}
	}
	result, err := c.api.List(ctx, c.schema.Endpoint(), query)

	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		c.logger.WithField("page", page).Debug("discarding superseded list response")
		return ErrStale
	}
	c.loading = false
	if err != nil {
		c.listErr = err
		c.mu.Unlock()
		c.notify(LevelError, fmt.Sprintf("Error loading %s list: %v", c.schema.Kind, err), err)
		return err
	}

	c.items = result.Results
	c.page = page
	if c.schema.Paginated && result.Page > 0 {
		c.page = result.Page
	}
	c.totalPages = result.TotalPages
	if !c.schema.Paginated && c.totalPages < 1 {
		c.totalPages = 1
	}
	c.listErr = nil
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"page":        page,
		"total_pages": result.TotalPages,
		"count":       len(result.Results),
	}).Debug("list page loaded")
	return nil
}

// Select enters Editing with the normalized form of raw. An existing
// session is discarded.
func (c *Controller) Select(ctx context.Context, raw map[string]any) (*form.Session, error) {
	session, err := form.Open(ctx, c.schema, raw, c.options)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		session.Close()
		return nil, ErrClosed
	}
	previous := c.session
	c.session = session
	c.state = Editing
	c.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	return session, nil
}

// New enters Editing with a fresh record.
func (c *Controller) New(ctx context.Context) (*form.Session, error) {
	return c.Select(ctx, nil)
}

// Cancel discards the editing session without any network call.
func (c *Controller) Cancel() {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.state = Listing
	c.mu.Unlock()

	if session != nil {
		session.Close()
	}
}

// Submit sends the editing session. On success the session is discarded and
// the current page re-fetched; on failure the controller stays in Editing.
func (c *Controller) Submit(ctx context.Context) (map[string]any, error) {
	c.mu.Lock()
	session := c.session
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if session == nil {
		return nil, ErrNotEditing
	}

	created := session.IsNew()
	out, err := session.Submit(ctx, c.api, c.encoder)
	if err != nil {
		c.notify(LevelError, fmt.Sprintf("Error saving %s: %v", c.schema.Kind, err), err)
		return nil, err
	}

	c.mu.Lock()
	current := c.session == session
	if current {
		c.session = nil
		c.state = Listing
	}
	c.mu.Unlock()
	session.Close()

	verb := "updated"
	if created {
		verb = "created"
	}
	c.notify(LevelInfo, fmt.Sprintf("Successfully %s %s", verb, c.title()), nil)
	c.invalidateOptions()

	if !current {
		return out, nil
	}
	if err := c.reload(ctx); err != nil && !errors.Is(err, ErrStale) {
		c.logger.WithError(err).Warn("refresh after submit failed")
	}
	return out, nil
}

// Delete asks for confirmation, deletes id and re-fetches the current page
// whatever the outcome. A declined confirmation issues no request and
// returns nil. An empty id is rejected before confirmation.
func (c *Controller) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	state, closed := c.state, c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if state != Listing {
		return ErrEditing
	}
	if strings.TrimSpace(id) == "" {
		return errs.Validation("delete "+string(c.schema.Kind), c.schema.Identifier())
	}

	if c.confirmer == nil {
		return nil
	}
	ok, err := c.confirmer.Confirm(ctx, fmt.Sprintf("Are you sure you want to delete this %s?", c.schema.Kind))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	deleteErr := c.api.Delete(ctx, c.schema.Endpoint(), id)
	if deleteErr != nil {
		c.notify(LevelError, fmt.Sprintf("Error deleting %s: %v", c.schema.Kind, deleteErr), deleteErr)
	} else {
		c.notify(LevelInfo, c.title()+" deleted successfully", nil)
		c.invalidateOptions()
	}

	refreshErr := c.reload(ctx)
	if refreshErr == nil && deleteErr == nil && c.clampAfterDelete {
		c.mu.Lock()
		clamp := len(c.items) == 0 && c.totalPages >= 1 && c.page > c.totalPages
		last := c.totalPages
		c.mu.Unlock()
		if clamp {
			refreshErr = c.GoTo(ctx, last)
		}
	}

	if deleteErr != nil {
		return deleteErr
	}
	if errors.Is(refreshErr, ErrStale) {
		return nil
	}
	return refreshErr
}

// Close discards the session and invalidates outstanding fetches.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.generation++
	c.loading = false
	session := c.session
	c.session = nil
	c.state = Listing
	c.mu.Unlock()

	if session != nil {
		session.Close()
	}
}

func (c *Controller) invalidateOptions() {
	if inv, ok := c.options.(interface{ Invalidate(entity.Kind) }); ok {
		inv.Invalidate(c.schema.Kind)
	}
}

func (c *Controller) notify(level Level, message string, err error) {
	c.notifier.Notify(Notice{Level: level, Message: message, Err: err})
}

func (c *Controller) title() string {
	if c.schema.Title != "" {
		return c.schema.Title
	}
	return entity.DefaultLabeler(string(c.schema.Kind))
}
