// Package client talks to the REST collection endpoints: paginated list,
// create/update with an encoded body, and delete.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formsync/internal/logging"
	"github.com/goliatone/go-formsync/pkg/encode"
	"github.com/goliatone/go-formsync/pkg/errs"
)

// DefaultTimeout bounds every call when the caller's context has no earlier
// deadline.
const DefaultTimeout = 20 * time.Second

const (
	headerRequestID = "X-Request-ID"
	maxResponseSize = 10 << 20
)

// Doer is the subset of *http.Client used by the client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP transport.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithTimeout overrides DefaultTimeout. Zero disables the client-side bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client issues requests against the API rooted at a base URL.
type Client struct {
	baseURL string
	http    Doer
	timeout time.Duration
	logger  logrus.FieldLogger
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PageQuery selects a list page. A zero Page requests the collection
// unpaginated.
type PageQuery struct {
	Page  int
	Limit int
}

// Page is the list envelope returned by the API.
type Page struct {
	Results    []map[string]any `json:"results"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
}

// List fetches one page of a collection.
func (c *Client) List(ctx context.Context, collection string, query PageQuery) (Page, error) {
	op := "list " + collection
	target := c.collectionURL(collection)
	if query.Page > 0 {
		values := url.Values{}
		values.Set("page", strconv.Itoa(query.Page))
		if query.Limit > 0 {
			values.Set("limit", strconv.Itoa(query.Limit))
		}
		target += "?" + values.Encode()
	}

	body, err := c.do(ctx, op, http.MethodGet, target, "", nil)
	if err != nil {
		return Page{}, err
	}
	page, err := decodePage(body)
	if err != nil {
		return Page{}, errs.Decode(op, err)
	}
	if page.Results == nil {
		page.Results = []map[string]any{}
	}
	return page, nil
}

// Send issues an encoded mutation and returns the entity echoed by the
// server. An empty response body yields a nil map.
func (c *Client) Send(ctx context.Context, req encode.Request) (map[string]any, error) {
	op := req.Op
	if op == "" {
		op = strings.ToLower(req.Method) + " " + req.URL
	}
	body, err := c.do(ctx, op, req.Method, req.URL, req.ContentType, req.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := decodeJSON(body, &out); err != nil {
		return nil, errs.Decode(op, err)
	}
	return out, nil
}

// Delete removes an entity. Any non-success status is an error; the response
// body is ignored. An empty id is a validation error and sends nothing.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if strings.TrimSpace(id) == "" {
		return errs.Validation("delete "+collection, "id")
	}
	target := c.collectionURL(collection) + "/" + url.PathEscape(id)
	_, err := c.do(ctx, "delete "+collection, http.MethodDelete, target, "", nil)
	return err
}

func (c *Client) collectionURL(collection string) string {
	return c.baseURL + "/" + strings.Trim(collection, "/")
}

func (c *Client) do(ctx context.Context, op, method, target, contentType string, payload []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errs.Network(op, fmt.Errorf("build request: %w", err))
	}
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log := c.logger.WithFields(logrus.Fields{
		"op":         op,
		"method":     method,
		"url":        target,
		"request_id": requestID,
	})
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return nil, errs.Network(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		log.WithError(err).Debug("reading response failed")
		return nil, errs.Network(op, fmt.Errorf("read response: %w", err))
	}

	log = log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(started),
	})
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		log.Debug("request rejected")
		return nil, errs.Server(op, resp.StatusCode, body)
	}
	log.Debug("request completed")
	return body, nil
}

func decodePage(body []byte) (Page, error) {
	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var results []map[string]any
		if err := decodeJSON(trimmed, &results); err != nil {
			return Page{}, err
		}
		return Page{Results: results, Page: 1, TotalPages: 1}, nil
	}

	var page Page
	if err := decodeJSON(trimmed, &page); err != nil {
		return Page{}, err
	}
	return page, nil
}

func decodeJSON(body []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	return decoder.Decode(target)
}
