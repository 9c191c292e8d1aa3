package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// RecordedRequest captures one request received by Server.
type RecordedRequest struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	Body        []byte
	// Form holds multipart text parts by name, in arrival order.
	Form map[string][]string
	// Files maps multipart file part names to their filenames.
	Files map[string]string
	// JSON holds the decoded body of JSON requests.
	JSON map[string]any
}

type population struct {
	field      string
	collection string
}

type failure struct {
	method     string
	collection string
	status     int
	body       string
}

// Server is an in-memory stand-in for the REST API. Collections are created
// on first use, identifiers are assigned on create, and lists honour
// page/limit with the {results, page, total_pages} envelope.
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	collections map[string][]map[string]any
	populate    map[string][]population
	failures    []failure
	requests    []RecordedRequest
	nextID      int
}

// NewServer starts a server. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		collections: make(map[string][]map[string]any),
		populate:    make(map[string][]population),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// URL returns the API base URL.
func (s *Server) URL() string { return s.srv.URL }

// Close stops the server.
func (s *Server) Close() { s.srv.Close() }

// Seed appends entities to a collection, assigning identifiers to entries
// without one.
func (s *Server) Seed(collection string, items ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		entity := cloneMap(item)
		if _, ok := entity["_id"]; !ok {
			entity["_id"] = s.newIDLocked(collection)
		}
		s.collections[collection] = append(s.collections[collection], entity)
	}
}

// Populate embeds the referenced entity of collection in field when listing
// owner, the way a server populates relations.
func (s *Server) Populate(owner, field, collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.populate[owner] = append(s.populate[owner], population{field: field, collection: collection})
}

// FailNext makes the next request matching method and collection respond
// with status and body.
func (s *Server) FailNext(method, collection string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, collection: collection, status: status, body: body})
}

// Items returns a copy of a collection.
func (s *Server) Items(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.collections[collection]))
	for _, item := range s.collections[collection] {
		out = append(out, cloneMap(item))
	}
	return out
}

// Requests returns the recorded requests in arrival order.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request matching method.
func (s *Server) LastRequest(method string) (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Method == method {
			return s.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	recorded, err := record(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	collection := segments[0]
	id := ""
	if len(segments) > 1 {
		id = segments[1]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, recorded)

	if fail, ok := s.takeFailureLocked(r.Method, collection); ok {
		writeRaw(w, fail.status, fail.body)
		return
	}

	switch {
	case r.Method == http.MethodGet && id == "":
		s.listLocked(w, r, collection)
	case r.Method == http.MethodPost && id == "":
		entity := payloadOf(recorded)
		entity["_id"] = s.newIDLocked(collection)
		s.collections[collection] = append(s.collections[collection], entity)
		writeJSON(w, http.StatusCreated, entity)
	case r.Method == http.MethodPatch && id != "":
		index := s.indexLocked(collection, id)
		if index < 0 {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		for key, value := range payloadOf(recorded) {
			s.collections[collection][index][key] = value
		}
		writeJSON(w, http.StatusOK, s.collections[collection][index])
	case r.Method == http.MethodDelete && id != "":
		index := s.indexLocked(collection, id)
		if index < 0 {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		items := s.collections[collection]
		s.collections[collection] = append(items[:index:index], items[index+1:]...)
		writeJSON(w, http.StatusOK, map[string]any{})
	default:
		w.Header().Set("Allow", "GET, POST, PATCH, DELETE")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": http.StatusText(http.StatusMethodNotAllowed)})
	}
}

func (s *Server) listLocked(w http.ResponseWriter, r *http.Request, collection string) {
	items := s.collections[collection]
	page := parseInt(r.URL.Query().Get("page"))
	limit := parseInt(r.URL.Query().Get("limit"))

	totalPages := 1
	window := items
	if page > 0 && limit > 0 {
		totalPages = int(math.Ceil(float64(len(items)) / float64(limit)))
		start := (page - 1) * limit
		end := start + limit
		switch {
		case start >= len(items):
			window = nil
		case end > len(items):
			window = items[start:]
		default:
			window = items[start:end]
		}
	} else {
		page = 1
	}

	results := make([]map[string]any, 0, len(window))
	for _, item := range window {
		results = append(results, s.expandLocked(collection, item))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":     results,
		"page":        page,
		"total_pages": totalPages,
	})
}

func (s *Server) expandLocked(owner string, item map[string]any) map[string]any {
	out := cloneMap(item)
	for _, pop := range s.populate[owner] {
		switch value := out[pop.field].(type) {
		case string:
			if index := s.indexLocked(pop.collection, value); index >= 0 {
				out[pop.field] = cloneMap(s.collections[pop.collection][index])
			}
		case []any:
			expanded := make([]any, 0, len(value))
			for _, ref := range value {
				id, _ := ref.(string)
				if index := s.indexLocked(pop.collection, id); index >= 0 {
					expanded = append(expanded, cloneMap(s.collections[pop.collection][index]))
					continue
				}
				expanded = append(expanded, ref)
			}
			out[pop.field] = expanded
		}
	}
	return out
}

func (s *Server) takeFailureLocked(method, collection string) (failure, bool) {
	for i, fail := range s.failures {
		if fail.method == method && fail.collection == collection {
			s.failures = append(s.failures[:i:i], s.failures[i+1:]...)
			return fail, true
		}
	}
	return failure{}, false
}

func (s *Server) indexLocked(collection, id string) int {
	for i, item := range s.collections[collection] {
		if fmt.Sprint(item["_id"]) == id {
			return i
		}
	}
	return -1
}

func (s *Server) newIDLocked(collection string) string {
	s.nextID++
	return collection + "-" + strconv.Itoa(s.nextID)
}

func record(r *http.Request) (RecordedRequest, error) {
	out := RecordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		ContentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return out, nil
	}

	mediaType, _, _ := mime.ParseMediaType(out.ContentType)
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return out, err
		}
		out.Form = make(map[string][]string, len(r.MultipartForm.Value))
		for key, values := range r.MultipartForm.Value {
			out.Form[key] = append([]string(nil), values...)
		}
		out.Files = make(map[string]string, len(r.MultipartForm.File))
		for key, headers := range r.MultipartForm.File {
			if len(headers) > 0 {
				out.Files[key] = headers[0].Filename
			}
		}
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return out, err
		}
		out.Body = body
		if len(body) > 0 && mediaType == "application/json" {
			if err := json.Unmarshal(body, &out.JSON); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// payloadOf converts a recorded body into an entity. Repeated multipart
// parts become arrays; uploaded files set "<part>_path" when the form carries
// that field and "<part>" otherwise.
func payloadOf(req RecordedRequest) map[string]any {
	if req.JSON != nil {
		out := cloneMap(req.JSON)
		delete(out, "_id")
		return out
	}

	out := make(map[string]any, len(req.Form)+len(req.Files))
	keys := make([]string, 0, len(req.Form))
	for key := range req.Form {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == "_id" {
			continue
		}
		values := req.Form[key]
		if len(values) == 1 {
			out[key] = values[0]
			continue
		}
		list := make([]any, 0, len(values))
		for _, value := range values {
			list = append(list, value)
		}
		out[key] = list
	}
	for part, filename := range req.Files {
		target := part
		if _, ok := req.Form[part+"_path"]; ok {
			target = part + "_path"
		}
		out[target] = "/uploads/" + filename
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func parseInt(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		if list, ok := value.([]any); ok {
			value = append([]any(nil), list...)
		}
		out[key] = value
	}
	return out
}
